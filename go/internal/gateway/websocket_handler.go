package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrade requests and the small lobby HTTP
// surface.
type WebSocketHandler struct {
	manager *ConnectionManager
	lobby   LobbyProvider
}

// LobbyProvider lists joinable rooms for the lobby endpoint.
type LobbyProvider interface {
	PublicRooms() any
}

// NewWebSocketHandler creates the HTTP-facing handler.
func NewWebSocketHandler(manager *ConnectionManager, lobby LobbyProvider) *WebSocketHandler {
	return &WebSocketHandler{manager: manager, lobby: lobby}
}

// HandleConnection upgrades a client to WebSocket. The player id comes
// from the query string; in production it is minted by the (external)
// auth flow.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.manager.UpgradeConnection(w, r, playerID)
	if err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to upgrade WebSocket connection")
		return
	}
	h.manager.handler.HandleConnect(playerID, conn)
}

// HandleRooms serves the public lobby listing.
func (h *WebSocketHandler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.lobby.PublicRooms()); err != nil {
		log.Error().Err(err).Msg("failed to encode room list")
	}
}

// HandleHealth is the health check endpoint.
func (h *WebSocketHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// RegisterRoutes attaches the gateway's routes.
func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleConnection).Methods(http.MethodGet)
	r.HandleFunc("/rooms", h.HandleRooms).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
}
