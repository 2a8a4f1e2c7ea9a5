// Package registry owns the room set and the player→room index. The
// index and the room rosters must stay consistent: a player maps to at
// most one room, and every mapping corresponds to actual membership.
// The registry's lock is distinct from any per-room lock; lock order
// is always registry then room.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/models"
	"github.com/civicgrid/commonwealth/go/internal/room"
)

// Config carries registry-level tuning.
type Config struct {
	// DisconnectGrace is how long a disconnected player is held before
	// permanent auto-removal.
	DisconnectGrace time.Duration

	// EmptyRoomGrace is how long an empty room survives before
	// deletion, tolerating refresh/reconnect cycles.
	EmptyRoomGrace time.Duration

	// MaxRoomSize caps quick-join room creation.
	MaxRoomSize int

	// Room is the default per-room configuration.
	Room room.Config
}

// DefaultConfig returns production tuning.
func DefaultConfig() Config {
	return Config{
		DisconnectGrace: 5 * time.Minute,
		EmptyRoomGrace:  30 * time.Second,
		MaxRoomSize:     6,
		Room:            room.DefaultConfig(),
	}
}

// Registry is the process-wide room manager.
type Registry struct {
	mu    sync.Mutex
	cfg   Config
	clock clockwork.Clock

	// newEngine builds the economic-engine collaborator for each room.
	newEngine func() econ.Engine

	rooms      map[string]*room.Room
	roomOrder  []string
	playerRoom map[string]string

	disconnectTimers map[string]clockwork.Timer
	emptyTimers      map[string]clockwork.Timer

	roomOpts []room.Option
}

// New creates a registry.
func New(cfg Config, clock clockwork.Clock, newEngine func() econ.Engine, roomOpts ...room.Option) *Registry {
	return &Registry{
		cfg:              cfg,
		clock:            clock,
		newEngine:        newEngine,
		rooms:            make(map[string]*room.Room),
		playerRoom:       make(map[string]string),
		disconnectTimers: make(map[string]clockwork.Timer),
		emptyTimers:      make(map[string]clockwork.Timer),
		roomOpts:         roomOpts,
	}
}

// RoomOptions selects per-room overrides at creation time.
type RoomOptions struct {
	MinPlayers int
	MaxPlayers int
	IsPublic   bool
}

// newRoomID builds an id that cannot collide across process restarts:
// a timestamp plus a random suffix, never a reused counter.
func (g *Registry) newRoomID() string {
	return fmt.Sprintf("r-%d-%s", g.clock.Now().UnixMilli(), uuid.NewString()[:8])
}

// CreateRoom creates and registers a new room.
func (g *Registry) CreateRoom(opts RoomOptions) *room.Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createRoomLocked(opts)
}

func (g *Registry) createRoomLocked(opts RoomOptions) *room.Room {
	cfg := g.cfg.Room
	if opts.MinPlayers > 0 {
		cfg.MinPlayers = opts.MinPlayers
	}
	if opts.MaxPlayers > 0 {
		cfg.MaxPlayers = opts.MaxPlayers
	}
	cfg.IsPublic = opts.IsPublic

	id := g.newRoomID()
	allOpts := append([]room.Option{room.WithCompletionCallback(g.removeCompletedRoom)}, g.roomOpts...)
	rm := room.New(id, cfg, g.clock, g.newEngine(), allOpts...)
	g.rooms[id] = rm
	g.roomOrder = append(g.roomOrder, id)
	log.Info().Str("room_id", id).Int("min", cfg.MinPlayers).Int("max", cfg.MaxPlayers).Bool("public", cfg.IsPublic).Msg("room created")
	return rm
}

// JoinRoom adds a player to a specific room. A player already in
// another room is removed from it first. A returning member of the
// same room is routed through the reconnect path; otherwise joining a
// started game is refused outright.
func (g *Registry) JoinRoom(roomID, playerID string, data room.PlayerData, t room.Transport) (*room.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rm, ok := g.rooms[roomID]
	if !ok {
		return nil, gamerr.NotFound("room %s not found", roomID)
	}

	if g.playerRoom[playerID] == roomID && rm.HasPlayer(playerID) {
		if err := g.reconnectLocked(playerID, t); err != nil {
			return nil, err
		}
		return rm, nil
	}

	g.leaveCurrentRoomLocked(playerID)

	if _, err := rm.AddPlayer(playerID, data, t); err != nil {
		return nil, err
	}
	g.playerRoom[playerID] = roomID
	g.cancelEmptyTimerLocked(roomID)
	return rm, nil
}

// Preferences drive quick-join matchmaking.
type Preferences struct {
	MinPlayers int
	MaxPlayers int
}

// FindTableWithPreferences implements quick-join. Solo requests always
// get a fresh private room. Multiplayer requests scan public waiting
// rooms, oldest first, for one whose own minimum is at least the
// requester's and which has spare capacity; failing that a new public
// room is created, sized to the request.
func (g *Registry) FindTableWithPreferences(playerID string, data room.PlayerData, t room.Transport, prefs Preferences) (*room.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.leaveCurrentRoomLocked(playerID)

	if prefs.MinPlayers == 1 && prefs.MaxPlayers == 1 {
		rm := g.createRoomLocked(RoomOptions{MinPlayers: 1, MaxPlayers: 1, IsPublic: false})
		return g.seatLocked(rm, playerID, data, t)
	}

	for _, id := range g.roomOrder {
		rm := g.rooms[id]
		info := rm.Info()
		if !info.IsPublic || info.Phase != models.RoomPhaseWaiting {
			continue
		}
		if info.MinPlayers < prefs.MinPlayers || info.PlayerCount >= info.MaxPlayers {
			continue
		}
		return g.seatLocked(rm, playerID, data, t)
	}

	maxPlayers := g.cfg.MaxRoomSize
	if prefs.MaxPlayers > maxPlayers {
		maxPlayers = prefs.MaxPlayers
	}
	rm := g.createRoomLocked(RoomOptions{MinPlayers: prefs.MinPlayers, MaxPlayers: maxPlayers, IsPublic: true})
	return g.seatLocked(rm, playerID, data, t)
}

func (g *Registry) seatLocked(rm *room.Room, playerID string, data room.PlayerData, t room.Transport) (*room.Room, error) {
	if _, err := rm.AddPlayer(playerID, data, t); err != nil {
		return nil, err
	}
	g.playerRoom[playerID] = rm.ID
	g.cancelEmptyTimerLocked(rm.ID)
	return rm, nil
}

// LeaveCurrentRoom removes the player from whatever room they are in.
// An emptied room is not deleted immediately; deletion is deferred by
// the empty-room grace timer.
func (g *Registry) LeaveCurrentRoom(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.playerRoom[playerID]; !ok {
		return gamerr.NotFound("player %s is not in a room", playerID)
	}
	g.leaveCurrentRoomLocked(playerID)
	return nil
}

func (g *Registry) leaveCurrentRoomLocked(playerID string) {
	g.removePlayerLocked(playerID, room.RemovalLeft)
}

func (g *Registry) removePlayerLocked(playerID string, reason room.RemovalReason) {
	roomID, ok := g.playerRoom[playerID]
	if !ok {
		return
	}
	delete(g.playerRoom, playerID)
	g.cancelDisconnectTimerLocked(playerID)

	rm, ok := g.rooms[roomID]
	if !ok {
		return
	}
	empty, err := rm.RemovePlayer(playerID, reason)
	if err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Str("room_id", roomID).Msg("index pointed at room without membership")
	}
	if empty {
		g.armEmptyTimerLocked(roomID)
	}
}

// HandleDisconnect flags the player offline and arms the auto-removal
// grace timer. Reconnection is the only cancellation path.
func (g *Registry) HandleDisconnect(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	roomID, ok := g.playerRoom[playerID]
	if !ok {
		return
	}
	rm := g.rooms[roomID]
	if rm == nil {
		return
	}
	if err := rm.MarkDisconnected(playerID); err != nil {
		return
	}

	g.cancelDisconnectTimerLocked(playerID)
	g.disconnectTimers[playerID] = g.clock.AfterFunc(g.cfg.DisconnectGrace, func() {
		g.autoRemove(playerID)
	})
}

func (g *Registry) autoRemove(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.disconnectTimers, playerID)
	log.Info().Str("player_id", playerID).Msg("disconnect grace expired, removing player")
	g.removePlayerLocked(playerID, room.RemovalTimedOut)
}

// HandleReconnect cancels the pending auto-removal, rebinds the
// transport, and pushes a full snapshot to the returning client.
func (g *Registry) HandleReconnect(playerID string, t room.Transport) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reconnectLocked(playerID, t)
}

func (g *Registry) reconnectLocked(playerID string, t room.Transport) error {
	roomID, ok := g.playerRoom[playerID]
	if !ok {
		return gamerr.NotFound("player %s has no room to rejoin", playerID)
	}
	rm := g.rooms[roomID]
	if rm == nil {
		return gamerr.NotFound("room %s not found", roomID)
	}
	if err := rm.Reconnect(playerID, t); err != nil {
		return err
	}
	g.cancelDisconnectTimerLocked(playerID)
	g.cancelEmptyTimerLocked(roomID)
	return nil
}

// QuitGame is permanent departure: no grace period, immediate removal.
func (g *Registry) QuitGame(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.playerRoom[playerID]; !ok {
		return gamerr.NotFound("player %s is not in a room", playerID)
	}
	g.removePlayerLocked(playerID, room.RemovalQuit)
	return nil
}

// RoomOf returns the room a player currently belongs to.
func (g *Registry) RoomOf(playerID string) (*room.Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	roomID, ok := g.playerRoom[playerID]
	if !ok {
		return nil, false
	}
	rm, ok := g.rooms[roomID]
	return rm, ok
}

// GetRoom looks a room up by id.
func (g *Registry) GetRoom(roomID string) (*room.Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rm, ok := g.rooms[roomID]
	return rm, ok
}

// PublicRooms lists joinable public rooms for the lobby.
func (g *Registry) PublicRooms() []models.RoomInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.RoomInfo
	for _, id := range g.roomOrder {
		info := g.rooms[id].Info()
		if info.IsPublic && info.Phase == models.RoomPhaseWaiting {
			out = append(out, info)
		}
	}
	return out
}

// timers

func (g *Registry) armEmptyTimerLocked(roomID string) {
	g.cancelEmptyTimerLocked(roomID)
	g.emptyTimers[roomID] = g.clock.AfterFunc(g.cfg.EmptyRoomGrace, func() {
		g.reapEmptyRoom(roomID)
	})
	log.Debug().Str("room_id", roomID).Msg("empty-room grace timer armed")
}

func (g *Registry) reapEmptyRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.emptyTimers, roomID)
	rm, ok := g.rooms[roomID]
	if !ok || !rm.IsEmpty() {
		return
	}
	g.deleteRoomLocked(roomID)
}

func (g *Registry) cancelEmptyTimerLocked(roomID string) {
	if timer, ok := g.emptyTimers[roomID]; ok {
		timer.Stop()
		delete(g.emptyTimers, roomID)
	}
}

func (g *Registry) cancelDisconnectTimerLocked(playerID string) {
	if timer, ok := g.disconnectTimers[playerID]; ok {
		timer.Stop()
		delete(g.disconnectTimers, playerID)
	}
}

// removeCompletedRoom is the room's post-game teardown callback.
func (g *Registry) removeCompletedRoom(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteRoomLocked(roomID)
}

func (g *Registry) deleteRoomLocked(roomID string) {
	rm, ok := g.rooms[roomID]
	if !ok {
		return
	}
	rm.Shutdown()
	delete(g.rooms, roomID)
	for i, id := range g.roomOrder {
		if id == roomID {
			g.roomOrder = append(g.roomOrder[:i], g.roomOrder[i+1:]...)
			break
		}
	}
	g.cancelEmptyTimerLocked(roomID)
	for playerID, id := range g.playerRoom {
		if id == roomID {
			delete(g.playerRoom, playerID)
			g.cancelDisconnectTimerLocked(playerID)
		}
	}
	log.Info().Str("room_id", roomID).Msg("room deleted")
}

// Shutdown tears down every room and timer.
func (g *Registry) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range append([]string(nil), g.roomOrder...) {
		g.deleteRoomLocked(id)
	}
}
