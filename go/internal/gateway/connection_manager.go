package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Handler is the inbound side of the gateway: the protocol router plus
// the registry's disconnect handling.
type Handler interface {
	HandleConnect(playerID string, t Transport)
	HandleMessage(playerID string, t Transport, raw []byte)
	HandleDisconnect(playerID string)
}

// Transport mirrors room.Transport; the gateway stays decoupled from
// the room package by declaring its own copy of the contract.
type Transport interface {
	Send(v any)
	Close()
}

// ConnectionConfig holds tuning for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket tuning.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// ConnectionManager upgrades HTTP requests and owns the live
// connection set, one per player.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  Handler
	clock    clockwork.Clock
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig, handler Handler, clock clockwork.Clock) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		handler: handler,
		clock:   clock,
	}
}

// Connection is one client's WebSocket session. It implements the room
// transport: Send buffers and never blocks the committing transaction.
type Connection struct {
	ID       string
	PlayerID string

	conn    *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	closeOnce   sync.Once
	connectedAt time.Time
}

// UpgradeConnection upgrades an HTTP request to a WebSocket session
// for the given player. A previous session for the same player is
// displaced without triggering disconnect grace.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		conn:        conn,
		send:        make(chan []byte, cm.config.SendBuffer),
		manager:     cm,
		connectedAt: cm.clock.Now(),
	}
	cm.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("player_id", playerID).
		Msg("WebSocket connection established")
	return c, nil
}

func (cm *ConnectionManager) register(c *Connection) {
	cm.mu.Lock()
	prev := cm.connections[c.PlayerID]
	cm.connections[c.PlayerID] = c
	cm.mu.Unlock()

	if prev != nil {
		log.Debug().Str("player_id", c.PlayerID).Msg("displacing previous connection")
		prev.Close()
	}
}

// unregister drops the connection and reports whether it was still the
// player's active session.
func (cm *ConnectionManager) unregister(c *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.connections[c.PlayerID] != c {
		return false
	}
	delete(cm.connections, c.PlayerID)
	return true
}

// ConnectionCount returns the number of live sessions.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// Send marshals v and queues it without blocking; a client whose
// buffer is full is closed rather than allowed to stall broadcasts.
func (c *Connection) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal outbound message")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("player_id", c.PlayerID).
			Msg("send buffer full, closing connection")
		c.Close()
	}
}

// Close terminates the session. Idempotent.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump feeds inbound frames to the handler. When the socket drops
// and this is still the player's active session, the registry's
// disconnect grace handling kicks in.
func (c *Connection) readPump() {
	defer func() {
		c.Close()
		if c.manager.unregister(c) {
			c.manager.handler.HandleDisconnect(c.PlayerID)
		}
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close")
			}
			return
		}
		c.manager.handler.HandleMessage(c.PlayerID, c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
