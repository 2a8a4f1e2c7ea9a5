// Package room implements the per-session game core: the lifecycle
// state machine, the isolated game clock, the marketplace and treasury
// transaction surface, victory evaluation, and WebSocket fan-out.
//
// Every mutating operation takes the room mutex for its full
// validate-then-mutate span. The contract is that no two transactions
// for the same room are ever concurrently in their commit phase;
// cross-room operations share no state and need no ordering.
package room

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/market"
	"github.com/civicgrid/commonwealth/go/internal/models"
	"github.com/civicgrid/commonwealth/go/internal/treasury"
)

// Transport is a live connection to one client. Send must never block
// the caller; slow clients are the transport's problem.
type Transport interface {
	Send(v any)
	Close()
}

// RemovalReason distinguishes the three permanent-departure paths.
type RemovalReason int

const (
	RemovalLeft RemovalReason = iota
	RemovalQuit
	RemovalTimedOut
)

// PlayerData is the client-supplied profile for a joining player.
type PlayerData struct {
	Name string
}

// Room is one isolated game session.
type Room struct {
	ID string

	mu     sync.Mutex
	cfg    Config
	clock  clockwork.Clock
	engine econ.Engine
	logger zerolog.Logger

	assignColor func(taken map[string]bool) string
	genCityName func() string

	phase      models.RoomPhase
	players    map[string]*models.Player
	joinOrder  []string
	hostID     string
	transports map[string]Transport
	createdAt  time.Time

	ledger *market.Ledger
	tsy    *treasury.Treasury

	readyCheckTriggered bool
	gameStarted         bool
	gameStartTime       time.Time
	gameDay             float64
	lastDay             int
	lastMonth           int
	lastRanking         time.Time

	// Timer handles. Each armed timer has exactly one cancellation
	// path, and Shutdown cancels all of them idempotently.
	countdownStop chan struct{}
	tickerStop    chan struct{}
	teardownTimer clockwork.Timer

	// onCompleted removes the room from the registry once the
	// post-game teardown delay elapses.
	onCompleted func(roomID string)

	closed bool
}

// Option customizes room construction.
type Option func(*Room)

// WithColorAssigner overrides the join-time color picker.
func WithColorAssigner(f func(taken map[string]bool) string) Option {
	return func(r *Room) { r.assignColor = f }
}

// WithCityNameGenerator overrides the join-time city-name generator.
func WithCityNameGenerator(f func() string) Option {
	return func(r *Room) { r.genCityName = f }
}

// WithCompletionCallback registers the registry's teardown hook.
func WithCompletionCallback(f func(roomID string)) Option {
	return func(r *Room) { r.onCompleted = f }
}

// New creates a room in WAITING.
func New(id string, cfg Config, clock clockwork.Clock, engine econ.Engine, opts ...Option) *Room {
	r := &Room{
		ID:          id,
		cfg:         cfg,
		clock:       clock,
		engine:      engine,
		logger:      log.With().Str("room_id", id).Logger(),
		assignColor: AssignColor,
		genCityName: DefaultCityName,
		phase:       models.RoomPhaseWaiting,
		players:     make(map[string]*models.Player),
		transports:  make(map[string]Transport),
		createdAt:   clock.Now(),
		onCompleted: func(string) {},
	}
	r.tsy = treasury.New(cfg.InitialTaxRate)
	r.ledger = market.NewLedger(r.players, engine, r.tsy, clock.Now)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddPlayer admits a new member. The caller (registry) has already
// routed reconnects elsewhere; this path is for players the room has
// never seen.
func (r *Room) AddPlayer(playerID string, data PlayerData, t Transport) (models.PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.PlayerView{}, gamerr.NotFound("room %s is gone", r.ID)
	}
	if _, ok := r.players[playerID]; ok {
		return models.PlayerView{}, gamerr.Conflict("player %s already in room", playerID)
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return models.PlayerView{}, gamerr.Conflict("room %s is full", r.ID)
	}
	if r.phase != models.RoomPhaseWaiting {
		return models.PlayerView{}, gamerr.Conflict("game already in progress")
	}

	taken := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		taken[p.Color] = true
	}
	p := &models.Player{
		ID:            playerID,
		Name:          data.Name,
		CityName:      r.genCityName(),
		Color:         r.assignColor(taken),
		Connected:     true,
		VotingPoints:  r.cfg.PregameVotePoints,
		CategoryVotes: make(map[models.BudgetCategory]int),
		JoinedAt:      r.clock.Now(),
	}
	r.players[playerID] = p
	r.joinOrder = append(r.joinOrder, playerID)
	r.transports[playerID] = t
	if r.hostID == "" {
		r.hostID = playerID
	}

	view := p.View(r.hostID == playerID)
	r.broadcastLocked(events.New(events.TypePlayerJoined, r.clock.Now(), events.PlayerJoinedPayload{
		Player: view,
		Count:  len(r.players),
	}), playerID)

	r.logger.Info().Str("player_id", playerID).Int("players", len(r.players)).Msg("player joined")
	r.evaluateStartLocked()
	return view, nil
}

// RemovePlayer permanently removes a member, reassigning the host and
// cancelling the departed player's open listings. Returns true if the
// room is now empty.
func (r *Room) RemovePlayer(playerID string, reason RemovalReason) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return len(r.players) == 0, gamerr.NotFound("player %s not in room", playerID)
	}

	r.ledger.ReleasePlayer(playerID)
	delete(r.players, playerID)
	delete(r.transports, playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	if r.hostID == playerID {
		r.hostID = ""
		if len(r.joinOrder) > 0 {
			r.hostID = r.joinOrder[0]
		}
	}

	var evType events.Type
	switch reason {
	case RemovalQuit:
		evType = events.TypePlayerQuit
	case RemovalTimedOut:
		evType = events.TypePlayerAutoRemoved
	default:
		evType = events.TypePlayerLeft
	}
	r.broadcastLocked(events.New(evType, r.clock.Now(), events.PlayerLeftPayload{
		PlayerID: playerID,
		HostID:   r.hostID,
		Count:    len(r.players),
	}))

	r.logger.Info().Str("player_id", playerID).Int("players", len(r.players)).Msg("player removed")

	// A departure can complete a pending ready check.
	r.evaluateStartLocked()
	return len(r.players) == 0, nil
}

// SetReady toggles a player's ready flag during the waiting phase and
// re-evaluates the start condition.
func (r *Room) SetReady(playerID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return gamerr.NotFound("player %s not in room", playerID)
	}
	if r.phase != models.RoomPhaseWaiting {
		return gamerr.Conflict("game already in progress")
	}
	p.Ready = ready
	r.evaluateStartLocked()
	return nil
}

// MarkDisconnected flags a player as offline without removing them.
func (r *Room) MarkDisconnected(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return gamerr.NotFound("player %s not in room", playerID)
	}
	p.Connected = false
	delete(r.transports, playerID)
	r.broadcastLocked(events.New(events.TypePlayerDisconnected, r.clock.Now(), events.PlayerConnectionPayload{
		PlayerID: playerID,
	}))
	r.logger.Info().Str("player_id", playerID).Msg("player disconnected")
	return nil
}

// Reconnect rebinds a returning player's transport, announces them to
// the room, and pushes the full authoritative snapshot to them alone.
func (r *Room) Reconnect(playerID string, t Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return gamerr.NotFound("player %s not in room", playerID)
	}
	p.Connected = true
	r.transports[playerID] = t
	r.broadcastLocked(events.New(events.TypePlayerReconnected, r.clock.Now(), events.PlayerConnectionPayload{
		PlayerID: playerID,
	}), playerID)
	t.Send(events.New(events.TypeReconnected, r.clock.Now(), r.snapshotLocked()))
	r.logger.Info().Str("player_id", playerID).Msg("player reconnected")
	return nil
}

// HasPlayer reports membership.
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[playerID]
	return ok
}

// IsEmpty reports whether the roster is empty.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Phase returns the current lifecycle phase.
func (r *Room) Phase() models.RoomPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Info returns the lobby summary.
func (r *Room) Info() models.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() models.RoomInfo {
	return models.RoomInfo{
		ID:          r.ID,
		Phase:       r.phase,
		PlayerCount: len(r.players),
		MinPlayers:  r.cfg.MinPlayers,
		MaxPlayers:  r.cfg.MaxPlayers,
		IsPublic:    r.cfg.IsPublic,
		HostID:      r.hostID,
		CreatedAt:   r.createdAt,
	}
}

// Snapshot renders the full authoritative state.
func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() models.RoomSnapshot {
	return models.RoomSnapshot{
		RoomInfo: r.infoLocked(),
		GameDay:  r.gameDay,
		Players:  r.playerViewsLocked(),
		Listings: r.ledger.Active(),
		Treasury: r.tsy.Snapshot(),
	}
}

func (r *Room) playerViewsLocked() []models.PlayerView {
	views := make([]models.PlayerView, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		views = append(views, r.players[id].View(id == r.hostID))
	}
	return views
}

func (r *Room) playersLocked() []*models.Player {
	out := make([]*models.Player, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		out = append(out, r.players[id])
	}
	return out
}

// broadcastLocked fans an event out to every connected member except
// the excluded ids. Transports buffer internally, so a slow client
// never blocks the committed transaction.
func (r *Room) broadcastLocked(ev events.Event, except ...string) {
	for id, t := range r.transports {
		skip := false
		for _, ex := range except {
			if id == ex {
				skip = true
				break
			}
		}
		if !skip {
			t.Send(ev)
		}
	}
}

// Shutdown cancels every timer the room owns. Safe to call more than
// once and from any teardown path; a timer left running would keep
// mutating a logically dead room.
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdownLocked()
}

func (r *Room) shutdownLocked() {
	if r.closed {
		return
	}
	r.closed = true
	if r.countdownStop != nil {
		close(r.countdownStop)
		r.countdownStop = nil
	}
	if r.tickerStop != nil {
		close(r.tickerStop)
		r.tickerStop = nil
	}
	if r.teardownTimer != nil {
		r.teardownTimer.Stop()
		r.teardownTimer = nil
	}
	r.logger.Info().Msg("room shut down")
}
