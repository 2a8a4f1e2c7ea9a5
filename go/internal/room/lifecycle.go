package room

import (
	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/models"
)

// evaluateStartLocked drives WAITING → STARTING. Solo rooms start the
// moment their player is present; multiplayer rooms need everyone
// connected to be ready. Reaching the minimum headcount without full
// readiness triggers the one-time ready check broadcast.
func (r *Room) evaluateStartLocked() {
	if r.phase != models.RoomPhaseWaiting || len(r.players) < r.cfg.MinPlayers {
		return
	}

	if r.cfg.Solo() {
		r.beginCountdownLocked()
		return
	}

	allReady := true
	for _, p := range r.players {
		if p.Connected && !p.Ready {
			allReady = false
			break
		}
	}
	if allReady {
		r.beginCountdownLocked()
		return
	}

	if !r.readyCheckTriggered {
		r.readyCheckTriggered = true
		r.broadcastLocked(events.New(events.TypeReadyCheckStarted, r.clock.Now(), events.ReadyCheckStartedPayload{
			MinPlayers: r.cfg.MinPlayers,
			Present:    len(r.players),
		}))
		r.logger.Info().Int("players", len(r.players)).Msg("ready check started")
	}
}

// beginCountdownLocked transitions to STARTING and runs the broadcast
// countdown on its own goroutine. The countdown timer is a room field
// with a single cancellation path through Shutdown.
func (r *Room) beginCountdownLocked() {
	if !r.phase.CanTransitionTo(models.RoomPhaseStarting) {
		return
	}
	r.phase = models.RoomPhaseStarting
	r.broadcastLocked(events.New(events.TypeGameStarting, r.clock.Now(), events.CountdownUpdatePayload{
		SecondsLeft: r.cfg.CountdownSeconds,
	}))
	r.logger.Info().Msg("game starting")

	stop := make(chan struct{})
	r.countdownStop = stop
	go r.runCountdown(stop)
}

func (r *Room) runCountdown(stop chan struct{}) {
	for left := r.cfg.CountdownSeconds; left > 0; left-- {
		r.mu.Lock()
		r.broadcastLocked(events.New(events.TypeCountdownUpdate, r.clock.Now(), events.CountdownUpdatePayload{
			SecondsLeft: left,
		}))
		r.mu.Unlock()

		select {
		case <-r.clock.After(countdownTick):
		case <-stop:
			return
		}
	}
	r.startGame()
}

// startGame drives STARTING → IN_PROGRESS: seeds the economy, locks in
// pre-game governance, and starts the per-room clock. The gameStarted
// guard makes re-entry a no-op.
func (r *Room) startGame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.phase.CanTransitionTo(models.RoomPhaseInProgress) {
		return
	}
	r.phase = models.RoomPhaseInProgress
	r.countdownStop = nil

	if !r.gameStarted {
		r.gameStarted = true
		for _, p := range r.players {
			p.Balance = r.cfg.StartingBalance
			p.Actions = r.cfg.StartingActions
		}
		r.tsy.StartGameplay(r.playersLocked(), r.cfg.GameplayVotePoints)
		r.gameDay = 1
		r.lastDay = 1
		r.lastMonth = 0
	}
	r.gameStartTime = r.clock.Now()
	r.lastRanking = r.clock.Now()

	r.broadcastLocked(events.New(events.TypeGameStarted, r.clock.Now(), events.GameStartedPayload{
		GameDay:   r.gameDay,
		StartedAt: r.gameStartTime,
		Players:   r.playerViewsLocked(),
		TaxRate:   r.tsy.TaxRate(),
	}))
	r.logger.Info().Int("players", len(r.players)).Msg("game started")

	stop := make(chan struct{})
	r.tickerStop = stop
	go r.runClock(stop)
}

// endGameLocked drives IN_PROGRESS → COMPLETED, announces the result,
// stops the clock, and arms the teardown timer that evicts the room
// from the registry once clients have had time to show the results.
func (r *Room) endGameLocked(winnerID, reason string, standings []events.Standing) {
	if !r.phase.CanTransitionTo(models.RoomPhaseCompleted) {
		return
	}
	r.phase = models.RoomPhaseCompleted

	r.broadcastLocked(events.New(events.TypeGameOver, r.clock.Now(), events.GameOverPayload{
		WinnerID:  winnerID,
		Reason:    reason,
		GameDay:   int(r.gameDay),
		Standings: standings,
	}))
	r.logger.Info().Str("winner_id", winnerID).Str("reason", reason).Msg("game over")

	if r.tickerStop != nil {
		close(r.tickerStop)
		r.tickerStop = nil
	}
	r.teardownTimer = r.clock.AfterFunc(r.cfg.TeardownDelay, func() {
		r.onCompleted(r.ID)
	})
}

// EndGame completes the game by admin action.
func (r *Room) EndGame(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != models.RoomPhaseInProgress {
		return
	}
	standings := r.standingsLocked()
	winner := ""
	if len(standings) > 0 {
		winner = standings[0].PlayerID
	}
	r.endGameLocked(winner, reason, standings)
}
