package room

import (
	"time"

	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/models"
)

const countdownTick = time.Second

// Civic (early) victory thresholds.
const (
	civicVictoryScore    = 25.0
	civicVictoryLVTRatio = 0.15
	civicVictoryWealth   = 50000.0
)

// runClock is the per-room game-day ticker. It stops when the room
// leaves IN_PROGRESS or is torn down.
func (r *Room) runClock(stop chan struct{}) {
	ticker := r.clock.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			r.tick()
		}
	}
}

// tick advances game time and runs everything anchored to it: daily
// progression, listing expiry, monthly treasury distribution, victory
// evaluation, and the periodic ranking broadcast. Ticks run strictly
// between transactions (same room lock), never interleaved
// mid-transaction.
func (r *Room) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != models.RoomPhaseInProgress {
		return
	}

	// Recompute game time from elapsed wall time rather than
	// accumulating per-tick deltas, so drift under scheduler jitter
	// self-corrects.
	elapsed := r.clock.Now().Sub(r.gameStartTime)
	r.gameDay = 1 + elapsed.Seconds()/r.cfg.YearRealDuration.Seconds()*models.DaysPerYear

	day := int(r.gameDay)
	for d := r.lastDay + 1; d <= day; d++ {
		r.advanceDayLocked(d)
	}
	r.lastDay = day

	if m := models.MonthOf(r.gameDay); m > r.lastMonth {
		r.lastMonth = m
		r.tsy.DistributeMonthly()
		r.broadcastLocked(events.New(events.TypeTreasuryUpdated, r.clock.Now(), events.TreasuryUpdatedPayload{
			Treasury: r.tsy.Snapshot(),
		}))
	}

	for _, res := range r.ledger.ExpireSweep(r.gameDay) {
		r.broadcastLocked(events.New(events.TypeListingUpdated, r.clock.Now(), events.ListingUpdatedPayload{
			Listing: res.Listing,
		}))
	}

	r.evaluateVictoryLocked()
}

// advanceDayLocked runs one in-game day: the engine's building and
// population progression plus LVT collection into the treasury. An
// engine failure is logged and skipped; a single bad tick must not
// kill the room's clock.
func (r *Room) advanceDayLocked(day int) {
	revenue, err := r.engine.AdvanceDay(day, r.tsy.TaxRate(), r.playersLocked())
	if err != nil {
		r.logger.Error().Err(err).Int("day", day).Msg("daily progression failed")
		return
	}
	for _, amount := range revenue {
		r.tsy.AddFunds(amount)
	}
	r.broadcastLocked(events.New(events.TypeDailyProgression, r.clock.Now(), events.DailyProgressionPayload{
		GameDay:  day,
		Month:    models.MonthOf(float64(day)),
		Treasury: r.tsy.Snapshot(),
		Players:  r.playerViewsLocked(),
	}))
}

// evaluateVictoryLocked applies the threshold policy over the engine's
// rankings: year-end victory at day 365, otherwise the first player
// (in score order) clearing all civic thresholds wins early. Failing
// both, rankings are re-broadcast periodically.
func (r *Room) evaluateVictoryLocked() {
	standings := r.standingsLocked()
	if len(standings) == 0 {
		return
	}

	if int(r.gameDay) >= models.DaysPerYear {
		r.endGameLocked(standings[0].PlayerID, "year_end", standings)
		return
	}

	for _, s := range standings {
		if s.Score >= civicVictoryScore && s.LVTRatio >= civicVictoryLVTRatio && s.Wealth >= civicVictoryWealth {
			r.endGameLocked(s.PlayerID, "civic", standings)
			return
		}
	}

	if r.clock.Now().Sub(r.lastRanking) >= r.cfg.RankingInterval {
		r.lastRanking = r.clock.Now()
		r.broadcastLocked(events.New(events.TypeCommonwealthUpdate, r.clock.Now(), events.CommonwealthUpdatePayload{
			GameDay:   int(r.gameDay),
			Standings: standings,
		}))
	}
}

func (r *Room) standingsLocked() []events.Standing {
	scores := r.engine.CommonwealthScores(r.playersLocked())
	standings := make([]events.Standing, 0, len(scores))
	for _, s := range scores {
		name := ""
		if p, ok := r.players[s.PlayerID]; ok {
			name = p.Name
		}
		standings = append(standings, events.Standing{
			PlayerID: s.PlayerID,
			Name:     name,
			Score:    s.Score,
			Wealth:   s.Wealth,
			LVTRatio: s.LVTRatio,
		})
	}
	return standings
}
