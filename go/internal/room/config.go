package room

import (
	"time"
)

// Config carries the tunables for one room. Zero values are filled in
// from Default by the registry.
type Config struct {
	MinPlayers int
	MaxPlayers int
	IsPublic   bool

	// StartingBalance and StartingActions seed every player at game
	// start.
	StartingBalance float64
	StartingActions int

	// PregameVotePoints is the elevated budget for pre-game LVT voting;
	// GameplayVotePoints is the scarcer in-game governance budget.
	PregameVotePoints  int
	GameplayVotePoints int

	InitialTaxRate float64

	// CountdownSeconds is the broadcast countdown between STARTING and
	// IN_PROGRESS.
	CountdownSeconds int

	// YearRealDuration is how much wall time one 365-day game year
	// takes. Game time is recomputed from elapsed wall time every tick,
	// so it stays accurate under scheduler jitter.
	YearRealDuration time.Duration

	TickInterval    time.Duration
	RankingInterval time.Duration
	TeardownDelay   time.Duration
}

// DefaultConfig returns production tuning.
func DefaultConfig() Config {
	return Config{
		MinPlayers:         2,
		MaxPlayers:         6,
		IsPublic:           true,
		StartingBalance:    5000,
		StartingActions:    20,
		PregameVotePoints:  4,
		GameplayVotePoints: 2,
		InitialTaxRate:     0.50,
		CountdownSeconds:   3,
		YearRealDuration:   60 * time.Minute,
		TickInterval:       time.Second,
		RankingInterval:    30 * time.Second,
		TeardownDelay:      30 * time.Second,
	}
}

// Solo reports whether this is a single-player room, which skips the
// ready check and starts as soon as its one player joins.
func (c Config) Solo() bool {
	return c.MaxPlayers == 1
}
