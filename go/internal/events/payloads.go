package events

import (
	"time"

	"github.com/civicgrid/commonwealth/go/internal/models"
)

// PlayerJoinedPayload announces a new member to the rest of the room.
type PlayerJoinedPayload struct {
	Player models.PlayerView `json:"player"`
	Count  int               `json:"count"`
}

// PlayerLeftPayload announces a departure; HostID carries the current
// host after any reassignment.
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	HostID   string `json:"host_id"`
	Count    int    `json:"count"`
}

// ReadyCheckStartedPayload is broadcast once per room lifetime when
// enough players are present to begin readying up.
type ReadyCheckStartedPayload struct {
	MinPlayers int `json:"min_players"`
	Present    int `json:"present"`
}

// CountdownUpdatePayload ticks the pre-game countdown.
type CountdownUpdatePayload struct {
	SecondsLeft int `json:"seconds_left"`
}

// GameStartedPayload carries the initial economic state.
type GameStartedPayload struct {
	GameDay   float64             `json:"game_day"`
	StartedAt time.Time           `json:"started_at"`
	Players   []models.PlayerView `json:"players"`
	TaxRate   float64             `json:"tax_rate"`
}

// DailyProgressionPayload is broadcast when the in-game day advances.
type DailyProgressionPayload struct {
	GameDay  int                     `json:"game_day"`
	Month    int                     `json:"month"`
	Treasury models.TreasurySnapshot `json:"treasury"`
	Players  []models.PlayerView     `json:"players"`
}

// Standing is one row of the commonwealth ranking.
type Standing struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Wealth   float64 `json:"wealth"`
	LVTRatio float64 `json:"lvt_ratio"`
}

// CommonwealthUpdatePayload carries current rankings without ending
// the game.
type CommonwealthUpdatePayload struct {
	GameDay   int        `json:"game_day"`
	Standings []Standing `json:"standings"`
}

// GameOverPayload ends the game with final standings.
type GameOverPayload struct {
	WinnerID  string     `json:"winner_id"`
	Reason    string     `json:"reason"`
	GameDay   int        `json:"game_day"`
	Standings []Standing `json:"standings"`
}

// PlayerConnectionPayload covers disconnect, reconnect, auto-removal
// and quit notices.
type PlayerConnectionPayload struct {
	PlayerID string `json:"player_id"`
	HostID   string `json:"host_id,omitempty"`
}

// ListingUpdatedPayload is the room-wide delta after any marketplace
// mutation.
type ListingUpdatedPayload struct {
	Listing models.Listing `json:"listing"`
}

// TreasuryUpdatedPayload is the room-wide delta after any governance
// mutation or monthly distribution.
type TreasuryUpdatedPayload struct {
	Treasury models.TreasurySnapshot `json:"treasury"`
}

// Response is the unicast reply to a client transaction. Type-specific
// result fields ride in Result.
type Response struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Result  any    `json:"result,omitempty"`
}
