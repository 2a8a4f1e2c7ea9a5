package models

import (
	"time"
)

// Player is the server-authoritative record for one participant in a
// room. All mutation happens under the owning room's lock, through
// validated transactions.
type Player struct {
	ID           string
	Name         string
	CityName     string
	Color        string
	Balance      float64
	Actions      int
	Ready        bool
	Connected    bool
	VotingPoints int

	// CategoryVotes counts this player's live votes per budget category.
	CategoryVotes map[BudgetCategory]int

	// LVTVotes is the signed net of land-value-tax rate votes cast during
	// the current phase. LockedLVTVotes is the pre-game net, frozen at
	// game start and no longer refundable.
	LVTVotes       int
	LockedLVTVotes int

	JoinedAt time.Time
}

// PlayerView is the wire representation of a player, shared with every
// client in the room.
type PlayerView struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	CityName      string                 `json:"city_name"`
	Color         string                 `json:"color"`
	Balance       float64                `json:"balance"`
	Actions       int                    `json:"actions"`
	Ready         bool                   `json:"ready"`
	Connected     bool                   `json:"connected"`
	VotingPoints  int                    `json:"voting_points"`
	IsHost        bool                   `json:"is_host"`
	CategoryVotes map[BudgetCategory]int `json:"category_votes"`
	LVTVotes      int                    `json:"lvt_votes"`
}

// View renders the wire representation. isHost is supplied by the room,
// which owns host assignment.
func (p *Player) View(isHost bool) PlayerView {
	votes := make(map[BudgetCategory]int, len(p.CategoryVotes))
	for c, n := range p.CategoryVotes {
		votes[c] = n
	}
	return PlayerView{
		ID:            p.ID,
		Name:          p.Name,
		CityName:      p.CityName,
		Color:         p.Color,
		Balance:       p.Balance,
		Actions:       p.Actions,
		Ready:         p.Ready,
		Connected:     p.Connected,
		VotingPoints:  p.VotingPoints,
		IsHost:        isHost,
		CategoryVotes: votes,
		LVTVotes:      p.LVTVotes,
	}
}
