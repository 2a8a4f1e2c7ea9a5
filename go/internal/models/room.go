package models

import (
	"time"
)

// RoomPhase defines the lifecycle phase of a room. Transitions are
// monotonic: a room never moves backward through phases.
type RoomPhase string

const (
	RoomPhaseWaiting    RoomPhase = "WAITING"
	RoomPhaseStarting   RoomPhase = "STARTING"
	RoomPhaseInProgress RoomPhase = "IN_PROGRESS"
	RoomPhaseCompleted  RoomPhase = "COMPLETED"
)

// rank orders phases for the monotonic-transition check.
func (p RoomPhase) rank() int {
	switch p {
	case RoomPhaseWaiting:
		return 0
	case RoomPhaseStarting:
		return 1
	case RoomPhaseInProgress:
		return 2
	case RoomPhaseCompleted:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving to next is a legal forward
// transition.
func (p RoomPhase) CanTransitionTo(next RoomPhase) bool {
	return next.rank() == p.rank()+1
}

// RoomInfo is the lobby-facing summary of a room.
type RoomInfo struct {
	ID          string    `json:"id"`
	Phase       RoomPhase `json:"phase"`
	PlayerCount int       `json:"player_count"`
	MinPlayers  int       `json:"min_players"`
	MaxPlayers  int       `json:"max_players"`
	IsPublic    bool      `json:"is_public"`
	HostID      string    `json:"host_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomSnapshot is the full authoritative room state pushed to a
// reconnecting client.
type RoomSnapshot struct {
	RoomInfo
	GameDay  float64          `json:"game_day"`
	Players  []PlayerView     `json:"players"`
	Listings []Listing        `json:"listings"`
	Treasury TreasurySnapshot `json:"treasury"`
}
