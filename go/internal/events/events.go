package events

import (
	"time"
)

// Type identifies a server→client event.
type Type string

const (
	TypePlayerJoined       Type = "PLAYER_JOINED"
	TypePlayerLeft         Type = "PLAYER_LEFT"
	TypeReadyCheckStarted  Type = "READY_CHECK_STARTED"
	TypeGameStarting       Type = "GAME_STARTING"
	TypeCountdownUpdate    Type = "COUNTDOWN_UPDATE"
	TypeGameStarted        Type = "GAME_STARTED"
	TypeDailyProgression   Type = "DAILY_PROGRESSION"
	TypeCommonwealthUpdate Type = "COMMONWEALTH_UPDATE"
	TypeGameOver           Type = "GAME_OVER"
	TypePlayerDisconnected Type = "PLAYER_DISCONNECTED"
	TypePlayerReconnected  Type = "PLAYER_RECONNECTED"
	TypePlayerAutoRemoved  Type = "PLAYER_AUTO_REMOVED"
	TypePlayerQuit         Type = "PLAYER_QUIT"
	TypeReconnected        Type = "RECONNECTED"
	TypeListingUpdated     Type = "LISTING_UPDATED"
	TypeTreasuryUpdated    Type = "TREASURY_UPDATED"
	TypeTransactionResult  Type = "TRANSACTION_RESULT"
)

// Event is the envelope for every server→client message. Data carries
// the type-specific payload and is marshalled once per broadcast.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// New builds an event stamped with the given time.
func New(t Type, now time.Time, data any) Event {
	return Event{Type: t, Timestamp: now, Data: data}
}
