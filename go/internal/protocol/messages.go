package protocol

import (
	"encoding/json"
)

// Transaction type tags accepted from clients.
const (
	TypeCreateRoom    = "CREATE_ROOM"
	TypeJoinRoom      = "JOIN_ROOM"
	TypeQuickJoin     = "QUICK_JOIN"
	TypeLeaveRoom     = "LEAVE_ROOM"
	TypeQuitGame      = "QUIT_GAME"
	TypeSetReady      = "SET_READY"
	TypeCreateListing = "ACTION_CREATE_LISTING"
	TypeBid           = "ACTION_BID"
	TypeBuyNow        = "ACTION_BUY_NOW"
	TypeCancelListing = "ACTION_CANCEL_LISTING"
	TypeEndEarly      = "ACTION_END_EARLY"
	TypeGovernance    = "GOVERNANCE_VOTE"
)

// Envelope is the uniform client→server message shape. The payload
// fields of the concrete transaction ride alongside the tag and are
// decoded a second time into the typed request.
type Envelope struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

// CreateRoomRequest creates a room explicitly.
type CreateRoomRequest struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	IsPublic   bool   `json:"isPublic"`
}

// JoinRoomRequest joins a specific room by id.
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// QuickJoinRequest asks matchmaking for a table.
type QuickJoinRequest struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

// SetReadyRequest toggles the ready flag during the waiting phase.
type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// CreateListingRequest opens an auction over action units.
type CreateListingRequest struct {
	Quantity     int     `json:"quantity"`
	ReservePrice float64 `json:"reservePrice"`
	BuyNowPrice  float64 `json:"buyNowPrice"`
}

// BidRequest places a bid.
type BidRequest struct {
	ListingID int64   `json:"listingId"`
	Amount    float64 `json:"amount"`
}

// ListingRequest addresses an existing listing (buy-now, cancel,
// end-early).
type ListingRequest struct {
	ListingID int64 `json:"listingId"`
}

// Governance vote actions.
const (
	VoteActionAdd    = "add"
	VoteActionRemove = "remove"
)

// Pseudo-categories routing LVT rate votes through the same message.
const (
	PseudoCategoryLVTIncrease = "lvt_increase"
	PseudoCategoryLVTDecrease = "lvt_decrease"
)

// GovernanceVoteRequest adds or removes a category vote, or moves the
// LVT rate via the pseudo-categories.
type GovernanceVoteRequest struct {
	Category string `json:"category"`
	Action   string `json:"action"`
}

func decode[T any](raw []byte) (*T, error) {
	var req T
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
