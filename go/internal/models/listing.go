package models

import (
	"time"
)

// ListingStatus defines the status of a marketplace listing. Once a
// listing leaves ACTIVE it never re-enters it.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "ACTIVE"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusCancelled ListingStatus = "CANCELLED"
	ListingStatusExpired   ListingStatus = "EXPIRED"
)

// Terminal reports whether the status is a terminal state.
func (s ListingStatus) Terminal() bool {
	return s != ListingStatusActive
}

// Listing is one auction over action units. Quantity is held in escrow
// by the listing from creation until settlement or return; the current
// bid amount is held in escrow from the high bidder's balance.
type Listing struct {
	ID              int64         `json:"id"`
	SellerID        string        `json:"seller_id"`
	Quantity        int           `json:"quantity"`
	ReservePrice    float64       `json:"reserve_price"`
	BuyNowPrice     float64       `json:"buy_now_price,omitempty"`
	CurrentBid      float64       `json:"current_bid"`
	CurrentBidderID string        `json:"current_bidder_id,omitempty"`
	Status          ListingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`

	// CreatedAtDay and ExpiresAtDay are in-game days; a listing expires
	// at the end of the in-game month it was created in.
	CreatedAtDay float64 `json:"created_at_day"`
	ExpiresAtDay float64 `json:"expires_at_day"`
}

// HasBuyNow reports whether the seller set a buy-now price.
func (l *Listing) HasBuyNow() bool {
	return l.BuyNowPrice > 0
}
