// Package market implements the per-room auction book over action
// units. Every operation is a single validate-then-mutate step under
// the owning room's lock: validation never observes state another
// in-flight request has yet to commit, so two near-simultaneous bids
// cannot both win.
package market

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/econ"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/models"
)

// FeeSink receives early-termination fees. The room wires the
// treasury in here.
type FeeSink interface {
	AddFunds(amount float64)
}

// Ledger is one room's auction book. It is not safe for concurrent
// use; the owning room serializes access.
type Ledger struct {
	players  map[string]*models.Player
	pricing  econ.Pricer
	sink     FeeSink
	listings map[int64]*models.Listing
	order    []int64
	nextID   int64
	now      func() time.Time
}

// NewLedger creates a ledger over the room's player set. The map is
// shared with the room, which owns all locking.
func NewLedger(players map[string]*models.Player, pricing econ.Pricer, sink FeeSink, now func() time.Time) *Ledger {
	return &Ledger{
		players:  players,
		pricing:  pricing,
		sink:     sink,
		listings: make(map[int64]*models.Listing),
		now:      now,
	}
}

// Result carries everything the client needs to reconcile optimistic
// state after a marketplace mutation.
type Result struct {
	Listing  models.Listing     `json:"listing"`
	Balances map[string]float64 `json:"balances"`
	Actions  map[string]int     `json:"actions"`
	Price    float64            `json:"price,omitempty"`
	Fee      float64            `json:"fee,omitempty"`
}

func (led *Ledger) result(l *models.Listing, price, fee float64, ids ...string) *Result {
	r := &Result{
		Listing:  *l,
		Balances: make(map[string]float64),
		Actions:  make(map[string]int),
		Price:    price,
		Fee:      fee,
	}
	for _, id := range ids {
		if p, ok := led.players[id]; ok {
			r.Balances[id] = p.Balance
			r.Actions[id] = p.Actions
		}
	}
	return r
}

// MinimumBid returns the smallest acceptable bid for a listing: the
// reserve price for a fresh listing, otherwise a 10% raise rounded up,
// never below the reserve.
func MinimumBid(l *models.Listing) float64 {
	if l.CurrentBid <= 0 {
		return l.ReservePrice
	}
	return math.Max(l.ReservePrice, math.Ceil(l.CurrentBid*1.1))
}

// CreateListing escrows quantity action units from the seller and
// opens an auction expiring at the end of the current in-game month.
func (led *Ledger) CreateListing(sellerID string, quantity int, reservePrice, buyNowPrice, day float64) (*Result, error) {
	seller, ok := led.players[sellerID]
	if !ok {
		return nil, gamerr.NotFound("unknown player %s", sellerID)
	}
	if quantity < 1 {
		return nil, gamerr.InvalidArgument("quantity must be at least 1")
	}
	if reservePrice <= 0 {
		return nil, gamerr.InvalidArgument("reserve price must be positive")
	}
	if buyNowPrice != 0 && buyNowPrice <= reservePrice {
		return nil, gamerr.InvalidArgument("buy-now price must exceed reserve price")
	}
	if seller.Actions < quantity {
		return nil, gamerr.InsufficientFunds("need %d actions, have %d", quantity, seller.Actions)
	}

	seller.Actions -= quantity
	led.nextID++
	l := &models.Listing{
		ID:           led.nextID,
		SellerID:     sellerID,
		Quantity:     quantity,
		ReservePrice: reservePrice,
		BuyNowPrice:  buyNowPrice,
		Status:       models.ListingStatusActive,
		CreatedAt:    led.now(),
		CreatedAtDay: day,
		ExpiresAtDay: models.EndOfMonth(day),
	}
	led.listings[l.ID] = l
	led.order = append(led.order, l.ID)
	return led.result(l, 0, 0, sellerID), nil
}

// Bid places amount in escrow for the bidder and releases any escrow
// held for the previous high bidder.
func (led *Ledger) Bid(listingID int64, bidderID string, amount, day float64) (*Result, error) {
	l, ok := led.listings[listingID]
	if !ok {
		return nil, gamerr.NotFound("unknown listing %d", listingID)
	}
	bidder, ok := led.players[bidderID]
	if !ok {
		return nil, gamerr.NotFound("unknown player %s", bidderID)
	}
	if l.Status != models.ListingStatusActive {
		return nil, gamerr.Conflict("listing %d is %s", listingID, l.Status)
	}
	if day >= l.ExpiresAtDay {
		return nil, gamerr.Conflict("listing %d has expired", listingID)
	}
	if bidderID == l.SellerID {
		return nil, gamerr.Conflict("seller cannot bid on own listing")
	}
	if min := MinimumBid(l); amount < min {
		return nil, gamerr.InvalidArgument("bid %.2f below minimum %.2f", amount, min)
	}
	if bidder.Balance < amount {
		return nil, gamerr.InsufficientFunds("bid %.2f exceeds balance %.2f", amount, bidder.Balance)
	}

	prevID := led.releaseBidEscrow(l)
	bidder.Balance -= amount
	l.CurrentBid = amount
	l.CurrentBidderID = bidderID
	if prevID != "" {
		return led.result(l, 0, 0, bidderID, prevID), nil
	}
	return led.result(l, 0, 0, bidderID), nil
}

// BuyNow settles the listing immediately at the engine's current
// buy-now price.
func (led *Ledger) BuyNow(listingID int64, buyerID string, day float64) (*Result, error) {
	l, ok := led.listings[listingID]
	if !ok {
		return nil, gamerr.NotFound("unknown listing %d", listingID)
	}
	buyer, ok := led.players[buyerID]
	if !ok {
		return nil, gamerr.NotFound("unknown player %s", buyerID)
	}
	if l.Status != models.ListingStatusActive {
		return nil, gamerr.Conflict("listing %d is %s", listingID, l.Status)
	}
	if !l.HasBuyNow() {
		return nil, gamerr.Conflict("listing %d has no buy-now price", listingID)
	}
	if buyerID == l.SellerID {
		return nil, gamerr.Conflict("seller cannot buy own listing")
	}
	price := led.pricing.BuyNowPrice(l, day)
	if buyer.Balance < price {
		return nil, gamerr.InsufficientFunds("buy-now price %.2f exceeds balance %.2f", price, buyer.Balance)
	}

	prevID := led.releaseBidEscrow(l)
	buyer.Balance -= price
	led.creditFunds(l.SellerID, price)
	buyer.Actions += l.Quantity
	l.Status = models.ListingStatusSold
	return led.result(l, price, 0, buyerID, l.SellerID, prevID), nil
}

// Cancel withdraws an active listing. A listing with no bids cancels
// free of charge; reneging on a live auction costs the engine's
// early-termination fee, paid into the fee sink.
func (led *Ledger) Cancel(listingID int64, sellerID string, day float64) (*Result, error) {
	l, ok := led.listings[listingID]
	if !ok {
		return nil, gamerr.NotFound("unknown listing %d", listingID)
	}
	seller, ok := led.players[sellerID]
	if !ok {
		return nil, gamerr.NotFound("unknown player %s", sellerID)
	}
	if l.SellerID != sellerID {
		return nil, gamerr.Conflict("listing %d is not owned by %s", listingID, sellerID)
	}
	if l.Status != models.ListingStatusActive {
		return nil, gamerr.Conflict("listing %d is %s", listingID, l.Status)
	}

	if l.CurrentBid <= 0 {
		seller.Actions += l.Quantity
		l.Status = models.ListingStatusCancelled
		return led.result(l, 0, 0, sellerID), nil
	}

	fee := led.pricing.EndEarlyFee(l, day)
	if seller.Balance < fee {
		return nil, gamerr.InsufficientFunds("cancellation fee %.2f exceeds balance %.2f", fee, seller.Balance)
	}
	prevID := led.releaseBidEscrow(l)
	seller.Actions += l.Quantity
	seller.Balance -= fee
	led.sink.AddFunds(fee)
	l.Status = models.ListingStatusCancelled
	return led.result(l, 0, fee, sellerID, prevID), nil
}

// EndEarly settles a live auction to the current high bidder at the
// standing bid, minus the early-termination fee, which goes to the
// fee sink.
func (led *Ledger) EndEarly(listingID int64, sellerID string, day float64) (*Result, error) {
	l, ok := led.listings[listingID]
	if !ok {
		return nil, gamerr.NotFound("unknown listing %d", listingID)
	}
	if _, ok := led.players[sellerID]; !ok {
		return nil, gamerr.NotFound("unknown player %s", sellerID)
	}
	if l.SellerID != sellerID {
		return nil, gamerr.Conflict("listing %d is not owned by %s", listingID, sellerID)
	}
	if l.Status != models.ListingStatusActive {
		return nil, gamerr.Conflict("listing %d is %s", listingID, l.Status)
	}
	if l.CurrentBid <= 0 {
		return nil, gamerr.Conflict("listing %d has no bids to settle", listingID)
	}

	fee := led.pricing.EndEarlyFee(l, day)
	led.settle(l, l.CurrentBid-fee)
	led.sink.AddFunds(fee)
	return led.result(l, l.CurrentBid, fee, sellerID, l.CurrentBidderID), nil
}

// ExpireSweep closes every active listing past its expiry day: with a
// standing bid it settles to the high bidder, otherwise the escrowed
// quantity returns to the seller. Called from the room clock tick.
func (led *Ledger) ExpireSweep(day float64) []Result {
	var closed []Result
	for _, id := range led.order {
		l := led.listings[id]
		if l.Status != models.ListingStatusActive || day < l.ExpiresAtDay {
			continue
		}
		if l.CurrentBid > 0 {
			led.settle(l, l.CurrentBid)
			closed = append(closed, *led.result(l, l.CurrentBid, 0, l.SellerID, l.CurrentBidderID))
		} else {
			led.creditActions(l.SellerID, l.Quantity)
			l.Status = models.ListingStatusExpired
			closed = append(closed, *led.result(l, 0, 0, l.SellerID))
		}
	}
	return closed
}

// ReleasePlayer resolves a permanently removed player's open
// positions: their listings cancel without fee. Escrow already placed
// on other listings stands; settlement pays the seller as usual.
func (led *Ledger) ReleasePlayer(playerID string) {
	for _, id := range led.order {
		l := led.listings[id]
		if l.Status != models.ListingStatusActive || l.SellerID != playerID {
			continue
		}
		led.releaseBidEscrow(l)
		l.Status = models.ListingStatusCancelled
		log.Debug().Int64("listing_id", l.ID).Str("seller_id", playerID).Msg("listing cancelled, seller removed")
	}
}

// Get looks up a listing snapshot.
func (led *Ledger) Get(id int64) (models.Listing, bool) {
	l, ok := led.listings[id]
	if !ok {
		return models.Listing{}, false
	}
	return *l, true
}

// Active returns snapshots of all active listings in creation order.
func (led *Ledger) Active() []models.Listing {
	var out []models.Listing
	for _, id := range led.order {
		if l := led.listings[id]; l.Status == models.ListingStatusActive {
			out = append(out, *l)
		}
	}
	return out
}

// settle transfers the quantity to the high bidder (whose funds are
// already in escrow) and the proceeds to the seller.
func (led *Ledger) settle(l *models.Listing, proceeds float64) {
	led.creditFunds(l.SellerID, proceeds)
	led.creditActions(l.CurrentBidderID, l.Quantity)
	l.Status = models.ListingStatusSold
}

// releaseBidEscrow refunds the current high bidder, if any, and
// returns their id.
func (led *Ledger) releaseBidEscrow(l *models.Listing) string {
	if l.CurrentBidderID == "" {
		return ""
	}
	id := l.CurrentBidderID
	led.creditFunds(id, l.CurrentBid)
	return id
}

// creditFunds adds funds to a player if they are still in the room; money
// owed to a removed player is dropped.
func (led *Ledger) creditFunds(playerID string, amount float64) {
	if p, ok := led.players[playerID]; ok {
		p.Balance += amount
	} else {
		log.Debug().Str("player_id", playerID).Float64("amount", amount).Msg("dropping credit to removed player")
	}
}

// creditActions adds action units to a player if they are still in the room.
func (led *Ledger) creditActions(playerID string, quantity int) {
	if p, ok := led.players[playerID]; ok {
		p.Actions += quantity
	}
}
