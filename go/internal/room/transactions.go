package room

import (
	"github.com/civicgrid/commonwealth/go/internal/events"
	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/market"
	"github.com/civicgrid/commonwealth/go/internal/models"
	"github.com/civicgrid/commonwealth/go/internal/treasury"
)

// currentDayLocked recomputes game time on demand so marketplace
// validation never trusts a stale tick.
func (r *Room) currentDayLocked() float64 {
	if !r.gameStarted {
		return 0
	}
	elapsed := r.clock.Now().Sub(r.gameStartTime)
	return 1 + elapsed.Seconds()/r.cfg.YearRealDuration.Seconds()*models.DaysPerYear
}

// requireInProgressLocked gates the transactional economy on the
// lifecycle phase.
func (r *Room) requireInProgressLocked(playerID string) error {
	if _, ok := r.players[playerID]; !ok {
		return gamerr.NotFound("player %s not in room", playerID)
	}
	if r.phase != models.RoomPhaseInProgress {
		return gamerr.Conflict("game is not in progress")
	}
	return nil
}

// marketOp runs one gated ledger operation and broadcasts the listing
// delta to the rest of the room on success.
func (r *Room) marketOp(playerID string, op func(day float64) (*market.Result, error)) (*market.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireInProgressLocked(playerID); err != nil {
		return nil, err
	}
	res, err := op(r.currentDayLocked())
	if err != nil {
		return nil, err
	}
	r.broadcastLocked(events.New(events.TypeListingUpdated, r.clock.Now(), events.ListingUpdatedPayload{
		Listing: res.Listing,
	}), playerID)
	return res, nil
}

// CreateListing escrows action units from the seller and opens an
// auction.
func (r *Room) CreateListing(sellerID string, quantity int, reservePrice, buyNowPrice float64) (*market.Result, error) {
	return r.marketOp(sellerID, func(day float64) (*market.Result, error) {
		return r.ledger.CreateListing(sellerID, quantity, reservePrice, buyNowPrice, day)
	})
}

// Bid places a bid on an active listing.
func (r *Room) Bid(listingID int64, bidderID string, amount float64) (*market.Result, error) {
	return r.marketOp(bidderID, func(day float64) (*market.Result, error) {
		return r.ledger.Bid(listingID, bidderID, amount, day)
	})
}

// BuyNow settles a listing immediately at the engine's current price.
func (r *Room) BuyNow(listingID int64, buyerID string) (*market.Result, error) {
	return r.marketOp(buyerID, func(day float64) (*market.Result, error) {
		return r.ledger.BuyNow(listingID, buyerID, day)
	})
}

// CancelListing withdraws a listing, charging the early-termination
// fee when a bid is standing.
func (r *Room) CancelListing(listingID int64, sellerID string) (*market.Result, error) {
	return r.marketOp(sellerID, func(day float64) (*market.Result, error) {
		return r.ledger.Cancel(listingID, sellerID, day)
	})
}

// EndEarly settles a live auction to its current high bidder now.
func (r *Room) EndEarly(listingID int64, sellerID string) (*market.Result, error) {
	return r.marketOp(sellerID, func(day float64) (*market.Result, error) {
		return r.ledger.EndEarly(listingID, sellerID, day)
	})
}

// VoteResult reconciles client state after a governance transaction.
type VoteResult struct {
	Player   models.PlayerView       `json:"player"`
	Treasury models.TreasurySnapshot `json:"treasury"`
}

// governanceOp runs one treasury mutation and broadcasts the treasury
// delta to the rest of the room. Governance is open from the moment a
// player joins: pre-game LVT voting is how the initial rate is set.
func (r *Room) governanceOp(playerID string, op func(p *models.Player, tsy *treasury.Treasury) error) (*VoteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return nil, gamerr.NotFound("player %s not in room", playerID)
	}
	if r.phase == models.RoomPhaseCompleted {
		return nil, gamerr.Conflict("game is over")
	}
	if err := op(p, r.tsy); err != nil {
		return nil, err
	}
	snap := r.tsy.Snapshot()
	r.broadcastLocked(events.New(events.TypeTreasuryUpdated, r.clock.Now(), events.TreasuryUpdatedPayload{
		Treasury: snap,
	}), playerID)
	return &VoteResult{Player: p.View(playerID == r.hostID), Treasury: snap}, nil
}

// AddCategoryVote spends a voting point on a budget category.
func (r *Room) AddCategoryVote(playerID string, c models.BudgetCategory) (*VoteResult, error) {
	return r.governanceOp(playerID, func(p *models.Player, tsy *treasury.Treasury) error {
		return tsy.AddCategoryVote(p, c)
	})
}

// RemoveCategoryVote retracts a previously placed category vote.
func (r *Room) RemoveCategoryVote(playerID string, c models.BudgetCategory) (*VoteResult, error) {
	return r.governanceOp(playerID, func(p *models.Player, tsy *treasury.Treasury) error {
		return tsy.RemoveCategoryVote(p, c)
	})
}

// IncreaseLVTRate votes the land-value-tax rate one step up.
func (r *Room) IncreaseLVTRate(playerID string) (*VoteResult, error) {
	return r.governanceOp(playerID, func(p *models.Player, tsy *treasury.Treasury) error {
		return tsy.IncreaseLVTRate(p)
	})
}

// DecreaseLVTRate votes the land-value-tax rate one step down.
func (r *Room) DecreaseLVTRate(playerID string) (*VoteResult, error) {
	return r.governanceOp(playerID, func(p *models.Player, tsy *treasury.Treasury) error {
		return tsy.DecreaseLVTRate(p)
	})
}

// SpendFromCategory debits a budget allocation on behalf of the
// economic engine's funded effects.
func (r *Room) SpendFromCategory(c models.BudgetCategory, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.tsy.SpendFromCategory(c, amount); err != nil {
		return err
	}
	r.broadcastLocked(events.New(events.TypeTreasuryUpdated, r.clock.Now(), events.TreasuryUpdatedPayload{
		Treasury: r.tsy.Snapshot(),
	}))
	return nil
}
