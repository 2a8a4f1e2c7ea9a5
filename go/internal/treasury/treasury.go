// Package treasury implements the vote-weighted budget allocator. Tax
// revenue accumulates continuously and is distributed into category
// allocations at each month rollover, proportional to the vote
// distribution at that moment. Like the market ledger, the treasury is
// serialized by its owning room and performs each operation as a
// single validate-then-mutate step.
package treasury

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/civicgrid/commonwealth/go/internal/gamerr"
	"github.com/civicgrid/commonwealth/go/internal/models"
)

// LVT rate moves in fixed steps, clamped to [0,1].
const RateStep = 0.01

// Treasury is one room's governance state. Not safe for concurrent
// use; the owning room serializes access.
type Treasury struct {
	taxRate          float64
	balance          float64
	monthlyCollected float64
	totalDistributed float64

	// pool is distributed-but-unspent money, reallocated across
	// categories whenever the vote distribution changes.
	pool        float64
	allocations map[models.BudgetCategory]float64
	votes       map[models.BudgetCategory]int
	totalVotes  int

	started bool
}

// New creates a treasury with the given initial LVT rate.
func New(initialRate float64) *Treasury {
	return &Treasury{
		taxRate:     clampRate(initialRate),
		allocations: make(map[models.BudgetCategory]float64),
		votes:       make(map[models.BudgetCategory]int),
	}
}

func clampRate(r float64) float64 {
	return math.Min(1, math.Max(0, r))
}

// TaxRate returns the current land-value-tax rate.
func (t *Treasury) TaxRate() float64 {
	return t.taxRate
}

// AddFunds accrues revenue pending the next monthly distribution.
func (t *Treasury) AddFunds(amount float64) {
	if amount <= 0 {
		return
	}
	t.balance += amount
	t.monthlyCollected += amount
}

// DistributeMonthly moves the accumulated balance into category
// allocations proportional to the current vote distribution. With no
// votes cast the balance stays in the treasury rather than being
// allocated to a default.
func (t *Treasury) DistributeMonthly() {
	t.monthlyCollected = 0
	if t.totalVotes == 0 || t.balance <= 0 {
		return
	}
	t.totalDistributed += t.balance
	t.pool += t.balance
	t.balance = 0
	t.reallocate()
}

// reallocate recomputes the live allocation preview from the current
// vote shares over the distributed-but-unspent pool.
func (t *Treasury) reallocate() {
	for c := range t.allocations {
		delete(t.allocations, c)
	}
	if t.totalVotes == 0 {
		return
	}
	for c, n := range t.votes {
		if n > 0 {
			t.allocations[c] = t.pool * float64(n) / float64(t.totalVotes)
		}
	}
}

// AddCategoryVote spends one of the player's voting points on a
// category and refreshes the allocation preview.
func (t *Treasury) AddCategoryVote(p *models.Player, c models.BudgetCategory) error {
	if !models.ValidCategory(c) {
		return gamerr.InvalidArgument("unknown budget category %q", c)
	}
	if p.VotingPoints < 1 {
		return gamerr.InsufficientPoints("no voting points remaining")
	}
	p.VotingPoints--
	p.CategoryVotes[c]++
	t.votes[c]++
	t.totalVotes++
	t.reallocate()
	return nil
}

// RemoveCategoryVote is the exact inverse of AddCategoryVote. It only
// succeeds if the player has a live vote in that category to retract.
func (t *Treasury) RemoveCategoryVote(p *models.Player, c models.BudgetCategory) error {
	if !models.ValidCategory(c) {
		return gamerr.InvalidArgument("unknown budget category %q", c)
	}
	if p.CategoryVotes[c] < 1 {
		return gamerr.Conflict("no %s vote to retract", c)
	}
	p.VotingPoints++
	p.CategoryVotes[c]--
	if p.CategoryVotes[c] == 0 {
		delete(p.CategoryVotes, c)
	}
	t.votes[c]--
	if t.votes[c] == 0 {
		delete(t.votes, c)
	}
	t.totalVotes--
	t.reallocate()
	return nil
}

// IncreaseLVTRate votes the tax rate one step up. Moving away from a
// neutral position spends a point; unwinding a prior decrease refunds
// one.
func (t *Treasury) IncreaseLVTRate(p *models.Player) error {
	if t.taxRate+RateStep > 1 {
		return gamerr.InvalidArgument("tax rate already at maximum")
	}
	if p.LVTVotes < 0 {
		p.VotingPoints++
	} else {
		if p.VotingPoints < 1 {
			return gamerr.InsufficientPoints("no voting points remaining")
		}
		p.VotingPoints--
	}
	p.LVTVotes++
	t.taxRate = clampRate(t.taxRate + RateStep)
	return nil
}

// DecreaseLVTRate votes the tax rate one step down, the mirror of
// IncreaseLVTRate: retracting a prior increase refunds the point, and
// the retraction path requires a registered increase to unwind.
func (t *Treasury) DecreaseLVTRate(p *models.Player) error {
	if t.taxRate-RateStep < 0 {
		return gamerr.InvalidArgument("tax rate already at minimum")
	}
	if p.LVTVotes > 0 {
		p.VotingPoints++
	} else {
		if p.VotingPoints < 1 {
			return gamerr.InsufficientPoints("no voting points remaining")
		}
		p.VotingPoints--
	}
	p.LVTVotes--
	t.taxRate = clampRate(t.taxRate - RateStep)
	return nil
}

// StartGameplay locks in the pre-game configuration: each player's
// pre-game LVT position is frozen as a non-refundable baseline, all
// category votes are cleared, and voting points reset to the smaller
// in-game budget. The tax rate itself carries over unchanged.
func (t *Treasury) StartGameplay(players []*models.Player, gameplayPoints int) {
	if t.started {
		return
	}
	t.started = true
	for _, p := range players {
		p.LockedLVTVotes += p.LVTVotes
		p.LVTVotes = 0
		p.CategoryVotes = make(map[models.BudgetCategory]int)
		p.VotingPoints = gameplayPoints
	}
	t.votes = make(map[models.BudgetCategory]int)
	t.totalVotes = 0
	t.reallocate()
	log.Debug().Float64("tax_rate", t.taxRate).Msg("pre-game governance locked in")
}

// SpendFromCategory debits an allocation, funding the engine's
// cost-reduction and UBI effects.
func (t *Treasury) SpendFromCategory(c models.BudgetCategory, amount float64) error {
	if !models.ValidCategory(c) {
		return gamerr.InvalidArgument("unknown budget category %q", c)
	}
	if amount <= 0 {
		return gamerr.InvalidArgument("amount must be positive")
	}
	if t.allocations[c] < amount {
		return gamerr.InsufficientFunds("category %s holds %.2f, need %.2f", c, t.allocations[c], amount)
	}
	t.allocations[c] -= amount
	t.pool -= amount
	return nil
}

// Snapshot renders the wire representation.
func (t *Treasury) Snapshot() models.TreasurySnapshot {
	alloc := make(map[models.BudgetCategory]float64, len(t.allocations))
	for c, v := range t.allocations {
		alloc[c] = v
	}
	votes := make(map[models.BudgetCategory]int, len(t.votes))
	for c, n := range t.votes {
		votes[c] = n
	}
	return models.TreasurySnapshot{
		TaxRate:          t.taxRate,
		Balance:          t.balance,
		MonthlyCollected: t.monthlyCollected,
		TotalDistributed: t.totalDistributed,
		Allocations:      alloc,
		VoteAllocations:  votes,
	}
}
