package econ

import (
	"math"
	"sort"

	"github.com/civicgrid/commonwealth/go/internal/models"
)

// Baseline is a stand-in engine used when the server runs without the
// full building simulation. It keeps the numbers simple: a flat
// assessed land value per player, a linear buy-now premium that decays
// toward expiry, and a proportional early-termination fee.
type Baseline struct {
	// AssessedLandValue is the per-player land value LVT is levied on.
	AssessedLandValue float64

	// BuyNowPremium is the premium over the listed buy-now price at
	// creation time; it decays linearly to zero at expiry.
	BuyNowPremium float64

	// EndEarlyFeeRate is the fee charged on the current bid when a
	// seller reneges on a live auction.
	EndEarlyFeeRate float64

	// lvtPaid accumulates per-player tax paid, for the contribution
	// ratio in scores.
	lvtPaid map[string]float64
}

// NewBaseline returns a Baseline with default tuning.
func NewBaseline() *Baseline {
	return &Baseline{
		AssessedLandValue: 10000,
		BuyNowPremium:     0.25,
		EndEarlyFeeRate:   0.20,
		lvtPaid:           make(map[string]float64),
	}
}

// BuyNowPrice returns the listed buy-now price plus a premium that
// decays linearly over the listing's lifetime.
func (b *Baseline) BuyNowPrice(l *models.Listing, day float64) float64 {
	if !l.HasBuyNow() {
		return 0
	}
	life := l.ExpiresAtDay - l.CreatedAtDay
	if life <= 0 {
		return l.BuyNowPrice
	}
	remaining := (l.ExpiresAtDay - day) / life
	if remaining < 0 {
		remaining = 0
	}
	return math.Ceil(l.BuyNowPrice * (1 + b.BuyNowPremium*remaining))
}

// EndEarlyFee charges a fixed fraction of the standing bid.
func (b *Baseline) EndEarlyFee(l *models.Listing, day float64) float64 {
	return math.Ceil(l.CurrentBid * b.EndEarlyFeeRate)
}

// AdvanceDay levies one day of LVT against each player's assessed land
// value.
func (b *Baseline) AdvanceDay(day int, taxRate float64, players []*models.Player) (map[string]float64, error) {
	revenue := make(map[string]float64, len(players))
	for _, p := range players {
		due := b.AssessedLandValue * taxRate / 365
		if due > p.Balance {
			due = p.Balance
		}
		if due <= 0 {
			continue
		}
		p.Balance -= due
		b.lvtPaid[p.ID] += due
		revenue[p.ID] = due
	}
	return revenue, nil
}

// CommonwealthScores ranks players by wealth plus civic contribution.
func (b *Baseline) CommonwealthScores(players []*models.Player) []Score {
	scores := make([]Score, 0, len(players))
	for _, p := range players {
		paid := b.lvtPaid[p.ID]
		total := p.Balance + paid
		ratio := 0.0
		if total > 0 {
			ratio = paid / total
		}
		scores = append(scores, Score{
			PlayerID: p.ID,
			Score:    p.Balance/1000 + paid/100,
			Wealth:   p.Balance,
			LVTRatio: ratio,
		})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}
