// Package econ is the seam to the building/resource simulation. The
// room core treats scoring, pricing curves and daily progression as
// opaque functions of room state; the concrete formulas live in the
// economic engine and are injected so the core's escrow, settlement
// and lifecycle logic stays testable against any pricing policy.
package econ

import (
	"github.com/civicgrid/commonwealth/go/internal/models"
)

// Score is one ranked commonwealth-score entry.
type Score struct {
	PlayerID string
	Score    float64
	Wealth   float64
	LVTRatio float64
}

// Pricer computes marketplace pricing curves. Both functions are pure
// in listing state and the current in-game day.
type Pricer interface {
	// BuyNowPrice returns the price charged for an immediate purchase
	// of the listing at the given in-game day.
	BuyNowPrice(l *models.Listing, day float64) float64

	// EndEarlyFee returns the penalty charged to a seller who ends or
	// cancels a listing that already carries a bid.
	EndEarlyFee(l *models.Listing, day float64) float64
}

// Engine is the full collaborator surface the room core depends on.
type Engine interface {
	Pricer

	// CommonwealthScores ranks players best-first.
	CommonwealthScores(players []*models.Player) []Score

	// AdvanceDay runs daily building/population progression for one
	// in-game day and returns the land-value-tax revenue collected,
	// per player, at the given rate.
	AdvanceDay(day int, taxRate float64, players []*models.Player) (map[string]float64, error)
}
