package models

import "math"

// The in-game calendar: a 365-day year split into 12 equal months.
// Listings expire and the treasury distributes on month boundaries.
const (
	DaysPerYear   = 365
	MonthsPerYear = 12
	DaysPerMonth  = float64(DaysPerYear) / MonthsPerYear
)

// MonthOf returns the zero-based month index containing the given
// in-game day.
func MonthOf(day float64) int {
	return int(math.Floor(day / DaysPerMonth))
}

// EndOfMonth returns the first month boundary strictly after day.
func EndOfMonth(day float64) float64 {
	return float64(MonthOf(day)+1) * DaysPerMonth
}
