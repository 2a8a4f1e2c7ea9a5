package room

import (
	"fmt"
	"math/rand"
)

// palette is the fixed set of player colors, assigned in order with
// conflicts resolved against colors already taken in the room.
var palette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#46f0f0", // cyan
	"#f032e6", // magenta
	"#ffe119", // yellow
}

// AssignColor picks the first free palette color, falling back to a
// random hex color if the palette is exhausted.
func AssignColor(taken map[string]bool) string {
	for _, c := range palette {
		if !taken[c] {
			return c
		}
	}
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}

var cityNames = []string{
	"Fairhaven", "Georgeton", "Landmark", "Provident",
	"Single Tax Flats", "Commonside", "Rentfree", "Vacancy",
}

// DefaultCityName picks a starter city name for players who join
// without one.
func DefaultCityName() string {
	return cityNames[rand.Intn(len(cityNames))]
}
