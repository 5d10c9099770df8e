// Package tick implements the exchange's price fraction rules.
package tick

import "math"

// Size returns the legal price increment for a given price.
func Size(price float64) float64 {
	switch {
	case price < 200:
		return 1
	case price < 500:
		return 2
	case price < 2000:
		return 5
	case price < 5000:
		return 10
	default:
		return 25
	}
}

// Round snaps a price to the nearest multiple of its tick size.
func Round(price float64) float64 {
	t := Size(price)
	return math.Round(price/t) * t
}
