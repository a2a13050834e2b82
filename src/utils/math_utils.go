package utils

import "math"

// RoundFloat rounds a float64 to a specified number of decimal places.
// Monetary amounts stay unrounded internally; this is for display and
// export surfaces only.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
