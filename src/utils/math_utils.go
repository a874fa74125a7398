package utils

import "math"

// Clamp limits val to the [lo, hi] range.
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Clamp01 limits val to the [0, 1] range.
func Clamp01(val float64) float64 {
	return Clamp(val, 0, 1)
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
