package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Peak returns the largest absolute sample value
func Peak(data []float64) float64 {
	peak := 0.0
	for _, val := range data {
		peak = math.Max(peak, math.Abs(val))
	}
	return peak
}

// MinMax returns the smallest and largest values, or zeros for empty data
func MinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return floats.Min(data), floats.Max(data)
}

// AllFinite reports whether no value is NaN or infinite
func AllFinite(data []float64) bool {
	for _, val := range data {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// AmplitudeToDB converts an amplitude to decibels with floor as the
// smallest amplitude considered, so silence maps to a finite value.
func AmplitudeToDB(amplitude, floor float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, floor))
}
