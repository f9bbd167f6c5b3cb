// Package mathx holds the small scalar helpers shared by the simulation
// subsystems.
package mathx

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Lerp interpolates from a to b by t, with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp01(t)
}

// InverseLerp returns where v sits between a and b, clamped to [0, 1].
// A degenerate range returns 0.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// RoundInt rounds half away from zero.
func RoundInt(v float64) int {
	return int(math.Round(v))
}
