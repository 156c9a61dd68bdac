package mathutil

import "math"

// Ln10 is ln(10).
const Ln10 = math.Ln10

// DBPerNeper converts a natural log of power into decibels: 10/ln(10).
const DBPerNeper = 10 / math.Ln10

// NextPow2 returns the smallest power of two >= n, and 1 for n <= 1.
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Log2 returns log2(n) for a power of two n.
func Log2(n int) int {
	bits := 0
	for v := n; v > 1; v >>= 1 {
		bits++
	}
	return bits
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// RMS returns the root mean square of x, 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
