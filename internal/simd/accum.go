// Package simd holds the hot-loop kernels of the analysis pipeline.
//
// Reductions accumulate in four independent lanes and fold the lanes in a
// fixed order ((l0+l1)+(l2+l3)) before a scalar tail loop, so a given input
// always produces the same bits regardless of caller.
package simd

import "math"

// Dot returns sum(a[i]*b[i]) over len(a). b must be at least as long as a.
func Dot(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	b = b[:n]
	var l0, l1, l2, l3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		l0 += a[i] * b[i]
		l1 += a[i+1] * b[i+1]
		l2 += a[i+2] * b[i+2]
		l3 += a[i+3] * b[i+3]
	}
	sum := (l0 + l1) + (l2 + l3)
	for ; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// SumSquares returns sum(x[i]^2).
func SumSquares(x []float64) float64 {
	return Dot(x, x)
}

// SumAbsDiff returns sum(|a[i]-b[i]|).
func SumAbsDiff(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	b = b[:n]
	var l0, l1, l2, l3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		l0 += math.Abs(a[i] - b[i])
		l1 += math.Abs(a[i+1] - b[i+1])
		l2 += math.Abs(a[i+2] - b[i+2])
		l3 += math.Abs(a[i+3] - b[i+3])
	}
	sum := (l0 + l1) + (l2 + l3)
	for ; i < n; i++ {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// SumSqDiff returns sum((a[i]-b[i])^2).
func SumSqDiff(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	b = b[:n]
	var l0, l1, l2, l3 float64
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		l0 += d0 * d0
		l1 += d1 * d1
		l2 += d2 * d2
		l3 += d3 * d3
	}
	sum := (l0 + l1) + (l2 + l3)
	for ; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// DotReverse returns sum(taps[j]*x[k-j]) for j in 0..min(len(taps)-1, k).
// It is the inner product of a causal FIR filter evaluated at sample k with
// zero history before x[0].
func DotReverse(taps, x []float64, k int) float64 {
	m := len(taps)
	if k+1 < m {
		m = k + 1
	}
	if m <= 0 {
		return 0
	}
	var l0, l1, l2, l3 float64
	j := 0
	for ; j+4 <= m; j += 4 {
		l0 += taps[j] * x[k-j]
		l1 += taps[j+1] * x[k-j-1]
		l2 += taps[j+2] * x[k-j-2]
		l3 += taps[j+3] * x[k-j-3]
	}
	sum := (l0 + l1) + (l2 + l3)
	for ; j < m; j++ {
		sum += taps[j] * x[k-j]
	}
	return sum
}
