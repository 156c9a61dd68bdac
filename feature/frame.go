package feature

import "math"

// NewHammingWindow returns the n-point Hamming window.
func NewHammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// downsampleEmphasize decimates src into dst and applies pre-emphasis in the
// same pass. It returns the number of samples written.
//
// An integer ratio keeps every skip-th sample; otherwise the value at each
// fractional position is linearly interpolated between its neighbours.
func downsampleEmphasize(src, dst []float64, d decimation, alpha float64) int {
	n := d.outputLen(len(src))
	if n == 0 {
		return 0
	}
	last := len(src) - 1
	prev := 0.0
	for i := 0; i < n; i++ {
		var x float64
		if d.skip > 0 {
			x = src[i*d.skip]
		} else {
			t := float64(i) * d.step
			i0 := int(t)
			if i0 >= last {
				x = src[last]
			} else {
				frac := t - float64(i0)
				x = src[i0]*(1-frac) + src[i0+1]*frac
			}
		}
		if i == 0 {
			dst[0] = x
		} else {
			dst[i] = x - alpha*prev
		}
		prev = x
	}
	return n
}
