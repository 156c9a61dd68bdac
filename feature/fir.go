package feature

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/simd"
)

// LowPassTaps designs a Hamming-windowed sinc low-pass filter for a signal
// sampled at sampleRate. The transition band ends at cutoffHz and is
// transitionHz wide. The returned length is always odd so the filter has a
// center tap; taps are scaled to unity gain at DC.
//
// When cutoffHz is at or above Nyquist there is nothing to remove and the
// identity filter {1} is returned.
func LowPassTaps(sampleRate int, cutoffHz, transitionHz float64) []float64 {
	rate := float64(sampleRate)
	if cutoffHz >= rate/2 || transitionHz <= 0 {
		return []float64{1}
	}
	fc := (cutoffHz - transitionHz) / rate
	if fc <= 0 {
		fc = cutoffHz / rate / 2
	}
	bw := transitionHz / rate

	n := int(math.Round(3.1 / bw))
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}

	taps := make([]float64, n)
	center := (n - 1) / 2
	window := NewHammingWindow(n)
	sum := 0.0
	for i := range taps {
		x := float64(i - center)
		var h float64
		if x == 0 {
			h = 2 * fc
		} else {
			ang := 2 * math.Pi * fc * x
			h = 2 * fc * math.Sin(ang) / ang
		}
		taps[i] = h * window[i]
		sum += taps[i]
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// FilterFIR convolves src with taps into dst (same length as src).
// The filter is causal; samples before src[0] are treated as zero.
func FilterFIR(taps, src, dst []float64) {
	if len(taps) == 1 {
		g := taps[0]
		for i, v := range src {
			dst[i] = v * g
		}
		return
	}
	for k := range src {
		dst[k] = simd.DotReverse(taps, src, k)
	}
}
