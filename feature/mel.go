package feature

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/mathutil"
	"github.com/ieee0824/lipsync-go/internal/simd"
)

// MelPlan stores the triangular mel filterbank as one contiguous run of
// (bin, weight) pairs per band instead of a dense bands x bins matrix.
type MelPlan struct {
	Bands   int
	SpecLen int       // number of spectrum bins the plan reads
	First   []int     // [Bands] first bin of each band (clamped into the spectrum)
	Offset  []int     // [Bands] start of each band inside Bins/Weights
	Count   []int     // [Bands] run length, may be 0
	Bins    []int     // flattened bin indices
	Weights []float64 // flattened weights, parallel to Bins
}

// NewMelPlan builds bands triangular filters spaced evenly on the mel scale
// between 0 Hz and Nyquist, for a spectrum of fftSize/2+1 bins.
// Each triangle is normalized by half its width in Hz.
func NewMelPlan(bands, fftSize, sampleRate int) *MelPlan {
	specLen := fftSize/2 + 1
	nyquist := float64(sampleRate) / 2
	df := float64(sampleRate) / float64(fftSize)
	dMel := hzToMel(nyquist) / float64(bands+1)

	p := &MelPlan{
		Bands:   bands,
		SpecLen: specLen,
		First:   make([]int, bands),
		Offset:  make([]int, bands),
		Count:   make([]int, bands),
	}

	for b := 0; b < bands; b++ {
		fBegin := melToHz(dMel * float64(b))
		fCenter := melToHz(dMel * float64(b+1))
		fEnd := melToHz(dMel * float64(b+2))

		iBegin := int(math.Ceil(fBegin / df))
		iEnd := int(math.Floor(fEnd / df))
		if iEnd > specLen-1 {
			iEnd = specLen - 1
		}

		p.First[b] = min(iBegin, specLen-1)
		p.Offset[b] = len(p.Bins)

		width := (fEnd - fBegin) * 0.5
		if width <= 0 {
			continue
		}
		for i := iBegin; i <= iEnd; i++ {
			f := df * float64(i)
			var a float64
			if f < fCenter {
				if d := fCenter - fBegin; d > 0 {
					a = (f - fBegin) / d
				}
			} else {
				if d := fEnd - fCenter; d > 0 {
					a = (fEnd - f) / d
				}
			}
			if a <= 0 {
				continue
			}
			if len(p.Bins) == p.Offset[b] {
				p.First[b] = i
			}
			p.Bins = append(p.Bins, i)
			p.Weights = append(p.Weights, a/width)
		}
		p.Count[b] = len(p.Bins) - p.Offset[b]
	}
	return p
}

// Apply writes the energy of each band into dst, floored at floor.
func (p *MelPlan) Apply(power, dst []float64, floor float64) {
	for b := 0; b < p.Bands; b++ {
		off := p.Offset[b]
		cnt := p.Count[b]
		sum := 0.0
		if cnt > 0 {
			// Runs are contiguous, so the band is a dot product against a
			// slice of the spectrum starting at its first bin.
			first := p.Bins[off]
			sum = simd.Dot(p.Weights[off:off+cnt], power[first:first+cnt])
		}
		if !(sum > floor) {
			sum = floor
		}
		dst[b] = sum
	}
}

// LogPower converts band powers to decibels in place: 10/ln10 · ln(x).
func LogPower(x []float64) {
	for i, v := range x {
		x[i] = mathutil.DBPerNeper * math.Log(v)
	}
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}
