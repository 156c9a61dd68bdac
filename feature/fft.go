package feature

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/mathutil"
	"github.com/ieee0824/lipsync-go/internal/simd"
)

func bitReverse(x, bits int) int {
	var result int
	for i := 0; i < bits; i++ {
		result = (result << 1) | (x & 1)
		x >>= 1
	}
	return result
}

// FFTPlan holds the read-only tables of an iterative radix-2 FFT of one size.
// Uses split real/imaginary layout so a butterfly stage is a contiguous block.
type FFTPlan struct {
	Size   int
	Stages int
	Perm   []int       // bit-reversed destination of each index
	TwRe   [][]float64 // per-stage twiddle real parts, len/2 entries each
	TwIm   [][]float64 // per-stage twiddle imaginary parts
}

// NewFFTPlan precomputes the permutation and twiddle tables for size n.
// n must be a power of two >= 2.
func NewFFTPlan(n int) *FFTPlan {
	stages := mathutil.Log2(n)

	perm := make([]int, n)
	for i := 0; i < n; i++ {
		perm[i] = bitReverse(i, stages)
	}

	twRe := make([][]float64, 0, stages)
	twIm := make([][]float64, 0, stages)
	for size := 2; size <= n; size *= 2 {
		halfSize := size / 2
		re := make([]float64, halfSize)
		im := make([]float64, halfSize)
		for j := 0; j < halfSize; j++ {
			// exp(-2πi·j/size), computed directly per entry rather than by
			// repeated multiplication so error does not build up along the stage.
			ang := -2 * math.Pi * float64(j) / float64(size)
			re[j] = math.Cos(ang)
			im[j] = math.Sin(ang)
		}
		twRe = append(twRe, re)
		twIm = append(twIm, im)
	}

	return &FFTPlan{
		Size:   n,
		Stages: stages,
		Perm:   perm,
		TwRe:   twRe,
		TwIm:   twIm,
	}
}

// Bins returns the number of non-redundant bins of a real-input transform.
func (p *FFTPlan) Bins() int {
	return p.Size/2 + 1
}

// Transform runs the FFT in place on re/im, both of length Size.
func (p *FFTPlan) Transform(re, im []float64) {
	n := p.Size
	for i := 0; i < n; i++ {
		j := p.Perm[i]
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for stage, size := 0, 2; size <= n; stage, size = stage+1, size*2 {
		halfSize := size / 2
		for start := 0; start < n; start += size {
			simd.ButterflyBlock(
				re[start:start+halfSize],
				im[start:start+halfSize],
				re[start+halfSize:start+size],
				im[start+halfSize:start+size],
				p.TwRe[stage],
				p.TwIm[stage])
		}
	}
}

// PowerSpectrum transforms the real frame held in re (im is overwritten) and
// writes |X[k]|^2 for the first Size/2+1 bins into power.
func (p *FFTPlan) PowerSpectrum(re, im, power []float64) {
	clear(im)
	p.Transform(re, im)

	nBins := p.Bins()
	for i := 0; i < nBins; i++ {
		r := re[i]
		m := im[i]
		power[i] = r*r + m*m
	}
}
