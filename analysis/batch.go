package analysis

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/blas"
	"github.com/ieee0824/lipsync-go/internal/mathutil"
	"github.com/ieee0824/lipsync-go/internal/simd"
	"github.com/ieee0824/lipsync-go/profile"
)

// ScoreBatch scores n standardized frames, laid out row-major in frames
// ([n*Order]), against every template. It returns the winning phoneme of each
// frame and the [n*Phonemes] score matrix, with the same values Score would
// produce frame by frame up to rounding.
//
// L2 and cosine read the frame/template dot products from one matrix product;
// L1 has no such form and is scored row by row.
func ScoreBatch(ctx *Context, frames []float64, n int) ([]int, []float64) {
	order, count := ctx.Order, ctx.Phonemes
	scores := make([]float64, n*count)
	best := make([]int, n)
	if n == 0 {
		return best, scores
	}

	if ctx.Method == profile.MethodL1 {
		for r := 0; r < n; r++ {
			best[r] = Score(ctx, frames[r*order:(r+1)*order], scores[r*count:(r+1)*count])
		}
		return best, scores
	}

	// scores <- frames x templates^T
	blas.Dgemm(false, true, n, count, order,
		1, frames, order,
		ctx.Templates, order,
		0, scores, count)

	inv := 1 / float64(order)
	for r := 0; r < n; r++ {
		z := frames[r*order : (r+1)*order]
		row := scores[r*count : (r+1)*count]
		zz := simd.SumSquares(z)
		for i, dot := range row {
			switch ctx.Method {
			case profile.MethodL2:
				// |z-t|^2 = |z|^2 - 2 z.t + |t|^2
				d := zz - 2*dot + ctx.Norms[i]*ctx.Norms[i]
				if d < 0 {
					d = 0
				}
				row[i] = math.Exp(-mathutil.Ln10 * math.Sqrt(d*inv))
			case profile.MethodCosine:
				row[i] = cosineScore(dot, math.Sqrt(zz), ctx.Norms[i])
			}
		}
		if b := argMax(row); b >= 0 {
			best[r] = b
			if ctx.Normalize {
				normalize(row)
			}
		} else {
			best[r] = restOneHot(ctx, row)
		}
	}
	return best, scores
}

// Confusion counts, for frames labelled with the phoneme at index truth[r],
// how often each phoneme won. The result is [Phonemes][Phonemes], indexed
// by truth then prediction. Frames whose prediction is -1 are not counted.
func Confusion(ctx *Context, truth, predicted []int) [][]int {
	m := make([][]int, ctx.Phonemes)
	for i := range m {
		m[i] = make([]int, ctx.Phonemes)
	}
	for r, t := range truth {
		p := predicted[r]
		if t < 0 || t >= ctx.Phonemes || p < 0 || p >= ctx.Phonemes {
			continue
		}
		m[t][p]++
	}
	return m
}
