package analysis

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/mathutil"
	"github.com/ieee0824/lipsync-go/internal/simd"
	"github.com/ieee0824/lipsync-go/profile"
)

// Score compares the standardized frame z with every template, writes one
// similarity per phoneme into scores and returns the winning index.
//
// Similarities lie in [0, 1]. When no score is finite and positive the
// scores become a one-hot vector at the rest index, which is returned.
func Score(ctx *Context, z, scores []float64) int {
	scores = scores[:ctx.Phonemes]
	inv := 1 / float64(ctx.Order)

	var zNorm float64
	if ctx.Method == profile.MethodCosine {
		zNorm = math.Sqrt(simd.SumSquares(z))
	}

	for i := range scores {
		t := ctx.Template(i)
		var s float64
		switch ctx.Method {
		case profile.MethodL1:
			s = math.Exp(-mathutil.Ln10 * simd.SumAbsDiff(z, t) * inv)
		case profile.MethodL2:
			s = math.Exp(-mathutil.Ln10 * math.Sqrt(simd.SumSqDiff(z, t)*inv))
		case profile.MethodCosine:
			s = cosineScore(simd.Dot(z, t), zNorm, ctx.Norms[i])
		}
		scores[i] = s
	}

	best := argMax(scores)
	if best < 0 {
		return restOneHot(ctx, scores)
	}
	if ctx.Normalize {
		normalize(scores)
	}
	return best
}

// cosineScore maps a cosine similarity to clamp(cos, 0, 1)^16.
func cosineScore(dot, na, nb float64) float64 {
	den := na * nb
	if !(den > 0) {
		return 0
	}
	c := mathutil.Clamp(dot/den, 0, 1)
	c *= c // ^2
	c *= c // ^4
	c *= c // ^8
	c *= c // ^16
	return c
}

// argMax returns the index of the largest finite positive score, or -1.
func argMax(scores []float64) int {
	best := -1
	bestVal := 0.0
	for i, s := range scores {
		if mathutil.IsFinite(s) && s > bestVal {
			best, bestVal = i, s
		}
	}
	return best
}

func restOneHot(ctx *Context, scores []float64) int {
	clear(scores)
	if ctx.RestIndex >= 0 {
		scores[ctx.RestIndex] = 1
	}
	return ctx.RestIndex
}

func normalize(scores []float64) {
	sum := 0.0
	for _, s := range scores {
		if mathutil.IsFinite(s) {
			sum += s
		}
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return
	}
	inv := 1 / sum
	for i, s := range scores {
		if mathutil.IsFinite(s) {
			scores[i] = s * inv
		} else {
			scores[i] = 0
		}
	}
}
