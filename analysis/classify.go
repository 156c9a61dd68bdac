package analysis

import (
	"github.com/ieee0824/lipsync-go/feature"
	"github.com/ieee0824/lipsync-go/internal/mathutil"
)

// Result is the outcome of classifying one frame.
type Result struct {
	Volume  float64 // RMS of the analyzed frame
	Phoneme int     // best phoneme, or the rest index (may be -1)
	Silent  bool    // the frame was below the silence threshold
}

// Workspace holds the per-speaker buffers of every pipeline stage.
// It is tied to the Context it was made for and must not be shared.
type Workspace struct {
	ctx     *Context
	scratch *feature.Scratch

	Linear       []float64 // [SampleCount] unwrapped ring
	MFCC         []float64 // [Order]
	Standardized []float64 // [Order]
	Scores       []float64 // [Phonemes]
}

// NewWorkspace allocates a workspace sized for ctx.
func NewWorkspace(ctx *Context) *Workspace {
	return &Workspace{
		ctx:          ctx,
		scratch:      ctx.Plan.NewScratch(),
		Linear:       make([]float64, ctx.Plan.Config.SampleCount),
		MFCC:         make([]float64, ctx.Order),
		Standardized: make([]float64, ctx.Order),
		Scores:       make([]float64, ctx.Phonemes),
	}
}

// Context returns the context the workspace was sized for.
func (w *Workspace) Context() *Context {
	return w.ctx
}

// Classify unwraps ring starting at start, runs the MFCC pipeline and scores
// the frame. Scores and intermediate vectors are left in ws.
//
// Frames quieter than ctx.SilenceRMS skip analysis: the MFCC is zeroed and
// the result is the rest phoneme with one-hot scores.
func Classify(ctx *Context, ring []float32, start int, ws *Workspace) Result {
	linear := ws.Linear[:min(len(ring), len(ws.Linear))]
	unwrap(ring, start, linear)

	rms := mathutil.RMS(linear)
	if !(rms >= ctx.SilenceRMS) || len(linear) == 0 {
		clear(ws.MFCC)
		clear(ws.Standardized)
		return Result{
			Volume:  rms,
			Phoneme: restOneHot(ctx, ws.Scores),
			Silent:  true,
		}
	}

	ctx.Plan.MFCC(linear, ws.scratch, ws.MFCC)
	ctx.standardize(ws.MFCC, ws.Standardized)
	return Result{
		Volume:  rms,
		Phoneme: Score(ctx, ws.Standardized, ws.Scores),
	}
}

// unwrap copies len(dst) samples of ring into dst, oldest first, starting at
// start and wrapping at the end of ring.
func unwrap(ring []float32, start int, dst []float64) {
	n := len(ring)
	if n == 0 {
		return
	}
	start %= n
	if start < 0 {
		start += n
	}
	i := 0
	for j := start; j < n && i < len(dst); j++ {
		dst[i] = float64(ring[j])
		i++
	}
	for j := 0; i < len(dst); j++ {
		dst[i] = float64(ring[j])
		i++
	}
}
