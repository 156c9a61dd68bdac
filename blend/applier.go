package blend

import "math"

// RenderTarget receives final blendshape weights.
type RenderTarget interface {
	SetWeight(slot int, weight float32)
}

// RenderTargetFunc adapts a function to RenderTarget.
type RenderTargetFunc func(slot int, weight float32)

// SetWeight calls f.
func (f RenderTargetFunc) SetWeight(slot int, weight float32) {
	f(slot, weight)
}

// Applier pushes weights to a RenderTarget, skipping slots whose value moved
// by no more than Epsilon since it was last pushed.
type Applier struct {
	Epsilon float64
	last    []float32
	primed  []bool
}

// NewApplier returns an applier for slots blendshapes. The first Apply
// pushes every slot.
func NewApplier(slots int, epsilon float64) *Applier {
	return &Applier{
		Epsilon: epsilon,
		last:    make([]float32, slots),
		primed:  make([]bool, slots),
	}
}

// Resize changes the slot count and forgets every pushed value.
func (a *Applier) Resize(slots int) {
	a.last = make([]float32, slots)
	a.primed = make([]bool, slots)
}

// Apply pushes changed weights to t and returns the number of writes.
func (a *Applier) Apply(weights []float64, t RenderTarget) int {
	if t == nil {
		return 0
	}
	n := 0
	for slot, w := range weights {
		if slot >= len(a.last) {
			break
		}
		v := float32(w)
		if a.primed[slot] && math.Abs(float64(v-a.last[slot])) <= a.Epsilon {
			continue
		}
		t.SetWeight(slot, v)
		a.last[slot] = v
		a.primed[slot] = true
		n++
	}
	return n
}
