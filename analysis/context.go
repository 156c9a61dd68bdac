// Package analysis classifies one frame of audio against a phoneme profile.
//
// A Context holds everything derived from a profile and is shared read-only
// by every speaker; a Workspace holds the per-speaker scratch buffers.
package analysis

import (
	"fmt"
	"math"

	"github.com/ieee0824/lipsync-go/feature"
	"github.com/ieee0824/lipsync-go/internal/simd"
	"github.com/ieee0824/lipsync-go/profile"
)

// stdEpsilon keeps 1/std finite for coefficients that never varied.
const stdEpsilon = 1e-9

// Config holds the engine-level settings that are not part of a profile.
type Config struct {
	// Feature supplies the input sample rate and pipeline constants. The
	// profile overrides target rate, sample count, mel channels and order.
	Feature         feature.Config
	SilenceRMS      float64 // frames quieter than this skip analysis
	NormalizeScores bool    // scale scores to sum to 1
}

// DefaultConfig returns the settings for 48 kHz input.
func DefaultConfig() Config {
	return Config{
		Feature:    feature.DefaultConfig(),
		SilenceRMS: 1e-4,
	}
}

// Context is the immutable analysis state derived from one profile.
type Context struct {
	Profile *profile.Profile
	Plan    *feature.Plan
	Method  profile.Method

	Phonemes  int
	Order     int
	Templates []float64 // [Phonemes*Order] standardized, row-major
	Norms     []float64 // [Phonemes] L2 norm of each standardized template
	Mean      []float64 // [Order]
	InvStd    []float64 // [Order] 1/(std+ε)
	RestIndex int       // -1 when the profile has no rest phoneme

	SilenceRMS float64
	Normalize  bool

	names map[string]int
}

// Build validates p and derives every table the pipeline needs.
// All errors wrap profile.ErrInvalidProfile.
func Build(p *profile.Profile, cfg Config) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	plan, err := feature.NewPlan(p.FeatureConfig(cfg.Feature))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrInvalidProfile, err)
	}

	order := p.MFCCOrder
	count := len(p.Phonemes)
	c := &Context{
		Profile:    p,
		Plan:       plan,
		Method:     p.Method,
		Phonemes:   count,
		Order:      order,
		Templates:  make([]float64, count*order),
		Norms:      make([]float64, count),
		Mean:       append([]float64(nil), p.Mean...),
		InvStd:     make([]float64, order),
		RestIndex:  -1,
		SilenceRMS: cfg.SilenceRMS,
		Normalize:  cfg.NormalizeScores,
		names:      make(map[string]int, count),
	}
	for k, s := range p.Std {
		c.InvStd[k] = 1 / (s + stdEpsilon)
	}
	for i, t := range p.Phonemes {
		row := c.Template(i)
		c.standardize(t.Coeffs, row)
		c.Norms[i] = math.Sqrt(simd.SumSquares(row))
		c.names[t.Name] = i
	}
	if idx, ok := c.names[p.RestName()]; ok {
		c.RestIndex = idx
	}
	return c, nil
}

// Template returns the standardized template of phoneme i.
func (c *Context) Template(i int) []float64 {
	return c.Templates[i*c.Order : (i+1)*c.Order]
}

// Index resolves a phoneme name.
func (c *Context) Index(name string) (int, bool) {
	i, ok := c.names[name]
	return i, ok
}

// Name returns the name of phoneme i, or "" when i is out of range.
func (c *Context) Name(i int) string {
	if i < 0 || i >= c.Phonemes {
		return ""
	}
	return c.Profile.Phonemes[i].Name
}

// Standardize writes (raw-mean)*invStd into dst. Non-finite results become 0.
func (c *Context) Standardize(raw, dst []float64) {
	c.standardize(raw, dst)
}

func (c *Context) standardize(raw, dst []float64) {
	for k := 0; k < c.Order; k++ {
		v := (raw[k] - c.Mean[k]) * c.InvStd[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		dst[k] = v
	}
}

func (c *Context) String() string {
	return fmt.Sprintf("profile=%q phonemes=%d method=%s rest=%d %s",
		c.Profile.Name, c.Phonemes, c.Method, c.RestIndex, c.Plan)
}
