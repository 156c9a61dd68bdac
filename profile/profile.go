// Package profile defines the reference phoneme profile a lip-sync engine
// classifies against, together with its YAML codec and a calibrator that
// builds one from recorded takes.
package profile

import (
	"errors"
	"fmt"
	"math"

	"github.com/ieee0824/lipsync-go/feature"
)

// ErrInvalidProfile is wrapped by every validation error.
var ErrInvalidProfile = errors.New("profile: invalid profile")

// DefaultRest is the rest phoneme name used when Profile.Rest is empty.
const DefaultRest = "rest"

// Method selects how a frame is compared with the phoneme templates.
type Method int

const (
	MethodL1 Method = iota
	MethodL2
	MethodCosine
)

var methodNames = [...]string{"l1", "l2", "cosine"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod converts a method name back to its Method.
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if s == name {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidProfile, s)
}

// Template is one named reference MFCC vector.
type Template struct {
	Name   string    `yaml:"name"`
	Coeffs []float64 `yaml:"coeffs,flow"`
}

// Profile is a set of phoneme templates recorded under one analysis setup.
// A Profile must not be modified once it has been installed into an engine.
type Profile struct {
	Name             string     `yaml:"name,omitempty"`
	TargetSampleRate int        `yaml:"target_sample_rate"`
	SampleCount      int        `yaml:"sample_count"`
	MelChannels      int        `yaml:"mel_channels"`
	MFCCOrder        int        `yaml:"mfcc_order"`
	Method           Method     `yaml:"method"`
	Rest             string     `yaml:"rest,omitempty"`
	Mean             []float64  `yaml:"mean,flow"`
	Std              []float64  `yaml:"std,flow"`
	Phonemes         []Template `yaml:"phonemes"`
}

// RestName returns the name of the rest phoneme.
func (p *Profile) RestName() string {
	if p.Rest == "" {
		return DefaultRest
	}
	return p.Rest
}

// Index returns the position of the named phoneme, or -1.
func (p *Profile) Index(name string) int {
	for i, t := range p.Phonemes {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the phoneme names in template order.
func (p *Profile) Names() []string {
	names := make([]string, len(p.Phonemes))
	for i, t := range p.Phonemes {
		names[i] = t.Name
	}
	return names
}

// Validate reports the first structural problem in p.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}
	switch {
	case len(p.Phonemes) == 0:
		return fmt.Errorf("%w: no phonemes", ErrInvalidProfile)
	case p.TargetSampleRate <= 0:
		return fmt.Errorf("%w: target sample rate %d", ErrInvalidProfile, p.TargetSampleRate)
	case p.SampleCount <= 0:
		return fmt.Errorf("%w: sample count %d", ErrInvalidProfile, p.SampleCount)
	case p.MelChannels <= 0:
		return fmt.Errorf("%w: mel channels %d", ErrInvalidProfile, p.MelChannels)
	case p.MFCCOrder <= 0:
		return fmt.Errorf("%w: mfcc order %d", ErrInvalidProfile, p.MFCCOrder)
	case p.Method < MethodL1 || p.Method > MethodCosine:
		return fmt.Errorf("%w: method %d", ErrInvalidProfile, int(p.Method))
	case len(p.Mean) != p.MFCCOrder:
		return fmt.Errorf("%w: mean has %d coefficients, want %d", ErrInvalidProfile, len(p.Mean), p.MFCCOrder)
	case len(p.Std) != p.MFCCOrder:
		return fmt.Errorf("%w: std has %d coefficients, want %d", ErrInvalidProfile, len(p.Std), p.MFCCOrder)
	}
	for i := range p.Mean {
		if !finite(p.Mean[i]) || !finite(p.Std[i]) || p.Std[i] < 0 {
			return fmt.Errorf("%w: mean/std[%d] = %g/%g", ErrInvalidProfile, i, p.Mean[i], p.Std[i])
		}
	}
	seen := make(map[string]bool, len(p.Phonemes))
	for i, t := range p.Phonemes {
		if t.Name == "" {
			return fmt.Errorf("%w: phoneme %d has no name", ErrInvalidProfile, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate phoneme %q", ErrInvalidProfile, t.Name)
		}
		seen[t.Name] = true
		if len(t.Coeffs) != p.MFCCOrder {
			return fmt.Errorf("%w: phoneme %q has %d coefficients, want %d",
				ErrInvalidProfile, t.Name, len(t.Coeffs), p.MFCCOrder)
		}
	}
	return nil
}

// FeatureConfig returns base with every field the profile fixes overridden.
// base supplies the input rate and the pipeline constants.
func (p *Profile) FeatureConfig(base feature.Config) feature.Config {
	base.TargetSampleRate = p.TargetSampleRate
	base.SampleCount = p.SampleCount
	base.MelChannels = p.MelChannels
	base.MFCCOrder = p.MFCCOrder
	return base
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
