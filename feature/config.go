package feature

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every configuration error returned from this package.
var ErrInvalidConfig = errors.New("feature: invalid config")

// Config holds all parameters that shape the analysis plans.
type Config struct {
	InputSampleRate  int     // rate of the samples held in the ring buffer
	TargetSampleRate int     // rate the frame is decimated to before the FFT
	SampleCount      int     // ring length in input samples
	MelChannels      int     // number of triangular mel bands
	MFCCOrder        int     // number of cepstral coefficients, c0 excluded
	PreEmphasis      float64 // first-order pre-emphasis coefficient
	TransitionHz     float64 // low-pass transition band width
	MelFloor         float64 // floor applied to mel energies before the log
}

// DefaultConfig returns the standard configuration for 48 kHz input.
func DefaultConfig() Config {
	return Config{
		InputSampleRate:  48000,
		TargetSampleRate: 16000,
		SampleCount:      1024,
		MelChannels:      30,
		MFCCOrder:        12,
		PreEmphasis:      0.97,
		TransitionHz:     500,
		MelFloor:         1e-10,
	}
}

// Validate reports the first problem that would produce a degenerate plan.
func (c Config) Validate() error {
	switch {
	case c.InputSampleRate <= 0:
		return fmt.Errorf("%w: input sample rate %d", ErrInvalidConfig, c.InputSampleRate)
	case c.TargetSampleRate <= 0:
		return fmt.Errorf("%w: target sample rate %d", ErrInvalidConfig, c.TargetSampleRate)
	case c.SampleCount <= 0:
		return fmt.Errorf("%w: sample count %d", ErrInvalidConfig, c.SampleCount)
	case c.MelChannels <= 0:
		return fmt.Errorf("%w: mel channels %d", ErrInvalidConfig, c.MelChannels)
	case c.MFCCOrder <= 0:
		return fmt.Errorf("%w: mfcc order %d", ErrInvalidConfig, c.MFCCOrder)
	case c.TransitionHz <= 0 || c.TransitionHz >= float64(c.TargetSampleRate)/2:
		return fmt.Errorf("%w: transition width %.1f Hz", ErrInvalidConfig, c.TransitionHz)
	case !(c.MelFloor > 0) || math.IsInf(c.MelFloor, 0):
		return fmt.Errorf("%w: mel floor %g", ErrInvalidConfig, c.MelFloor)
	}
	return nil
}

// decimation describes how the input rate maps onto the target rate.
type decimation struct {
	skip int     // integer stride; 0 when step is used
	step float64 // fractional stride for linear interpolation
}

func (c Config) decimation() decimation {
	if c.InputSampleRate <= c.TargetSampleRate {
		return decimation{skip: 1}
	}
	if c.InputSampleRate%c.TargetSampleRate == 0 {
		return decimation{skip: c.InputSampleRate / c.TargetSampleRate}
	}
	return decimation{step: float64(c.InputSampleRate) / float64(c.TargetSampleRate)}
}

// ResampledLen returns the frame length after decimation, at least 1.
func (c Config) ResampledLen() int {
	return c.decimation().outputLen(c.SampleCount)
}

func (d decimation) outputLen(n int) int {
	if n <= 0 {
		return 0
	}
	if d.skip > 0 {
		return (n-1)/d.skip + 1
	}
	return int(math.Floor(float64(n-1)/d.step)) + 1
}
