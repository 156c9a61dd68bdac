package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts interleaved samples from one rate to another in a single
// pass, flushing the filter tail at the end. Equal rates return a copy.
func Resample(samples []float64, fromRate, toRate, channels int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: resample %d Hz -> %d Hz, %d channels",
			ErrUnsupportedFormat, fromRate, toRate, channels)
	}
	if fromRate == toRate {
		return append([]float64(nil), samples...), nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}
	return append(out, tail...), nil
}
