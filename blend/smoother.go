package blend

import (
	"math"

	"github.com/ieee0824/lipsync-go/internal/mathutil"
)

// MaxWeight is the value of a fully open blendshape.
const MaxWeight = 100

// Config shapes the volume response and the smoothing speed.
type Config struct {
	MinVolumeDB float64 `mapstructure:"min_volume_db"` // maps to 0
	MaxVolumeDB float64 `mapstructure:"max_volume_db"` // maps to 1
	Tau         float64 `mapstructure:"tau"`           // smoothing time constant in seconds
}

// DefaultConfig returns a -50..-30 dB window and a 50 ms time constant.
func DefaultConfig() Config {
	return Config{
		MinVolumeDB: -50,
		MaxVolumeDB: -30,
		Tau:         0.05,
	}
}

// Alpha returns the exponential smoothing factor 1-exp(-dt/tau) for a step
// of dt seconds. tau <= 0 disables smoothing.
func Alpha(dt, tau float64) float64 {
	if tau <= 0 {
		return 1
	}
	if !(dt > 0) {
		return 0
	}
	return 1 - math.Exp(-dt/tau)
}

// VolumeDB converts an RMS amplitude to decibels, never below floorDB.
func VolumeDB(rms, floorDB float64) float64 {
	if !(rms > 0) {
		return floorDB
	}
	return math.Max(20*math.Log10(rms), floorDB)
}

// NormalizeVolume maps rms onto [0, 1] across the [minDB, maxDB] window.
func NormalizeVolume(rms, minDB, maxDB float64) float64 {
	db := VolumeDB(rms, minDB)
	span := maxDB - minDB
	if !(span > 0) {
		if db >= maxDB {
			return 1
		}
		return 0
	}
	return mathutil.Clamp((db-minDB)/span, 0, 1)
}

// Smoother holds the per-speaker smoothing state: one volume and one weight
// per binding.
type Smoother struct {
	cfg     Config
	volume  float64
	weights []float64
}

// NewSmoother returns a smoother for n bindings, starting at rest.
func NewSmoother(cfg Config, n int) *Smoother {
	return &Smoother{cfg: cfg, weights: make([]float64, n)}
}

// Reset resizes the state for n bindings and returns it to rest.
func (s *Smoother) Reset(n int) {
	s.volume = 0
	if cap(s.weights) >= n {
		s.weights = s.weights[:n]
		clear(s.weights)
		return
	}
	s.weights = make([]float64, n)
}

// Volume returns the smoothed normalized volume.
func (s *Smoother) Volume() float64 {
	return s.volume
}

// Weight returns the smoothed score of binding i.
func (s *Smoother) Weight(i int) float64 {
	return s.weights[i]
}

// Update advances the state by dt seconds toward rms and scores and writes
// the final weight of every slot into out. Bindings that share a slot add
// up. out is fully overwritten; each value ends in [0, MaxWeight].
func (s *Smoother) Update(dt, rms float64, scores []float64, bindings []Binding, out []float64) {
	a := Alpha(dt, s.cfg.Tau)

	target := NormalizeVolume(rms, s.cfg.MinVolumeDB, s.cfg.MaxVolumeDB)
	s.volume += (target - s.volume) * a
	if !mathutil.IsFinite(s.volume) {
		s.volume = 0
	}

	sum := 0.0
	for i, b := range bindings {
		goal := 0.0
		if b.Phoneme >= 0 && b.Phoneme < len(scores) && mathutil.IsFinite(scores[b.Phoneme]) {
			goal = scores[b.Phoneme]
		}
		w := s.weights[i] + (goal-s.weights[i])*a
		if !mathutil.IsFinite(w) {
			w = 0
		}
		s.weights[i] = w
		sum += w
	}

	mult := s.volume * MaxWeight
	if sum > 0 {
		mult /= sum
	}

	clear(out)
	for i, b := range bindings {
		if b.Slot < len(out) {
			out[b.Slot] += s.weights[i] * mult
		}
	}
	for i, v := range out {
		if !mathutil.IsFinite(v) {
			out[i] = 0
			continue
		}
		out[i] = mathutil.Clamp(v, 0, MaxWeight)
	}
}
