// Package lipsync drives avatar mouth shapes from live audio.
//
// An Engine owns the analysis context built from the active phoneme profile
// and any number of Speakers. Each Speaker takes audio from a producer
// goroutine through Feed and, once per rendered frame, Tick classifies the
// newest audio, smooths the result and pushes blendshape weights to its
// render target.
package lipsync

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ieee0824/lipsync-go/analysis"
	"github.com/ieee0824/lipsync-go/blend"
	"github.com/ieee0824/lipsync-go/feature"
	"github.com/ieee0824/lipsync-go/internal/logging"
	"github.com/ieee0824/lipsync-go/profile"
)

// ErrClosed is returned by NewSpeaker after Close.
var ErrClosed = errors.New("lipsync: engine closed")

// EngineConfig holds the settings shared by every speaker of an engine.
type EngineConfig struct {
	InputSampleRate int     `mapstructure:"input_sample_rate"`
	SilenceRMS      float64 `mapstructure:"silence_rms"`
	MinVolumeDB     float64 `mapstructure:"min_volume_db"`
	MaxVolumeDB     float64 `mapstructure:"max_volume_db"`
	SmoothingTau    float64 `mapstructure:"smoothing_tau"` // seconds
	ApplyEpsilon    float64 `mapstructure:"apply_epsilon"`
	TransitionHz    float64 `mapstructure:"transition_hz"`
	NormalizeScores bool    `mapstructure:"normalize_scores"`
}

// DefaultEngineConfig returns the settings for 48 kHz input.
func DefaultEngineConfig() EngineConfig {
	a := analysis.DefaultConfig()
	b := blend.DefaultConfig()
	return EngineConfig{
		InputSampleRate: a.Feature.InputSampleRate,
		SilenceRMS:      a.SilenceRMS,
		MinVolumeDB:     b.MinVolumeDB,
		MaxVolumeDB:     b.MaxVolumeDB,
		SmoothingTau:    b.Tau,
		ApplyEpsilon:    1e-3,
		TransitionHz:    a.Feature.TransitionHz,
	}
}

// AnalysisConfig converts c for analysis.Build.
func (c EngineConfig) AnalysisConfig() analysis.Config {
	f := feature.DefaultConfig()
	f.InputSampleRate = c.InputSampleRate
	f.TransitionHz = c.TransitionHz
	return analysis.Config{
		Feature:         f,
		SilenceRMS:      c.SilenceRMS,
		NormalizeScores: c.NormalizeScores,
	}
}

// BlendConfig converts c for the per-speaker smoother.
func (c EngineConfig) BlendConfig() blend.Config {
	return blend.Config{
		MinVolumeDB: c.MinVolumeDB,
		MaxVolumeDB: c.MaxVolumeDB,
		Tau:         c.SmoothingTau,
	}
}

// Engine manages the active profile and the speakers that use it.
type Engine struct {
	cfg  EngineConfig
	base zerolog.Logger // without the component field, for speakers
	log  zerolog.Logger

	ctx atomic.Pointer[analysis.Context]

	mu       sync.Mutex // guards Install, speakers and closed
	speakers map[uuid.UUID]*Speaker
	closed   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.base = l
	}
}

// WithConfig replaces the default engine settings.
func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// NewEngine creates an engine with no active profile.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cfg:      DefaultEngineConfig(),
		base:     zerolog.Nop(),
		speakers: make(map[uuid.UUID]*Speaker),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.Component(e.base, "engine")
	return e
}

// Config returns the engine settings.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Install builds a new analysis context from p and makes it active.
// Installing the profile that is already active does nothing; installing nil
// drops the active context. On error the previous context stays active.
// Speakers pick the new context up on their next Tick.
func (e *Engine) Install(p *profile.Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	cur := e.ctx.Load()
	if p == nil {
		e.ctx.Store(nil)
		if cur != nil {
			e.log.Info().Str("profile", cur.Profile.Name).Msg("profile removed")
		}
		return nil
	}
	if cur != nil && cur.Profile == p {
		return nil
	}

	ctx, err := analysis.Build(p, e.cfg.AnalysisConfig())
	if err != nil {
		e.log.Error().Err(err).Str("profile", p.Name).Msg("profile rejected")
		return err
	}
	e.ctx.Store(ctx)
	e.log.Info().
		Str("profile", p.Name).
		Int("phonemes", ctx.Phonemes).
		Str("method", ctx.Method.String()).
		Msg("profile installed")
	e.log.Debug().Stringer("plan", ctx.Plan).Int("rest", ctx.RestIndex).Msg("analysis context built")
	return nil
}

// Context returns the active analysis context, or nil.
func (e *Engine) Context() *analysis.Context {
	return e.ctx.Load()
}

// NewSpeaker registers a speaker that writes its weights to target.
// target may be nil when only Readout and Weights are needed.
func (e *Engine) NewSpeaker(target blend.RenderTarget) (*Speaker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	s := newSpeaker(e, target)
	e.speakers[s.id] = s
	s.log.Debug().Msg("speaker created")
	return s, nil
}

// Speakers returns the number of registered speakers.
func (e *Engine) Speakers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.speakers)
}

func (e *Engine) remove(s *Speaker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.speakers, s.id)
}

// Close waits for every speaker's in-flight work, unregisters all speakers
// and drops the active context. Speakers ticked afterwards do nothing but
// re-apply their last weights.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, s := range e.speakers {
		s.drain()
		delete(e.speakers, id)
	}
	e.ctx.Store(nil)
	e.log.Debug().Msg("engine closed")
}
