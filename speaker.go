package lipsync

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ieee0824/lipsync-go/analysis"
	"github.com/ieee0824/lipsync-go/blend"
	"github.com/ieee0824/lipsync-go/feature"
	"github.com/ieee0824/lipsync-go/ingest"
	"github.com/ieee0824/lipsync-go/internal/job"
	"github.com/ieee0824/lipsync-go/internal/logging"
)

// Readout is the latest classification of a speaker.
type Readout struct {
	Volume   float64 // RMS of the last analyzed frame
	VolumeDB float64 // Volume in dB, never below MinVolumeDB
	Level    float64 // smoothed normalized volume in [0, 1]
	Phoneme  int     // best phoneme index, -1 when nothing matched
	Name     string  // name of Phoneme, "" when -1
}

// Speaker turns one audio stream into blendshape weights.
//
// Feed is the producer side and may run on its own goroutine. Tick, Bind,
// Readout, Weights and Wait are the consumer side and must all be called
// from one goroutine.
type Speaker struct {
	id     uuid.UUID
	engine *Engine
	log    zerolog.Logger
	target blend.RenderTarget

	buf atomic.Pointer[ingest.DoubleBuffer]

	ctx      *analysis.Context
	ws       *analysis.Workspace
	entries  []blend.Entry
	bindings []blend.Binding
	smoother *blend.Smoother
	applier  *blend.Applier
	weights  []float64 // written by the smoothing task
	applied  []float64 // snapshot of weights at the last join
	result   analysis.Result
	readout  Readout

	pending atomic.Pointer[job.Handle]
}

func newSpeaker(e *Engine, target blend.RenderTarget) *Speaker {
	id := uuid.New()
	s := &Speaker{
		id:       id,
		engine:   e,
		log:      logging.Component(e.base, "speaker").With().Str("speaker", id.String()).Logger(),
		target:   target,
		smoother: blend.NewSmoother(e.cfg.BlendConfig(), 0),
		applier:  blend.NewApplier(0, e.cfg.ApplyEpsilon),
		result:   analysis.Result{Phoneme: -1},
		readout:  Readout{Phoneme: -1, VolumeDB: e.cfg.MinVolumeDB},
	}
	size := feature.DefaultConfig().SampleCount
	if ctx := e.ctx.Load(); ctx != nil {
		size = ctx.Plan.Config.SampleCount
	}
	s.buf.Store(ingest.New(size))
	return s
}

// ID identifies the speaker in logs.
func (s *Speaker) ID() uuid.UUID {
	return s.id
}

// Feed queues interleaved samples. Only the first channel is kept.
func (s *Speaker) Feed(samples []float32, channels int) {
	s.buf.Load().Write(samples, channels)
}

// Bind sets the slot table. Names are resolved against the active profile
// now and again whenever the profile changes.
func (s *Speaker) Bind(entries []blend.Entry) {
	s.join()
	s.entries = append([]blend.Entry(nil), entries...)
	s.resolve()
}

func (s *Speaker) resolve() {
	s.bindings = nil
	if s.ctx != nil {
		s.bindings = blend.Resolve(s.entries, s.ctx, s.log)
	}
	s.smoother.Reset(len(s.bindings))

	slots := blend.SlotCount(s.entries)
	if slots != len(s.weights) {
		s.weights = make([]float64, slots)
		s.applied = make([]float64, slots)
		s.applier.Resize(slots)
	} else {
		clear(s.weights)
	}
}

// Tick advances the speaker by dt seconds. It waits for the work scheduled
// by the previous Tick, pushes the weights it produced, then schedules
// classification of any new audio followed by smoothing.
func (s *Speaker) Tick(dt float64) {
	s.join()

	ctx := s.engine.ctx.Load()
	if ctx == nil && s.ctx != nil {
		s.release()
	}
	s.applier.Apply(s.applied, s.target)
	if ctx == nil {
		return
	}
	if ctx != s.ctx {
		s.rebuild(ctx)
	}

	var classify *job.Handle
	if ring, start, ok := s.buf.Load().Swap(); ok {
		ws := s.ws
		classify = job.Go(func() {
			s.result = analysis.Classify(ctx, ring, start, ws)
		})
	}
	scores := s.ws.Scores
	s.pending.Store(job.Go(func() {
		s.smoother.Update(dt, s.result.Volume, scores, s.bindings, s.weights)
	}, classify))
}

func (s *Speaker) rebuild(ctx *analysis.Context) {
	s.ctx = ctx
	s.ws = analysis.NewWorkspace(ctx)
	if n := ctx.Plan.Config.SampleCount; s.buf.Load().Size() != n {
		s.buf.Store(ingest.New(n))
	}
	s.result = analysis.Result{Phoneme: ctx.RestIndex, Silent: true}
	s.resolve()
	s.log.Debug().
		Str("profile", ctx.Profile.Name).
		Int("bindings", len(s.bindings)).
		Msg("speaker rebuilt for profile")
}

// release drops the context after the profile was removed and returns the
// mouth to rest.
func (s *Speaker) release() {
	s.ctx = nil
	s.ws = nil
	s.resolve()
	clear(s.applied)
	s.result = analysis.Result{Phoneme: -1}
	s.readout = Readout{Phoneme: -1, VolumeDB: s.engine.cfg.MinVolumeDB}
	s.log.Debug().Msg("speaker released profile")
}

// join waits for the scheduled work and publishes its results.
func (s *Speaker) join() {
	h := s.pending.Swap(nil)
	if h == nil {
		return
	}
	h.Wait()
	copy(s.applied, s.weights)

	name := ""
	if s.ctx != nil {
		name = s.ctx.Name(s.result.Phoneme)
	}
	cfg := s.engine.cfg
	s.readout = Readout{
		Volume:   s.result.Volume,
		VolumeDB: blend.VolumeDB(s.result.Volume, cfg.MinVolumeDB),
		Level:    s.smoother.Volume(),
		Phoneme:  s.result.Phoneme,
		Name:     name,
	}
}

// drain waits for in-flight work without publishing it.
func (s *Speaker) drain() {
	s.pending.Load().Wait()
}

// Wait blocks until the work scheduled by the last Tick is done and makes its
// results visible to Readout and Weights.
func (s *Speaker) Wait() {
	s.join()
}

// Readout returns the classification published by the last join.
func (s *Speaker) Readout() Readout {
	return s.readout
}

// Weights returns a copy of the slot weights published by the last join.
func (s *Speaker) Weights() []float64 {
	return append([]float64(nil), s.applied...)
}

// Close waits for in-flight work and unregisters the speaker.
func (s *Speaker) Close() {
	s.join()
	s.engine.remove(s)
	s.log.Debug().Msg("speaker closed")
}
