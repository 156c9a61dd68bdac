package lipsync

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/lipsync-go/analysis"
	"github.com/ieee0824/lipsync-go/blend"
	"github.com/ieee0824/lipsync-go/profile"
)

const order = 12

type recordTarget struct {
	mu      sync.Mutex
	weights map[int]float32
	writes  int
}

func (r *recordTarget) SetWeight(slot int, w float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.weights == nil {
		r.weights = make(map[int]float32)
	}
	r.weights[slot] = w
	r.writes++
}

func sine(n int, freq, amp float64) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/48000))
	}
	return x
}

func ones(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 1
	}
	return x
}

func baseProfile(sampleCount int) *profile.Profile {
	return &profile.Profile{
		Name:             "base",
		TargetSampleRate: 16000,
		SampleCount:      sampleCount,
		MelChannels:      30,
		MFCCOrder:        order,
		Method:           profile.MethodL2,
		Mean:             make([]float64, order),
		Std:              ones(order),
		Phonemes: []profile.Template{
			{Name: "A", Coeffs: make([]float64, order)},
			{Name: "rest", Coeffs: make([]float64, order)},
		},
	}
}

// toneProfile returns a profile whose "A" template is the MFCC of tone.
func toneProfile(t *testing.T, cfg EngineConfig, tone []float32) *profile.Profile {
	t.Helper()
	p := baseProfile(len(tone))
	ctx, err := analysis.Build(p, cfg.AnalysisConfig())
	require.NoError(t, err)

	linear := make([]float64, len(tone))
	for i, v := range tone {
		linear[i] = float64(v)
	}
	ctx.Plan.MFCC(linear, ctx.Plan.NewScratch(), p.Phonemes[0].Coeffs)
	p.Name = "tone"
	return p
}

func instantConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.SmoothingTau = 0
	return cfg
}

func TestInstall(t *testing.T) {
	e := NewEngine(WithLogger(zerolog.Nop()))
	assert.Nil(t, e.Context())

	p := baseProfile(1024)
	require.NoError(t, e.Install(p))
	ctx := e.Context()
	require.NotNil(t, ctx)

	// Same pointer: no rebuild.
	require.NoError(t, e.Install(p))
	assert.Same(t, ctx, e.Context())

	// Rejected profile keeps the old context.
	bad := baseProfile(1024)
	bad.Phonemes = nil
	err := e.Install(bad)
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)
	assert.Same(t, ctx, e.Context())

	require.NoError(t, e.Install(nil))
	assert.Nil(t, e.Context())
}

func TestSpeakerEndToEnd(t *testing.T) {
	cfg := instantConfig()
	tone := sine(1024, 440, 0.5)
	e := NewEngine(WithConfig(cfg))
	require.NoError(t, e.Install(toneProfile(t, cfg, tone)))

	target := &recordTarget{}
	s, err := e.NewSpeaker(target)
	require.NoError(t, err)
	s.Bind([]blend.Entry{
		{Slot: 0, Phoneme: "A"},
		{Slot: 1, Phoneme: "rest"},
		{Slot: 2, Phoneme: "missing"},
	})

	s.Feed(tone, 1)
	s.Tick(1.0 / 60)
	s.Wait()

	r := s.Readout()
	assert.Equal(t, 0, r.Phoneme)
	assert.Equal(t, "A", r.Name)
	assert.InDelta(t, 0.5/math.Sqrt2, r.Volume, 0.01)
	assert.Equal(t, 1.0, r.Level)

	w := s.Weights()
	require.Len(t, w, 3)
	assert.Greater(t, w[0], 99.0)
	assert.Less(t, w[1], 1.0)
	assert.Equal(t, 0.0, w[2])

	// Weights reach the target on the next tick.
	s.Tick(1.0 / 60)
	s.Wait()
	assert.InDelta(t, w[0], float64(target.weights[0]), 1e-3)
	assert.Equal(t, float32(0), target.weights[2])

	// Silence falls back to rest at the volume floor.
	s.Feed(make([]float32, 1024), 1)
	s.Tick(1.0 / 60)
	s.Wait()
	r = s.Readout()
	assert.Equal(t, 1, r.Phoneme)
	assert.Equal(t, "rest", r.Name)
	assert.Equal(t, cfg.MinVolumeDB, r.VolumeDB)
	assert.Equal(t, 0.0, r.Level)
	for _, v := range s.Weights() {
		assert.Equal(t, 0.0, v)
	}
}

// Chunks shorter than the ring must still leave the newest SampleCount
// samples, in order, for classification.
func TestSpeakerFollowsChunkedStream(t *testing.T) {
	const chunk = 800 // 48 kHz at 60 fps
	const frames = 60
	cfg := instantConfig()
	stream := sine(chunk*frames, 440, 0.5)
	e := NewEngine(WithConfig(cfg))
	require.NoError(t, e.Install(toneProfile(t, cfg, stream[:1024])))
	ctx := e.Context()
	ws := analysis.NewWorkspace(ctx)

	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)
	for f := 0; f < frames; f++ {
		end := (f + 1) * chunk
		s.Feed(stream[f*chunk:end], 1)
		s.Tick(1.0 / 60)
		s.Wait()
		if end < 1024 {
			continue
		}

		want := analysis.Classify(ctx, stream[end-1024:end], 0, ws)
		r := s.Readout()
		assert.Equal(t, want.Phoneme, r.Phoneme, "frame %d", f)
		assert.InDelta(t, want.Volume, r.Volume, 1e-12, "frame %d", f)
		assert.Equal(t, "A", r.Name, "frame %d", f)
	}
}

func TestSpeakerStereoFeed(t *testing.T) {
	cfg := instantConfig()
	tone := sine(1024, 440, 0.5)
	e := NewEngine(WithConfig(cfg))
	require.NoError(t, e.Install(toneProfile(t, cfg, tone)))
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)

	// The right channel holds a constant that must be ignored.
	stereo := make([]float32, 2*len(tone))
	for i, v := range tone {
		stereo[2*i] = v
		stereo[2*i+1] = 0.9
	}
	s.Feed(stereo, 2)
	s.Tick(1.0 / 60)
	s.Wait()
	assert.Equal(t, "A", s.Readout().Name)
}

func TestTickWithoutAudio(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Install(baseProfile(1024)))
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)
	s.Bind([]blend.Entry{{Slot: 0, Phoneme: "A"}})

	for i := 0; i < 3; i++ {
		s.Tick(1.0 / 60)
	}
	s.Wait()
	assert.Equal(t, 1, s.Readout().Phoneme)
	assert.Equal(t, []float64{0}, s.Weights())
}

func TestTickWithoutProfile(t *testing.T) {
	e := NewEngine()
	target := &recordTarget{}
	s, err := e.NewSpeaker(target)
	require.NoError(t, err)
	s.Bind([]blend.Entry{{Slot: 0, Phoneme: "A"}})
	s.Feed(sine(512, 440, 0.5), 1)
	s.Tick(1.0 / 60)
	s.Wait()
	assert.Equal(t, -1, s.Readout().Phoneme)
	assert.Equal(t, float32(0), target.weights[0])
}

func TestProfileSwapRebuildsSpeaker(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Install(baseProfile(1024)))
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)
	s.Bind([]blend.Entry{{Slot: 0, Phoneme: "A"}, {Slot: 1, Phoneme: "O"}})
	s.Tick(1.0 / 60)
	s.Wait()
	require.Len(t, s.bindings, 2)
	assert.Equal(t, 0, s.bindings[0].Phoneme)
	assert.Equal(t, blend.Unbound, s.bindings[1].Phoneme)
	assert.Equal(t, 1024, s.buf.Load().Size())

	p2 := baseProfile(512)
	p2.Phonemes[0].Name = "O"
	require.NoError(t, e.Install(p2))
	s.Tick(1.0 / 60)
	s.Wait()
	assert.Same(t, e.Context(), s.ctx)
	assert.Equal(t, 512, s.buf.Load().Size())
	assert.Equal(t, blend.Unbound, s.bindings[0].Phoneme)
	assert.Equal(t, 0, s.bindings[1].Phoneme)

	require.NoError(t, e.Install(nil))
	s.Tick(1.0 / 60)
	assert.Nil(t, s.ctx)
	assert.Equal(t, []float64{0, 0}, s.Weights())
}

func TestManySpeakersShareContext(t *testing.T) {
	cfg := instantConfig()
	tone := sine(1024, 440, 0.5)
	e := NewEngine(WithConfig(cfg))
	require.NoError(t, e.Install(toneProfile(t, cfg, tone)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		s, err := e.NewSpeaker(nil)
		require.NoError(t, err)
		s.Bind([]blend.Entry{{Slot: 0, Phoneme: "A"}})
		wg.Add(1)
		go func(s *Speaker) {
			defer wg.Done()
			for f := 0; f < 20; f++ {
				s.Feed(tone, 1)
				s.Tick(1.0 / 60)
			}
			s.Wait()
			assert.Equal(t, "A", s.Readout().Name)
		}(s)
	}
	wg.Wait()
	assert.Equal(t, 8, e.Speakers())
}

func TestConcurrentFeedAndTick(t *testing.T) {
	cfg := DefaultEngineConfig()
	e := NewEngine(WithConfig(cfg))
	require.NoError(t, e.Install(toneProfile(t, cfg, sine(1024, 440, 0.5))))
	s, err := e.NewSpeaker(&recordTarget{})
	require.NoError(t, err)
	s.Bind([]blend.Entry{{Slot: 0, Phoneme: "A"}, {Slot: 1, Phoneme: "rest"}})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		batch := sine(480, 440, 0.5)
		for {
			select {
			case <-stop:
				return
			default:
				s.Feed(batch, 1)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		s.Tick(1.0 / 60)
	}
	close(stop)
	<-done
	s.Wait()

	r := s.Readout()
	assert.True(t, r.Phoneme == 0 || r.Phoneme == 1)
	for _, w := range s.Weights() {
		assert.True(t, w >= 0 && w <= 100)
	}
}

func TestClose(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Install(baseProfile(1024)))
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)
	s.Feed(sine(1024, 440, 0.5), 1)
	s.Tick(1.0 / 60)

	e.Close()
	assert.Equal(t, 0, e.Speakers())
	assert.Nil(t, e.Context())
	assert.ErrorIs(t, e.Install(baseProfile(1024)), ErrClosed)
	_, err = e.NewSpeaker(nil)
	assert.ErrorIs(t, err, ErrClosed)

	// Ticking a speaker of a closed engine is harmless.
	s.Tick(1.0 / 60)
	s.Wait()
	e.Close()
}

func TestSpeakerClose(t *testing.T) {
	e := NewEngine()
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID().String(), "")
	assert.Equal(t, 1, e.Speakers())
	s.Close()
	assert.Equal(t, 0, e.Speakers())
}

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(WithLogger(zerolog.New(&buf)))
	require.NoError(t, e.Install(baseProfile(1024)))
	s, err := e.NewSpeaker(nil)
	require.NoError(t, err)

	var engineLine, speakerLine string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		switch {
		case strings.Contains(line, "profile installed"):
			engineLine = line
		case strings.Contains(line, "speaker created"):
			speakerLine = line
		}
	}
	assert.Contains(t, engineLine, `"component":"engine"`)
	assert.Contains(t, speakerLine, `"component":"speaker"`)
	assert.NotContains(t, speakerLine, `"component":"engine"`)
	assert.Contains(t, speakerLine, `"speaker":"`+s.ID().String()+`"`)
}
