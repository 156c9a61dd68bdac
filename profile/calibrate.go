package profile

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ieee0824/lipsync-go/audio"
	"github.com/ieee0824/lipsync-go/feature"
	"github.com/ieee0824/lipsync-go/internal/mathutil"
)

// ErrNoFrames is returned by Calibrator.Profile when no take produced a frame.
var ErrNoFrames = errors.New("profile: no calibration frames")

// CalibratorConfig controls how takes are cut into analysis windows.
type CalibratorConfig struct {
	Feature      feature.Config // InputSampleRate is the rate takes are analyzed at
	Method       Method
	Name         string
	Rest         string
	Hop          int       // window advance in samples; SampleCount/2 when 0
	SilenceRMS   float64   // windows quieter than this are skipped
	SpeedFactors []float64 // extra speed-perturbed copies of every take
}

// DefaultCalibratorConfig analyzes 48 kHz takes with L2 scoring.
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{
		Feature:    feature.DefaultConfig(),
		Method:     MethodL2,
		Rest:       DefaultRest,
		SilenceRMS: 1e-4,
	}
}

// Calibrator accumulates MFCC frames per phoneme and turns them into a Profile.
// It is not safe for concurrent use.
type Calibrator struct {
	cfg     CalibratorConfig
	plan    *feature.Plan
	scratch *feature.Scratch
	order   []string
	frames  map[string][][]float64
	log     zerolog.Logger
}

// NewCalibrator builds the analysis plan for cfg.
func NewCalibrator(cfg CalibratorConfig, log zerolog.Logger) (*Calibrator, error) {
	plan, err := feature.NewPlan(cfg.Feature)
	if err != nil {
		return nil, fmt.Errorf("calibrator: %w", err)
	}
	if cfg.Hop <= 0 {
		cfg.Hop = max(1, cfg.Feature.SampleCount/2)
	}
	if cfg.Rest == "" {
		cfg.Rest = DefaultRest
	}
	return &Calibrator{
		cfg:     cfg,
		plan:    plan,
		scratch: plan.NewScratch(),
		frames:  make(map[string][][]float64),
		log:     log,
	}, nil
}

// AddSamples analyzes a mono take of the named phoneme recorded at rate.
// Takes at another rate are resampled first. It returns the number of frames
// kept after silent windows were dropped.
func (c *Calibrator) AddSamples(name string, pcm []float64, rate int) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty phoneme name", ErrInvalidProfile)
	}
	if rate != c.cfg.Feature.InputSampleRate {
		resampled, err := audio.Resample(pcm, rate, c.cfg.Feature.InputSampleRate, 1)
		if err != nil {
			return 0, fmt.Errorf("resample %q take: %w", name, err)
		}
		pcm = resampled
	}

	takes := [][]float64{pcm}
	for _, f := range c.cfg.SpeedFactors {
		if p := audio.SpeedPerturb(pcm, f); len(p) > 0 {
			takes = append(takes, p)
		}
	}

	kept, skipped := 0, 0
	for _, take := range takes {
		k, s := c.addTake(name, take)
		kept += k
		skipped += s
	}
	c.log.Debug().
		Str("phoneme", name).
		Int("frames", kept).
		Int("silent", skipped).
		Int("takes", len(takes)).
		Msg("calibration take analyzed")
	return kept, nil
}

func (c *Calibrator) addTake(name string, take []float64) (kept, skipped int) {
	n := c.cfg.Feature.SampleCount
	if len(take) <= n {
		if c.addWindow(name, take) {
			return 1, 0
		}
		return 0, 1
	}
	for start := 0; start+n <= len(take); start += c.cfg.Hop {
		if c.addWindow(name, take[start:start+n]) {
			kept++
		} else {
			skipped++
		}
	}
	return kept, skipped
}

func (c *Calibrator) addWindow(name string, window []float64) bool {
	if len(window) == 0 || mathutil.RMS(window) < c.cfg.SilenceRMS {
		return false
	}
	mfcc := make([]float64, c.cfg.Feature.MFCCOrder)
	c.plan.MFCC(window, c.scratch, mfcc)
	c.appendFrame(name, mfcc)
	return true
}

// AddFrame records an already computed MFCC vector for the named phoneme.
func (c *Calibrator) AddFrame(name string, mfcc []float64) error {
	if len(mfcc) != c.cfg.Feature.MFCCOrder {
		return fmt.Errorf("%w: frame has %d coefficients, want %d",
			ErrInvalidProfile, len(mfcc), c.cfg.Feature.MFCCOrder)
	}
	c.appendFrame(name, append([]float64(nil), mfcc...))
	return nil
}

func (c *Calibrator) appendFrame(name string, mfcc []float64) {
	if _, ok := c.frames[name]; !ok {
		c.order = append(c.order, name)
	}
	c.frames[name] = append(c.frames[name], mfcc)
}

// Names returns the phonemes seen so far, in first-seen order.
func (c *Calibrator) Names() []string {
	return append([]string(nil), c.order...)
}

// Frames returns the raw MFCC frames recorded for name.
func (c *Calibrator) Frames(name string) [][]float64 {
	return c.frames[name]
}

// Profile averages the frames of every phoneme into a template and computes
// the population mean and standard deviation of each coefficient over all
// frames. If the rest phoneme was never recorded, its template is the global
// mean, which standardizes to zero.
func (c *Calibrator) Profile() (*Profile, error) {
	order := c.cfg.Feature.MFCCOrder
	total := 0
	for _, name := range c.order {
		total += len(c.frames[name])
	}
	if total == 0 {
		return nil, ErrNoFrames
	}

	mean := make([]float64, order)
	std := make([]float64, order)
	column := make([]float64, 0, total)
	for k := 0; k < order; k++ {
		column = column[:0]
		for _, name := range c.order {
			for _, f := range c.frames[name] {
				column = append(column, f[k])
			}
		}
		mean[k], std[k] = stat.PopMeanStdDev(column, nil)
	}

	templates := make([]Template, 0, len(c.order)+1)
	for _, name := range c.order {
		frames := c.frames[name]
		avg := make([]float64, order)
		for _, f := range frames {
			floats.Add(avg, f)
		}
		floats.Scale(1/float64(len(frames)), avg)
		templates = append(templates, Template{Name: name, Coeffs: avg})
	}
	if _, ok := c.frames[c.cfg.Rest]; !ok {
		templates = append(templates, Template{Name: c.cfg.Rest, Coeffs: append([]float64(nil), mean...)})
	}

	p := &Profile{
		Name:             c.cfg.Name,
		TargetSampleRate: c.cfg.Feature.TargetSampleRate,
		SampleCount:      c.cfg.Feature.SampleCount,
		MelChannels:      c.cfg.Feature.MelChannels,
		MFCCOrder:        order,
		Method:           c.cfg.Method,
		Rest:             c.cfg.Rest,
		Mean:             mean,
		Std:              std,
		Phonemes:         templates,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
