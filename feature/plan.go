package feature

import (
	"fmt"

	"github.com/ieee0824/lipsync-go/internal/mathutil"
)

// Plan holds every table the MFCC stages need for one Config.
// A Plan is read-only after NewPlan and may be shared by any number of
// goroutines, each with its own Scratch.
type Plan struct {
	Config   Config
	FrameLen int // samples after decimation
	FFT      *FFTPlan
	Mel      *MelPlan
	DCT      *DCTPlan
	Taps     []float64 // low-pass FIR, odd length
	Window   []float64 // Hamming, FFT.Size points

	dec decimation
}

// NewPlan validates cfg and precomputes all tables.
func NewPlan(cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frameLen := cfg.ResampledLen()
	n := mathutil.NextPow2(frameLen)
	if n < 2 {
		n = 2
	}
	return &Plan{
		Config:   cfg,
		FrameLen: frameLen,
		FFT:      NewFFTPlan(n),
		Mel:      NewMelPlan(cfg.MelChannels, n, cfg.TargetSampleRate),
		DCT:      NewDCTPlan(cfg.MFCCOrder, cfg.MelChannels),
		Taps:     LowPassTaps(cfg.InputSampleRate, float64(cfg.TargetSampleRate)/2, cfg.TransitionHz),
		Window:   NewHammingWindow(n),
		dec:      cfg.decimation(),
	}, nil
}

// String summarizes the plan sizes.
func (p *Plan) String() string {
	return fmt.Sprintf("frame=%d fft=%d bins=%d mel=%d(%d weights) mfcc=%d taps=%d",
		p.FrameLen, p.FFT.Size, p.FFT.Bins(), p.Mel.Bands, len(p.Mel.Weights), p.DCT.Order, len(p.Taps))
}

// Scratch holds the per-caller buffers of each stage, sized for one Plan.
type Scratch struct {
	Filtered  []float64 // [SampleCount] low-passed input
	Resampled []float64 // [FrameLen] decimated, pre-emphasized
	Re        []float64 // [FFT.Size] windowed frame, then real part
	Im        []float64 // [FFT.Size]
	Power     []float64 // [FFT.Bins()]
	Mel       []float64 // [MelChannels] band power, then log power
}

// NewScratch allocates buffers sized for p.
func (p *Plan) NewScratch() *Scratch {
	return &Scratch{
		Filtered:  make([]float64, p.Config.SampleCount),
		Resampled: make([]float64, p.FrameLen),
		Re:        make([]float64, p.FFT.Size),
		Im:        make([]float64, p.FFT.Size),
		Power:     make([]float64, p.FFT.Bins()),
		Mel:       make([]float64, p.Mel.Bands),
	}
}

// LowPass runs the FIR filter over linear into s.Filtered.
func (p *Plan) LowPass(linear []float64, s *Scratch) []float64 {
	out := s.Filtered[:len(linear)]
	FilterFIR(p.Taps, linear, out)
	return out
}

// Resample decimates src to the target rate with fused pre-emphasis into s.Resampled.
func (p *Plan) Resample(src []float64, s *Scratch) []float64 {
	n := downsampleEmphasize(src, s.Resampled, p.dec, p.Config.PreEmphasis)
	return s.Resampled[:n]
}

// WindowFrame copies frame into the zero-padded s.Re and applies the Hamming window.
func (p *Plan) WindowFrame(frame []float64, s *Scratch) {
	n := copy(s.Re, frame)
	clear(s.Re[n:])
	for i, w := range p.Window {
		s.Re[i] *= w
	}
}

// MFCC runs low-pass, decimation, windowing, FFT, mel binning, log and DCT
// over one linear frame of input samples and writes MFCCOrder coefficients
// into dst. linear may be shorter than SampleCount but not longer.
func (p *Plan) MFCC(linear []float64, s *Scratch, dst []float64) {
	filtered := p.LowPass(linear, s)
	frame := p.Resample(filtered, s)
	p.WindowFrame(frame, s)
	p.FFT.PowerSpectrum(s.Re, s.Im, s.Power)
	p.Mel.Apply(s.Power, s.Mel, p.Config.MelFloor)
	LogPower(s.Mel)
	p.DCT.Apply(s.Mel, dst)
}
