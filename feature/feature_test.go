package feature

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

func TestHammingWindow(t *testing.T) {
	w := NewHammingWindow(10)
	assert.InDelta(t, 0.08, w[0], 1e-12)
	assert.InDelta(t, 0.08, w[9], 1e-12)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, w[i], w[9-i], 1e-15)
	}
	assert.Equal(t, []float64{1}, NewHammingWindow(1))
}

// dft is the O(n^2) transform the plan is checked against.
func dft(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := range out {
		var sum complex128
		for j, v := range x {
			sum += v * cmplx.Exp(complex(0, -2*math.Pi*float64(k*j%n)/float64(n)))
		}
		out[k] = sum
	}
	return out
}

// dctII is the unplanned DCT-II, coefficient 0 included.
func dctII(x []float64, order int) []float64 {
	n := len(x)
	out := make([]float64, order)
	for k := range out {
		for j, v := range x {
			out[k] += v * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/float64(n))
		}
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"input rate":  func(c *Config) { c.InputSampleRate = 0 },
		"target rate": func(c *Config) { c.TargetSampleRate = -1 },
		"samples":     func(c *Config) { c.SampleCount = 0 },
		"mel":         func(c *Config) { c.MelChannels = 0 },
		"order":       func(c *Config) { c.MFCCOrder = 0 },
		"transition":  func(c *Config) { c.TransitionHz = 9000 },
		"floor":       func(c *Config) { c.MelFloor = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestResampledLen(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 342, cfg.ResampledLen()) // ceil(1024/3)

	cfg.InputSampleRate = 44100
	// step 2.75625, floor(1023/2.75625)+1
	assert.Equal(t, 372, cfg.ResampledLen())

	cfg.InputSampleRate = 16000
	assert.Equal(t, 1024, cfg.ResampledLen())
}

func TestDownsampleEmphasize(t *testing.T) {
	src := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
	dst := make([]float64, len(src))

	n := downsampleEmphasize(src, dst, decimation{skip: 3}, 0)
	require.Equal(t, 3, n)
	assert.Equal(t, []float64{0, 3, 6}, dst[:n])

	n = downsampleEmphasize(src, dst, decimation{skip: 3}, 0.5)
	require.Equal(t, 3, n)
	assert.InDeltaSlice(t, []float64{0, 3, 4.5}, dst[:n], 1e-12)

	n = downsampleEmphasize(src[:5], dst, decimation{step: 1.5}, 0)
	require.Equal(t, 3, n)
	assert.InDeltaSlice(t, []float64{0, 1.5, 3}, dst[:n], 1e-12)

	assert.Equal(t, 0, downsampleEmphasize(nil, dst, decimation{skip: 2}, 0.97))
}

func TestLowPassTaps(t *testing.T) {
	taps := LowPassTaps(48000, 8000, 500)
	require.Equal(t, 1, len(taps)%2, "tap count must be odd")
	assert.Greater(t, len(taps), 100)

	sum := 0.0
	for _, v := range taps {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	// Symmetric around the center tap.
	n := len(taps)
	for i := 0; i < n/2; i++ {
		assert.InDelta(t, taps[i], taps[n-1-i], 1e-15)
	}

	assert.Equal(t, []float64{1}, LowPassTaps(16000, 8000, 500))
}

func TestFilterFIR(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	dst := make([]float64, len(src))

	FilterFIR([]float64{1}, src, dst)
	assert.Equal(t, src, dst)

	FilterFIR([]float64{0.5, 0.5}, src, dst)
	assert.InDeltaSlice(t, []float64{0.5, 1.5, 2.5, 3.5}, dst, 1e-12)

	// DC passes through once the filter is primed.
	taps := LowPassTaps(48000, 8000, 500)
	dc := make([]float64, 2*len(taps))
	for i := range dc {
		dc[i] = 0.25
	}
	out := make([]float64, len(dc))
	FilterFIR(taps, dc, out)
	for i := len(taps) - 1; i < len(out); i++ {
		assert.InDelta(t, 0.25, out[i], 1e-12)
	}
}

func TestFFTPlanImpulse(t *testing.T) {
	plan := NewFFTPlan(8)
	re := make([]float64, 8)
	im := make([]float64, 8)
	re[0] = 1
	plan.Transform(re, im)
	for i := range re {
		assert.InDelta(t, 1, re[i], 1e-12, "re[%d]", i)
		assert.InDelta(t, 0, im[i], 1e-12, "im[%d]", i)
	}
}

func TestFFTPlanMatchesReference(t *testing.T) {
	for _, n := range []int{2, 4, 8, 64, 512} {
		plan := NewFFTPlan(n)
		re := make([]float64, n)
		im := make([]float64, n)
		x := make([]complex128, n)
		for i := range re {
			re[i] = math.Sin(0.37*float64(i)) + 0.1*float64(i%5)
			im[i] = math.Cos(0.11 * float64(i))
			x[i] = complex(re[i], im[i])
		}
		want := dft(x)
		plan.Transform(re, im)
		for i := range want {
			assert.InDelta(t, real(want[i]), re[i], 1e-9, "n=%d re[%d]", n, i)
			assert.InDelta(t, imag(want[i]), im[i], 1e-9, "n=%d im[%d]", n, i)
		}
	}
}

func TestPowerSpectrumSineBin(t *testing.T) {
	const n = 512
	const bin = 32
	plan := NewFFTPlan(n)
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range re {
		re[i] = math.Sin(2 * math.Pi * bin * float64(i) / n)
	}
	power := make([]float64, plan.Bins())
	plan.PowerSpectrum(re, im, power)

	// Unnormalized transform: a unit sine puts (n/2)^2 into its bin.
	assert.InDelta(t, float64(n*n/4), power[bin], 1e-6)
	for k, p := range power {
		if k != bin {
			assert.Less(t, p, 1e-12, "leakage in bin %d", k)
		}
	}
}

func TestPowerSpectrumMatchesGonum(t *testing.T) {
	const n = 256
	frame := make([]float64, 200)
	for i := range frame {
		frame[i] = math.Sin(2*math.Pi*440*float64(i)/16000) + 0.3*math.Cos(2*math.Pi*1900*float64(i)/16000)
	}

	padded := make([]float64, n)
	copy(padded, frame)
	coeffs := fourier.NewFFT(n).Coefficients(nil, padded)

	plan := NewFFTPlan(n)
	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, frame)
	power := make([]float64, plan.Bins())
	plan.PowerSpectrum(re, im, power)

	require.Len(t, coeffs, plan.Bins())
	for k := range power {
		want := real(coeffs[k])*real(coeffs[k]) + imag(coeffs[k])*imag(coeffs[k])
		assert.InDelta(t, want, power[k], 1e-8*(1+want), "bin %d", k)
	}
}

func TestMelPlan(t *testing.T) {
	p := NewMelPlan(30, 512, 16000)
	require.Equal(t, 257, p.SpecLen)
	for b := 0; b < p.Bands; b++ {
		require.Greater(t, p.Count[b], 0, "band %d is empty", b)
		off := p.Offset[b]
		for i := 0; i < p.Count[b]; i++ {
			assert.Equal(t, p.First[b]+i, p.Bins[off+i], "band %d run is not contiguous", b)
			assert.Greater(t, p.Weights[off+i], 0.0)
			assert.Less(t, p.Bins[off+i], p.SpecLen)
		}
		if b > 0 {
			assert.GreaterOrEqual(t, p.First[b], p.First[b-1])
		}
	}
}

func TestMelApplyFloor(t *testing.T) {
	p := NewMelPlan(8, 64, 16000)
	power := make([]float64, p.SpecLen)
	dst := make([]float64, p.Bands)
	p.Apply(power, dst, 1e-10)
	for _, v := range dst {
		assert.Equal(t, 1e-10, v)
	}
	LogPower(dst)
	for _, v := range dst {
		assert.InDelta(t, -100.0, v, 1e-9)
	}
}

func TestDCTPlanSkipsC0(t *testing.T) {
	logMel := []float64{1, 4, 2, 8, 5, 7}
	full := dctII(logMel, 5)
	plan := NewDCTPlan(4, len(logMel))
	dst := make([]float64, 4)
	plan.Apply(logMel, dst)
	assert.InDeltaSlice(t, full[1:], dst, 1e-10)
}

func TestPlanSilenceGivesFlatCepstrum(t *testing.T) {
	plan, err := NewPlan(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 512, plan.FFT.Size)
	assert.Equal(t, 342, plan.FrameLen)

	s := plan.NewScratch()
	mfcc := make([]float64, plan.Config.MFCCOrder)
	plan.MFCC(make([]float64, plan.Config.SampleCount), s, mfcc)
	// Every band sits on the floor, and a constant has no energy past c0.
	for i, v := range mfcc {
		assert.InDelta(t, 0, v, 1e-9, "c%d", i+1)
	}
}

func TestPlanDeterministic(t *testing.T) {
	plan, err := NewPlan(DefaultConfig())
	require.NoError(t, err)
	linear := generateSine(plan.Config.SampleCount, 700, 48000)

	a := make([]float64, plan.Config.MFCCOrder)
	b := make([]float64, plan.Config.MFCCOrder)
	plan.MFCC(linear, plan.NewScratch(), a)
	plan.MFCC(linear, plan.NewScratch(), b)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestPlanDistinguishesTones(t *testing.T) {
	plan, err := NewPlan(DefaultConfig())
	require.NoError(t, err)
	s := plan.NewScratch()

	low := make([]float64, plan.Config.MFCCOrder)
	high := make([]float64, plan.Config.MFCCOrder)
	plan.MFCC(generateSine(plan.Config.SampleCount, 300, 48000), s, low)
	plan.MFCC(generateSine(plan.Config.SampleCount, 3000, 48000), s, high)

	dist := 0.0
	for i := range low {
		dist += math.Abs(low[i] - high[i])
	}
	assert.Greater(t, dist, 10.0)
}

func TestNewPlanRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MelChannels = 0
	_, err := NewPlan(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
