package feature

import (
	"math"
	"testing"
)

func generateSine(n int, freq, rate float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return samples
}

func BenchmarkFFTPlan_512(b *testing.B) {
	plan := NewFFTPlan(512)
	src := generateSine(512, 440, 16000)
	re := make([]float64, 512)
	im := make([]float64, 512)
	power := make([]float64, plan.Bins())
	b.ResetTimer()
	for b.Loop() {
		copy(re, src)
		plan.PowerSpectrum(re, im, power)
	}
}

func BenchmarkFilterFIR(b *testing.B) {
	taps := LowPassTaps(48000, 8000, 500)
	src := generateSine(1024, 440, 48000)
	dst := make([]float64, len(src))
	b.ResetTimer()
	for b.Loop() {
		FilterFIR(taps, src, dst)
	}
}

func BenchmarkPlanMFCC(b *testing.B) {
	plan, err := NewPlan(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	s := plan.NewScratch()
	linear := generateSine(plan.Config.SampleCount, 440, 48000)
	dst := make([]float64, plan.Config.MFCCOrder)
	b.ResetTimer()
	for b.Loop() {
		plan.MFCC(linear, s, dst)
	}
}
