package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedPerturb_Identity(t *testing.T) {
	samples := []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	result := SpeedPerturb(samples, 1.0)
	require.Len(t, result, len(samples))
	assert.InDeltaSlice(t, samples, result, 1e-12)
}

func TestSpeedPerturb_Length(t *testing.T) {
	n := 16000
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 16000)
	}
	for _, factor := range []float64{0.9, 1.1} {
		result := SpeedPerturb(samples, factor)
		assert.Len(t, result, int(float64(n)/factor))
		for _, v := range result {
			require.True(t, v >= -1.0001 && v <= 1.0001)
		}
	}
}

func TestSpeedPerturb_Interpolates(t *testing.T) {
	result := SpeedPerturb([]float64{0, 1, 2, 3}, 0.5)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}, result, 1e-12)
}

func TestSpeedPerturb_Degenerate(t *testing.T) {
	assert.Nil(t, SpeedPerturb(nil, 1))
	assert.Nil(t, SpeedPerturb([]float64{1}, 0))
	assert.Nil(t, SpeedPerturb([]float64{1}, 2))
}

func TestFloatConversions(t *testing.T) {
	assert.Equal(t, []float64{0.5, -0.25}, Float64s([]float32{0.5, -0.25}))
	assert.Equal(t, []float32{0.5, -0.25}, Float32s([]float64{0.5, -0.25}))
}

func TestResample_SameRateCopies(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Resample(in, 16000, 16000, 1)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, 1.0, in[0])
}

func TestResample_RejectsBadRates(t *testing.T) {
	_, err := Resample([]float64{1}, 0, 16000, 1)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResample_Length(t *testing.T) {
	in := make([]float64, 16000)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*300*float64(i)/16000)
	}
	out, err := Resample(in, 16000, 48000, 1)
	require.NoError(t, err)
	// Filter delay may trim or pad a little at the edges.
	assert.InDelta(t, 48000, len(out), 480)
}
