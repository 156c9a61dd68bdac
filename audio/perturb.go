package audio

// SpeedPerturb plays samples back at factor times the original speed without
// changing the sample rate. factor > 1 shortens the take and raises its pitch,
// factor < 1 lengthens and lowers it. The result has int(len/factor) samples,
// linearly interpolated between source neighbours.
func SpeedPerturb(samples []float64, factor float64) []float64 {
	if len(samples) == 0 || factor <= 0 {
		return nil
	}
	n := int(float64(len(samples)) / factor)
	if n == 0 {
		return nil
	}

	last := len(samples) - 1
	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * factor
		i0 := int(pos)
		if i0 >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(i0)
		out[i] = samples[i0] + (samples[i0+1]-samples[i0])*frac
	}
	return out
}

// Float64s widens a float32 buffer.
func Float64s(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// Float32s narrows a float64 buffer.
func Float32s(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}
