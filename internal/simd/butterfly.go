package simd

// ButterflyBlock performs radix-2 FFT butterflies on split real/imaginary arrays.
// For k in 0..len(uRe)-1:
//
//	t_re = twRe[k]*vRe[k] - twIm[k]*vIm[k]
//	t_im = twRe[k]*vIm[k] + twIm[k]*vRe[k]
//	uRe[k], vRe[k] = uRe[k]+t_re, uRe[k]-t_re
//	uIm[k], vIm[k] = uIm[k]+t_im, uIm[k]-t_im
//
// The main loop handles four butterflies per iteration; a scalar loop finishes
// the remainder. Every lane is independent, so the result is identical to the
// plain loop.
func ButterflyBlock(uRe, uIm, vRe, vIm, twRe, twIm []float64) {
	n := len(uRe)
	if n == 0 {
		return
	}
	// Hoist bounds checks out of the loops.
	_, _, _, _, _ = uIm[n-1], vRe[n-1], vIm[n-1], twRe[n-1], twIm[n-1]

	k := 0
	for ; k+4 <= n; k += 4 {
		tre0 := twRe[k]*vRe[k] - twIm[k]*vIm[k]
		tim0 := twRe[k]*vIm[k] + twIm[k]*vRe[k]
		tre1 := twRe[k+1]*vRe[k+1] - twIm[k+1]*vIm[k+1]
		tim1 := twRe[k+1]*vIm[k+1] + twIm[k+1]*vRe[k+1]
		tre2 := twRe[k+2]*vRe[k+2] - twIm[k+2]*vIm[k+2]
		tim2 := twRe[k+2]*vIm[k+2] + twIm[k+2]*vRe[k+2]
		tre3 := twRe[k+3]*vRe[k+3] - twIm[k+3]*vIm[k+3]
		tim3 := twRe[k+3]*vIm[k+3] + twIm[k+3]*vRe[k+3]

		ur0, ui0 := uRe[k], uIm[k]
		ur1, ui1 := uRe[k+1], uIm[k+1]
		ur2, ui2 := uRe[k+2], uIm[k+2]
		ur3, ui3 := uRe[k+3], uIm[k+3]

		uRe[k], uIm[k], vRe[k], vIm[k] = ur0+tre0, ui0+tim0, ur0-tre0, ui0-tim0
		uRe[k+1], uIm[k+1], vRe[k+1], vIm[k+1] = ur1+tre1, ui1+tim1, ur1-tre1, ui1-tim1
		uRe[k+2], uIm[k+2], vRe[k+2], vIm[k+2] = ur2+tre2, ui2+tim2, ur2-tre2, ui2-tim2
		uRe[k+3], uIm[k+3], vRe[k+3], vIm[k+3] = ur3+tre3, ui3+tim3, ur3-tre3, ui3-tim3
	}
	for ; k < n; k++ {
		tre := twRe[k]*vRe[k] - twIm[k]*vIm[k]
		tim := twRe[k]*vIm[k] + twIm[k]*vRe[k]
		ur := uRe[k]
		ui := uIm[k]
		uRe[k] = ur + tre
		uIm[k] = ui + tim
		vRe[k] = ur - tre
		vIm[k] = ui - tim
	}
}
