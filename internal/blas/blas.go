// Package blas provides the small dense matrix product used by batch scoring.
package blas

import "github.com/ieee0824/lipsync-go/internal/simd"

// Dgemm performs C = alpha*op(A)*op(B) + beta*C.
// All matrices are row-major. op(X) = X if trans=false, X^T if trans=true.
// A is (m x k) or (k x m) if transA, B is (k x n) or (n x k) if transB, C is (m x n).
//
// When A is untransposed and B is transposed every output element is a dot
// product of two contiguous rows, which goes through simd.Dot. Other layouts
// fall back to a strided loop.
func Dgemm(transA, transB bool, m, n, k int,
	alpha float64, a []float64, lda int,
	b []float64, ldb int,
	beta float64, c []float64, ldc int) {

	if !transA && transB {
		for i := 0; i < m; i++ {
			row := a[i*lda : i*lda+k]
			for j := 0; j < n; j++ {
				sum := simd.Dot(row, b[j*ldb:j*ldb+k])
				c[i*ldc+j] = alpha*sum + beta*c[i*ldc+j]
			}
		}
		return
	}

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for p := 0; p < k; p++ {
				var aVal, bVal float64
				if transA {
					aVal = a[p*lda+i]
				} else {
					aVal = a[i*lda+p]
				}
				if transB {
					bVal = b[j*ldb+p]
				} else {
					bVal = b[p*ldb+j]
				}
				sum += aVal * bVal
			}
			c[i*ldc+j] = alpha*sum + beta*c[i*ldc+j]
		}
	}
}
