// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import "math"

// Strided vector helpers for the column-major kernels.
// Matrices are stored column-major with an explicit leading dimension, so a
// row is a vector with stride ld and a column a vector with stride 1.

// daxpy performs y ← y + a·x.
func daxpy(n int, a float64, x []float64, incx int, y []float64, incy int) {
	if n <= 0 || a == zero {
		return
	}
	for i, ix, iy := 0, 0, 0; i < n; i++ {
		y[iy] += a * x[ix]
		ix += incx
		iy += incy
	}
}

// ddot computes xᵀy.
func ddot(n int, x []float64, incx int, y []float64, incy int) (dot float64) {
	for i, ix, iy := 0, 0, 0; i < n; i++ {
		dot += x[ix] * y[iy]
		ix += incx
		iy += incy
	}
	return
}

// dcopy performs y ← x.
func dcopy(n int, x []float64, incx int, y []float64, incy int) {
	for i, ix, iy := 0, 0, 0; i < n; i++ {
		y[iy] = x[ix]
		ix += incx
		iy += incy
	}
}

// dscal performs x ← a·x.
func dscal(n int, a float64, x []float64, incx int) {
	for i, ix := 0, 0; i < n; i++ {
		x[ix] *= a
		ix += incx
	}
}

// dnrm2 computes ‖x‖₂ with overflow-safe scaling.
func dnrm2(n int, x []float64, incx int) float64 {
	var scale, ssq float64 = 0, 1
	for i, ix := 0, 0; i < n; i++ {
		if v := x[ix]; v != zero {
			a := math.Abs(v)
			if scale < a {
				r := scale / a
				ssq = one + ssq*r*r
				scale = a
			} else {
				r := a / scale
				ssq += r * r
			}
		}
		ix += incx
	}
	return scale * math.Sqrt(ssq)
}

// dzero clears a contiguous vector.
func dzero(x []float64) {
	for i := range x {
		x[i] = zero
	}
}
