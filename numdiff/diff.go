// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package numdiff estimates Jacobians of vector functions by finite
// differences. It backs the trajectory cost and constraint terms whose
// analytic Jacobian is not supplied.
package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference,
	// falling back to a one-sided step at the bounds.
	Central
)

// Jacobian estimates the M × N Jacobian of a vector function by finite
// differences.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type Jacobian struct {
	N, M int
	// Function of which to estimate the derivatives.
	// The argument x passed to this function is an n-vector.
	// The result is stored in an m-vector y.
	F func(x, y []float64)
	// Finite difference method to use.
	Method Method
	// Optional lower and upper bounds on independent variables.
	// Evaluation points never leave the bounds.
	Lower, Upper []float64
	// Relative step size used to compute the absolute step size as
	// h = RelStep * sign(x0) * max(1, abs(x0)). A method-dependent
	// default is selected when zero.
	RelStep float64
}

// Diff estimates the Jacobian at x0 into jac, row-major with jac[r*N+c]
// holding ∂fᵣ/∂xᶜ. x0 is left untouched.
func (j *Jacobian) Diff(x0, jac []float64) error {
	switch {
	case j.N <= 0 || j.M <= 0:
		return errors.New("negative dimensions")
	case j.Method != Forward && j.Method != Central:
		return errors.New("unknown method")
	case j.F == nil:
		return errors.New("object function is required")
	case len(x0) != j.N:
		return errors.New("invalid x0 dimensions")
	case len(jac) != j.N*j.M:
		return errors.New("invalid jac dimensions")
	case j.Lower != nil && len(j.Lower) != j.N || j.Upper != nil && len(j.Upper) != j.N:
		return errors.New("invalid bound dimension")
	}

	rel := j.RelStep
	if rel == 0 {
		if j.Method == Central {
			rel = cubeEps
		} else {
			rel = sqrtEps
		}
	}

	x := make([]float64, j.N)
	f0 := make([]float64, j.M)
	fa := make([]float64, j.M)
	fb := make([]float64, j.M)

	copy(x, x0)
	j.F(x, f0)

	for i := 0; i < j.N; i++ {
		h := rel * math.Max(1, math.Abs(x0[i]))
		if math.Signbit(x0[i]) {
			h = -h
		}

		lo, hi := math.Inf(-1), math.Inf(1)
		if j.Lower != nil {
			lo = j.Lower[i]
		}
		if j.Upper != nil {
			hi = j.Upper[i]
		}

		switch {
		case j.Method == Central && x0[i]+h <= hi && x0[i]-h >= lo && x0[i]-h <= hi && x0[i]+h >= lo:
			x[i] = x0[i] + h
			j.F(x, fa)
			x[i] = x0[i] - h
			j.F(x, fb)
			for r := 0; r < j.M; r++ {
				jac[r*j.N+i] = (fa[r] - fb[r]) / (2 * h)
			}
		default:
			// One-sided step kept inside the bounds.
			if x0[i]+h < lo || x0[i]+h > hi {
				h = -h
			}
			x[i] = x0[i] + h
			j.F(x, fa)
			for r := 0; r < j.M; r++ {
				jac[r*j.N+i] = (fa[r] - f0[r]) / h
			}
		}
		x[i] = x0[i]
	}
	return nil
}
