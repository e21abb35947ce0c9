// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boxqp provides a dense convex quadratic program backend for the
// sco solver: variables with box bounds, linear equality and inequality
// constraints, and a quadratic objective
//
//	minimize ½ 𝐱ᵀ𝐐𝐱 + 𝐜ᵀ𝐱 subject to
//	  - 𝐀ⱼ𝐱 + 𝐛ⱼ = 0  (equality rows)
//	  - 𝐀ⱼ𝐱 + 𝐛ⱼ ≤ 0  (inequality rows)
//	  - 𝒍ᵢ ≤ 𝐱ᵢ ≤ 𝒖ᵢ
//
// The solve path Cholesky-factors the (regularized) Hessian 𝐐 = 𝐔ᵀ𝐔 and
// reduces the program to LSEI form 𝚖𝚒𝚗‖ 𝐄𝐱 - 𝐟 ‖₂ subject to 𝐂𝐱 = 𝐝 and
// 𝐆𝐱 ≥ 𝐡 with 𝐄 = 𝐔 and 𝐟 = -𝐔⁻ᵀ𝐜; finite bounds contribute ±𝐈 rows to 𝐆.
// LSEI is solved with the Lawson-Hanson chain: equality elimination by
// Householder triangularization, transformation to least distance
// programming, and LDP through its non-negative least squares dual.
package boxqp

import "math"

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// solveMode is the outcome of a least squares kernel.
type solveMode int

const (
	// solved the kernel produced a minimizer.
	solved solveMode = iota
	// badInput dimensions unacceptable.
	badInput
	// exceedIter more than max iterations for solving NNLS.
	exceedIter
	// incompatibleCons inequality constraints incompatible.
	incompatibleCons
	// singularE matrix E is not of full rank in LSI.
	singularE
	// singularC matrix C is not of full rank in LSEI.
	singularC
)

// nnls solves 𝚖𝚒𝚗‖ 𝐀𝐱 - 𝐛 ‖₂ subject to 𝐱 ≥ 0 with the Lawson-Hanson
// active-set method. 𝐀 is an m × n column-major matrix with leading
// dimension mda; on return a and b hold the triangularized products 𝐐𝐀 and
// 𝐐𝐛. Indices move between the zero set (variables held at zero) and the
// passive set (variables free to go positive); each round frees the
// variable with the most positive dual component 𝐰 = 𝐀ᵀ(𝐛 - 𝐀𝐱), extends
// the QR factorization by one Householder step and backs off along the
// feasibility segment when freed variables would turn negative, retiring
// them with Givens downdates.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall,
// 1974. (revised 1995 edition) Chapters 23, Algorithm 23.10.
func nnls(a []float64, mda, m, n int, b, x []float64, maxIter int) (rnorm float64, mode solveMode) {

	const factor = 0.01

	if m <= 0 || n <= 0 || mda < m ||
		len(a) < mda*n || len(b) < m || len(x) < n {
		return math.NaN(), badInput
	}

	if maxIter <= 0 {
		maxIter = 3 * n
	}

	w := make([]float64, n)
	z := make([]float64, m)
	index := make([]int, n)

	np := 0 // number of indices in the passive set
	z1 := 0 // start of the zero set within index

	for i := range index {
		index[i] = i
	}

	// Start from 𝐱 = 0 with every index in the zero set.
	dzero(x[:n])

	iter := 0
	term := func() (float64, solveMode) {
		var norm float64
		if np < m {
			norm = dnrm2(m-np, b[np:], 1) // ‖ 𝐐ᵀ𝐛₂ ‖₂
		} else {
			dzero(w[:n])
		}
		if iter > maxIter {
			return norm, exceedIter
		}
		return norm, solved
	}

	for {
		// Quit when every coefficient is positive or m columns have been
		// triangularized.
		if z1 >= n || np >= m {
			return term()
		}

		// Dual components for the zero set. With 𝐱ⱼ = 0 on the zero set and
		// 𝐰ⱼ = 0 on the passive set this reduces to 𝐰 = 𝐀ᵀ𝐛 on the
		// untriangularized rows.
		for _, j := range index[z1:] {
			w[j] = ddot(m-np, a[np+mda*j:], 1, b[np:], 1)
		}

		for {
			// Most positive dual component in the zero set.
			wmax, izmax := zero, 0
			for i, j := range index[z1:] {
				if w[j] > wmax {
					wmax, izmax = w[j], z1+i
				}
			}

			// Kuhn-Tucker conditions hold when no component is positive.
			if wmax <= zero {
				return term()
			}

			iz := izmax
			j := index[iz]
			aj := a[mda*j : mda*j+m : mda*j+m]

			// Extend the QR factorization by the candidate column.
			asave := aj[np]
			up := h1(np, np+1, m, aj, 1)

			// Reject a column that is nearly dependent on the passive set,
			// or whose unconstrained coefficient would not be positive.
			accept := false
			unorm := dnrm2(np, aj, 1)
			if math.Abs(aj[np])*factor >= unorm*eps {
				copy(z[:m], b[:m])
				h2(np, np+1, m, aj, 1, up, z, 1, 1, 1)
				accept = z[np]/aj[np] > zero
			}
			if !accept {
				aj[np] = asave
				w[j] = zero
				continue
			}

			// Accept: commit 𝐐𝐛, move j to the passive set and apply the
			// reflector to the remaining zero-set columns.
			copy(b[:m], z[:m])
			index[iz] = index[z1]
			index[z1] = j
			z1++
			np++
			if z1 < n {
				for _, jj := range index[z1:] {
					h2(np-1, np, m, aj, 1, up, a[jj*mda:], 1, mda, 1)
				}
			}
			if np < m {
				dzero(aj[np:m])
			}
			w[j] = zero
			break
		}

		// Inner loop: solve the passive-set least squares and move
		// variables that turned negative back to the zero set.
		for {
			// Back substitution through the triangular factor.
			for ip, jj := np-1, -1; ip >= 0; ip-- {
				if jj >= 0 {
					daxpy(ip+1, -z[ip+1], a[jj*mda:], 1, z, 1)
				}
				jj = index[ip]
				z[ip] /= a[ip+jj*mda]
			}

			if iter++; iter > maxIter {
				return term()
			}

			// Feasibility step length toward the unconstrained solution.
			alpha, jj := two, -1
			for ip, l := range index[:np] {
				if z[ip] <= zero {
					t := -x[l] / (z[ip] - x[l])
					if alpha > t {
						alpha, jj = t, ip
					}
				}
			}

			// All passive coefficients feasible: adopt the solution.
			if jj < 0 {
				for ip, idx := range index[:np] {
					x[idx] = z[ip]
				}
				break
			}

			// Interpolate 𝐱 ← 𝐱 + ɑ(𝐬 - 𝐱) and retire the blocking index.
			for ip, l := range index[:np] {
				x[l] += alpha * (z[ip] - x[l])
			}

			i := index[jj]
			x[i] = zero
			for j := jj + 1; j < np; j++ {
				ii := index[j]
				ci := a[ii*mda:]
				index[j-1] = ii
				var cc, ss float64
				cc, ss, ci[j-1] = g1(ci[j-1], ci[j])
				ci[j] = zero
				for l := 0; l < n; l++ {
					if l != ii {
						cl := a[l*mda : l*mda+j+1 : l*mda+j+1]
						cl[j-1], cl[j] = g2(cc, ss, cl[j-1], cl[j])
					}
				}
				b[j-1], b[j] = g2(cc, ss, b[j-1], b[j])
			}
			np--
			z1--
			index[z1] = i

			copy(z[:m], b[:m])
		}
	}
}
