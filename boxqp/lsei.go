// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import "math"

// ldp solves the least distance program 𝚖𝚒𝚗 ‖ 𝐱 ‖₂ subject to 𝐆𝐱 ≥ 𝐡
// through its NNLS dual: with 𝐀 = [𝐆 : 𝐡]ᵀ and 𝐛 = [0 ··· 0 : 1]ᵀ the NNLS
// solution 𝐮 yields 𝐱 = 𝐆ᵀ𝐮 / ‖ 𝐫 ‖₂² where 𝐫 is the NNLS residual; a zero
// residual flags incompatible constraints. 𝐆 is m × n column-major with
// leading dimension mdg; there is no restriction on its rank.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall,
// 1974. (revised 1995 edition) Chapters 23, Algorithm 23.27.
func ldp(g []float64, mdg, m, n int, h, x []float64, maxIter int) solveMode {

	if n <= 0 {
		return badInput
	}
	if m <= 0 {
		dzero(x[:n])
		return solved
	}

	a := make([]float64, (n+1)*m)
	b := make([]float64, n+1)
	u := make([]float64, m)

	// 𝐀 = [𝐆 : 𝐡]ᵀ column by column, 𝐛 = [0 ··· 0 : 1]ᵀ.
	for j := 0; j < m; j++ {
		dcopy(n, g[j:], mdg, a[j*(n+1):], 1)
		a[j*(n+1)+n] = h[j]
	}
	b[n] = one

	rnorm, mode := nnls(a, n+1, n+1, m, b, u, maxIter)
	if mode != solved {
		return mode
	}
	if rnorm <= zero {
		return incompatibleCons
	}
	fac := one - ddot(m, h, 1, u, 1) // -𝐫ₙ₊₁ = 1 - 𝐡ᵀ𝐮
	if math.IsNaN(fac) || fac < eps {
		return incompatibleCons
	}

	fac = one / fac
	for j := 0; j < n; j++ { // 𝐱 = 𝐆ᵀ𝐮 / ‖ 𝐫 ‖₂²
		x[j] = ddot(m, g[mdg*j:], 1, u, 1) * fac
	}
	return solved
}

// lsi solves 𝚖𝚒𝚗‖ 𝐄𝐱 - 𝐟 ‖₂ subject to 𝐆𝐱 ≥ 𝐡 where 𝐄 is me × n of full
// column rank. 𝐄 is triangularized by Householder steps from the left,
// the constraints are transformed to the least distance form
// 𝐆𝐑⁻¹𝐳 ≥ 𝐡 - 𝐆𝐑⁻¹𝐟߫₁ and the LDP solution is mapped back through
// 𝐱 = 𝐑⁻¹(𝐳 + 𝐟߫₁). Both matrices are column-major with leading dimensions
// me and mg; e, f, g and h are clobbered.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall,
// 1974. (revised 1995 edition) Chapters 23, Section 5.
func lsi(e, f, g, h []float64, me, mg, n int, x []float64, maxIter int) solveMode {

	if n < 1 {
		return badInput
	}

	// QR-factors of 𝐄 applied to 𝐟.
	for i := 0; i < n; i++ {
		j := min(i+1, n-1)
		t := h1(i, i+1, me, e[i*me:], 1)
		h2(i, i+1, me, e[i*me:], 1, t, e[j*me:], 1, me, n-i-1)
		h2(i, i+1, me, e[i*me:], 1, t, f, 1, 1, 1)
	}

	// Transform 𝐆 and 𝐡 to least distance form.
	for i := 0; i < mg; i++ {
		for j := 0; j < n; j++ {
			diag := e[j+me*j]
			if math.Abs(diag) < eps || math.IsNaN(diag) {
				return singularE // 𝚛𝚊𝚗𝚔(𝐄) < n
			}
			g[i+mg*j] = (g[i+mg*j] - ddot(j, g[i:], mg, e[j*me:], 1)) / diag
		}
		h[i] -= ddot(n, g[i:], mg, f, 1)
	}

	if mode := ldp(g, mg, mg, n, h, x, maxIter); mode != solved {
		return mode
	}

	// 𝐱 = 𝐑⁻¹(𝐳 + 𝐟߫₁)
	daxpy(n, one, f, 1, x, 1)
	for i := n - 1; i >= 0; i-- {
		j := min(i+1, n-1)
		x[i] = (x[i] - ddot(n-i-1, e[i+me*j:], me, x[j:], 1)) / e[i+me*i]
	}
	return solved
}

// lsei solves 𝚖𝚒𝚗‖ 𝐄𝐱 - 𝐟 ‖₂ subject to 𝐂𝐱 = 𝐝 and 𝐆𝐱 ≥ 𝐡 with
// 𝚛𝚊𝚗𝚔(𝐂) = mc ≤ n. The equalities are eliminated by triangularizing 𝐂
// from the right with Householder reflections 𝐂𝐊 = [𝐂߬₁ ೦]: the first mc
// components 𝐲₁ follow from the triangular system 𝐂߬₁𝐲₁ = 𝐝, the remaining
// ones from the reduced problem over 𝐄𝐊 and 𝐆𝐊, which is an LSI when
// inequality rows are present and a plain QR least squares otherwise.
// All matrices are column-major with leading dimensions max(mc,1), me and
// max(mg,1); every input is clobbered.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall,
// 1974. (revised 1995 edition) Chapters 20, Algorithm 20.24, Chapters 23,
// Section 6.
func lsei(c, d, e, f, g, h []float64, mc, me, mg, n int, x []float64, maxIter int) solveMode {

	if n < 1 || mc > n {
		return badInput
	}

	lc, le, lg := max(mc, 1), max(me, 1), max(mg, 1)
	l := n - mc

	// Triangularize 𝐂 from the right and carry 𝐊 into 𝐄 and 𝐆.
	wp := make([]float64, mc)
	for i := 0; i < mc; i++ {
		j := min(i+1, lc-1)
		wp[i] = h1(i, i+1, n, c[i:], lc)
		h2(i, i+1, n, c[i:], lc, wp[i], c[j:], lc, 1, mc-i-1)
		h2(i, i+1, n, c[i:], lc, wp[i], e, le, 1, me)
		h2(i, i+1, n, c[i:], lc, wp[i], g, lg, 1, mg)
	}

	// Solve the triangular system 𝐂߬₁𝐲₁ = 𝐝.
	for i := 0; i < mc; i++ {
		diag := c[i+lc*i]
		if math.Abs(diag) < eps {
			return singularC // 𝚛𝚊𝚗𝚔(𝐂) < mc
		}
		x[i] = (d[i] - ddot(i, c[i:], lc, x, 1)) / diag
	}

	if mc < n {
		wf := make([]float64, me)
		for i := 0; i < me; i++ { // 𝐟 - 𝐄߬₁𝐲߮₁
			wf[i] = f[i] - ddot(mc, e[i:], le, x, 1)
		}
		we := make([]float64, le*l) // 𝐄߬₂
		wg := make([]float64, lg*l) // 𝐆߬₂
		for i := 0; i < me; i++ {
			dcopy(l, e[i+le*mc:], le, we[i:], le)
		}
		for i := 0; i < mg; i++ {
			dcopy(l, g[i+lg*mc:], lg, wg[i:], lg)
		}

		if mg > 0 {
			for i := 0; i < mg; i++ { // 𝐡 - 𝐆߬₁𝐲߮₁
				h[i] -= ddot(mc, g[i:], lg, x, 1)
			}
			if mode := lsi(we, wf, wg, h, me, mg, l, x[mc:n], maxIter); mode != solved {
				return mode
			}
		} else {
			// Unconstrained reduced problem: QR of 𝐄߬₂ and back substitution.
			for i := 0; i < l; i++ {
				j := min(i+1, l-1)
				up := h1(i, i+1, me, we[i*le:], 1)
				h2(i, i+1, me, we[i*le:], 1, up, we[j*le:], 1, le, l-i-1)
				h2(i, i+1, me, we[i*le:], 1, up, wf, 1, 1, 1)
			}
			for i := l - 1; i >= 0; i-- {
				diag := we[i+le*i]
				if math.Abs(diag) < eps {
					return singularE
				}
				j := min(i+1, l-1)
				x[mc+i] = (wf[i] - ddot(l-i-1, we[i+le*j:], le, x[mc+j:], 1)) / diag
			}
		}
	}

	// 𝐱߮ = 𝐊[𝐲߮₁ 𝐲߮₂]ᵀ
	for i := mc - 1; i >= 0; i-- {
		h2(i, i+1, n, c[i:], lc, wp[i], x, 1, 1, 1)
	}
	return solved
}
