// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/trajsqp/sco"
)

// Cholesky regularization: the Hessian carries a jitter of jitterScale
// times its dominant diagonal entry, escalated by jitterGrowth until the
// factorization succeeds. Penalty auxiliary columns have no quadratic term,
// so the unregularized Hessian is almost always singular PSD.
const (
	jitterScale   = 1e-8
	jitterGrowth  = 1e2
	jitterRetries = 5
)

// Optimize solves the current program. On sco.CvxSolved the minimizer is
// stored on the variables and available through VarValues; the solution is
// clamped onto the variable bounds to shed round-off.
//
// Equality rows must be linearly independent and no more numerous than the
// columns; dependent or contradictory rows report sco.CvxInfeasible. With
// the regularized Hessian and the trust boxes the sco loop sets, an
// unbounded program cannot arise here.
func (m *Model) Optimize() sco.CvxStatus {
	m.Update()
	n := len(m.vars)
	if n == 0 {
		return sco.CvxSolved
	}

	// Hessian 𝐐 and linear term 𝐜 of ½𝐱ᵀ𝐐𝐱 + 𝐜ᵀ𝐱.
	hess := make([]float64, n*n)
	cvec := make([]float64, n)
	obj := &m.objective
	for i, coeff := range obj.Coeffs {
		r, c := obj.Vars1[i].Rep.Index, obj.Vars2[i].Rep.Index
		if r == c {
			hess[r*n+c] += two * coeff
		} else {
			hess[r*n+c] += coeff
			hess[c*n+r] += coeff
		}
	}
	for i, coeff := range obj.Affine.Coeffs {
		cvec[obj.Affine.Vars[i].Rep.Index] += coeff
	}

	diagMax := one
	for i := 0; i < n; i++ {
		diagMax = math.Max(diagMax, math.Abs(hess[i*n+i]))
	}

	// 𝐐 + λ𝐈 = 𝐔ᵀ𝐔
	var chol mat.Cholesky
	ok := false
	jitter := diagMax * jitterScale
	for try := 0; try < jitterRetries; try++ {
		data := append([]float64(nil), hess...)
		for i := 0; i < n; i++ {
			data[i*n+i] += jitter
		}
		if chol.Factorize(mat.NewSymDense(n, data)) {
			ok = true
			break
		}
		jitter *= jitterGrowth
	}
	if !ok {
		return sco.CvxFailed
	}

	var u mat.TriDense
	chol.UTo(&u)

	// 𝐄 = 𝐔 column-major, 𝐟 = -𝐔⁻ᵀ𝐜 by forward substitution.
	e := make([]float64, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			e[i+n*j] = u.At(i, j)
		}
	}
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		s := cvec[i]
		for j := 0; j < i; j++ {
			s -= e[j+n*i] * f[j]
		}
		f[i] = s / e[i+n*i]
	}
	dscal(n, -one, f, 1)

	var eqs, ineqs []*cntRec
	for _, rec := range m.cnts {
		if rec.rep.Type == sco.EqCnt {
			eqs = append(eqs, rec)
		} else {
			ineqs = append(ineqs, rec)
		}
	}

	mc := len(eqs)
	if mc > n {
		return sco.CvxInfeasible
	}
	lc := max(mc, 1)
	cmat := make([]float64, lc*n)
	dvec := make([]float64, mc)
	for r, rec := range eqs { // 𝐂ⱼ𝐱 = -𝐛ⱼ
		for k, coeff := range rec.aff.Coeffs {
			cmat[r+lc*rec.aff.Vars[k].Rep.Index] += coeff
		}
		dvec[r] = -rec.aff.Constant
	}

	mg := len(ineqs)
	for _, rec := range m.vars {
		if !math.IsInf(rec.lb, -1) {
			mg++
		}
		if !math.IsInf(rec.ub, 1) {
			mg++
		}
	}
	lg := max(mg, 1)
	gmat := make([]float64, lg*n)
	hvec := make([]float64, mg)
	r := 0
	for _, rec := range ineqs { // -𝐀ⱼ𝐱 ≥ 𝐛ⱼ
		for k, coeff := range rec.aff.Coeffs {
			gmat[r+lg*rec.aff.Vars[k].Rep.Index] -= coeff
		}
		hvec[r] = rec.aff.Constant
		r++
	}
	for i, rec := range m.vars { // 𝐈𝐱 ≥ 𝒍 and -𝐈𝐱 ≥ -𝒖
		if !math.IsInf(rec.lb, -1) {
			gmat[r+lg*i] = one
			hvec[r] = rec.lb
			r++
		}
		if !math.IsInf(rec.ub, 1) {
			gmat[r+lg*i] = -one
			hvec[r] = -rec.ub
			r++
		}
	}

	x := make([]float64, n)
	switch lsei(cmat, dvec, e, f, gmat, hvec, mc, n, mg, n, x, m.MaxIter) {
	case solved:
	case incompatibleCons, singularC:
		return sco.CvxInfeasible
	default:
		return sco.CvxFailed
	}

	for i, rec := range m.vars {
		v := x[i]
		if !math.IsInf(rec.lb, -1) && v < rec.lb {
			v = rec.lb
		}
		if !math.IsInf(rec.ub, 1) && v > rec.ub {
			v = rec.ub
		}
		rec.value = v
	}
	return sco.CvxSolved
}
