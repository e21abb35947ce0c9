// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

import (
	"fmt"
	"strings"
)

// VarRep is the backing record of a model variable.
// Its index tracks the variable's current column in the model and is fixed
// up by Model.Update after removals.
type VarRep struct {
	Index   int
	Name    string
	Removed bool
}

// Var is a handle to a model variable. Handles are copied by value and stay
// valid across Model.Update.
type Var struct {
	Rep *VarRep
}

// CntRep is the backing record of a linear constraint in a model.
type CntRep struct {
	Index   int
	Name    string
	Type    CntType
	Removed bool
}

// Cnt is a removable handle to a linear constraint.
type Cnt struct {
	Rep *CntRep
}

// AffExpr is a linear combination of model variables plus a constant:
// constant + Σ coeffs[i]·vars[i].
type AffExpr struct {
	Constant float64
	Coeffs   []float64
	Vars     []Var
}

// AffFromVar returns coeff·v.
func AffFromVar(v Var, coeff float64) AffExpr {
	return AffExpr{Coeffs: []float64{coeff}, Vars: []Var{v}}
}

// AddTerm appends coeff·v to the expression.
func (e *AffExpr) AddTerm(v Var, coeff float64) {
	e.Coeffs = append(e.Coeffs, coeff)
	e.Vars = append(e.Vars, v)
}

// Add accumulates another affine expression.
func (e *AffExpr) Add(o AffExpr) {
	e.Constant += o.Constant
	e.Coeffs = append(e.Coeffs, o.Coeffs...)
	e.Vars = append(e.Vars, o.Vars...)
}

// Scale multiplies the expression by s in place.
func (e *AffExpr) Scale(s float64) {
	e.Constant *= s
	for i := range e.Coeffs {
		e.Coeffs[i] *= s
	}
}

// Neg returns the negated expression. The receiver is untouched.
func (e AffExpr) Neg() AffExpr {
	out := AffExpr{
		Constant: -e.Constant,
		Coeffs:   make([]float64, len(e.Coeffs)),
		Vars:     append([]Var(nil), e.Vars...),
	}
	for i, c := range e.Coeffs {
		out.Coeffs[i] = -c
	}
	return out
}

// Value evaluates the expression at the full model point x, indexed by
// variable position.
func (e AffExpr) Value(x []float64) float64 {
	v := e.Constant
	for i, c := range e.Coeffs {
		v += c * x[e.Vars[i].Rep.Index]
	}
	return v
}

func (e AffExpr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%g", e.Constant)
	for i, c := range e.Coeffs {
		fmt.Fprintf(&sb, " + %g*%s", c, e.Vars[i].Rep.Name)
	}
	return sb.String()
}

// QuadExpr is a quadratic form plus affine part:
// affine + Σ coeffs[i]·vars1[i]·vars2[i].
// A term with vars1[i] == vars2[i] and coefficient c contributes c·x².
type QuadExpr struct {
	Affine AffExpr
	Coeffs []float64
	Vars1  []Var
	Vars2  []Var
}

// AddQuad accumulates another quadratic expression.
func (q *QuadExpr) AddQuad(o QuadExpr) {
	q.Affine.Add(o.Affine)
	q.Coeffs = append(q.Coeffs, o.Coeffs...)
	q.Vars1 = append(q.Vars1, o.Vars1...)
	q.Vars2 = append(q.Vars2, o.Vars2...)
}

// AddAffine accumulates an affine expression into the affine part.
func (q *QuadExpr) AddAffine(a AffExpr) {
	q.Affine.Add(a)
}

// Scale multiplies the expression by s in place.
func (q *QuadExpr) Scale(s float64) {
	q.Affine.Scale(s)
	for i := range q.Coeffs {
		q.Coeffs[i] *= s
	}
}

// Value evaluates the expression at the full model point x.
func (q QuadExpr) Value(x []float64) float64 {
	v := q.Affine.Value(x)
	for i, c := range q.Coeffs {
		v += c * x[q.Vars1[i].Rep.Index] * x[q.Vars2[i].Rep.Index]
	}
	return v
}

// SquareAff expands the square of an affine expression into a quadratic one.
func SquareAff(a AffExpr) QuadExpr {
	n := len(a.Coeffs)
	q := QuadExpr{
		Affine: AffExpr{Constant: a.Constant * a.Constant},
		Coeffs: make([]float64, 0, n*(n+1)/2),
		Vars1:  make([]Var, 0, n*(n+1)/2),
		Vars2:  make([]Var, 0, n*(n+1)/2),
	}
	for i := 0; i < n; i++ {
		q.Affine.AddTerm(a.Vars[i], 2*a.Constant*a.Coeffs[i])
		q.Coeffs = append(q.Coeffs, a.Coeffs[i]*a.Coeffs[i])
		q.Vars1 = append(q.Vars1, a.Vars[i])
		q.Vars2 = append(q.Vars2, a.Vars[i])
		for j := i + 1; j < n; j++ {
			q.Coeffs = append(q.Coeffs, 2*a.Coeffs[i]*a.Coeffs[j])
			q.Vars1 = append(q.Vars1, a.Vars[i])
			q.Vars2 = append(q.Vars2, a.Vars[j])
		}
	}
	return q
}
