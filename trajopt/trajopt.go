// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trajopt provides trajectory-domain cost and constraint terms for
// the sco solver: joint velocity, acceleration and jerk stencils over a
// waypoint trajectory, cartesian pose errors against a forward-kinematics
// contract, waypoint pins and a total-time cost. Terms are built from a
// vector error function plus an optional analytic Jacobian; when the
// Jacobian is absent it is estimated by central finite differences.
package trajopt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/trajsqp/numdiff"
	"github.com/curioloop/trajsqp/sco"
)

// VectorFunc evaluates a vector error at a point.
type VectorFunc func(vals []float64) []float64

// JacobianFunc evaluates the error Jacobian at a point,
// rows per error component and columns per variable.
type JacobianFunc func(vals []float64) *mat.Dense

// PenaltyType selects how an error component enters a cost.
type PenaltyType int

const (
	// Squared adds coeff·e².
	Squared PenaltyType = iota
	// Abs adds coeff·|e|.
	Abs
	// Hinge adds coeff·max(0, e).
	Hinge
)

func gather(x []float64, vars []sco.Var) []float64 {
	out := make([]float64, len(vars))
	for i, v := range vars {
		out[i] = x[v.Rep.Index]
	}
	return out
}

func numericJac(f VectorFunc, vals []float64, m int) *mat.Dense {
	buf := make([]float64, m*len(vals))
	jd := numdiff.Jacobian{
		N:      len(vals),
		M:      m,
		Method: numdiff.Central,
		F: func(x, y []float64) {
			copy(y, f(x))
		},
	}
	if err := jd.Diff(vals, buf); err != nil {
		panic(err)
	}
	return mat.NewDense(m, len(vals), buf)
}

// linearize builds the first-order model of each error component at vals:
// affᵣ(𝐱) = eᵣ + 𝐉ᵣ·(𝐱 - vals).
func linearize(errVals []float64, jac *mat.Dense, vars []sco.Var, vals []float64) []sco.AffExpr {
	out := make([]sco.AffExpr, len(errVals))
	for r, e := range errVals {
		aff := sco.AffExpr{Constant: e}
		for c, v := range vars {
			if coeff := jac.At(r, c); coeff != 0 {
				aff.AddTerm(v, coeff)
				aff.Constant -= coeff * vals[c]
			}
		}
		out[r] = aff
	}
	return out
}

// CostFromErr is a cost term built from a vector error function: the cost
// is the penalized sum of the error components and the convex model the
// penalized linearization.
type CostFromErr struct {
	name    string
	f       VectorFunc
	jac     JacobianFunc
	vars    []sco.Var
	coeff   float64
	penalty PenaltyType
}

// NewCostFromErr builds a cost over the given variables. jac may be nil to
// estimate the Jacobian numerically.
func NewCostFromErr(f VectorFunc, jac JacobianFunc, vars []sco.Var, coeff float64, penalty PenaltyType, name string) *CostFromErr {
	return &CostFromErr{name: name, f: f, jac: jac, vars: vars, coeff: coeff, penalty: penalty}
}

func (c *CostFromErr) Name() string { return c.name }

func (c *CostFromErr) Value(x []float64) float64 {
	sum := 0.0
	for _, e := range c.f(gather(x, c.vars)) {
		switch c.penalty {
		case Squared:
			sum += c.coeff * e * e
		case Abs:
			sum += c.coeff * math.Abs(e)
		case Hinge:
			sum += c.coeff * math.Max(0, e)
		}
	}
	return sum
}

func (c *CostFromErr) Convex(x []float64, m sco.Model) *sco.ConvexObjective {
	vals := gather(x, c.vars)
	errVals := c.f(vals)
	var jac *mat.Dense
	if c.jac != nil {
		jac = c.jac(vals)
	} else {
		jac = numericJac(c.f, vals, len(errVals))
	}
	co := sco.NewConvexObjective(m)
	for _, aff := range linearize(errVals, jac, c.vars, vals) {
		switch c.penalty {
		case Squared:
			q := sco.SquareAff(aff)
			q.Scale(c.coeff)
			co.AddQuad(q)
		case Abs:
			co.AddAbs(aff, c.coeff)
		case Hinge:
			co.AddHinge(aff, c.coeff)
		}
	}
	return co
}

// CntFromErr is a constraint term built from a vector error function:
// every component is meant to be zero (equality) or non-positive
// (inequality), and the convex model is the linearization.
type CntFromErr struct {
	name string
	f    VectorFunc
	jac  JacobianFunc
	vars []sco.Var
	typ  sco.CntType
}

// NewCntFromErr builds a constraint over the given variables. jac may be
// nil to estimate the Jacobian numerically.
func NewCntFromErr(f VectorFunc, jac JacobianFunc, vars []sco.Var, typ sco.CntType, name string) *CntFromErr {
	return &CntFromErr{name: name, f: f, jac: jac, vars: vars, typ: typ}
}

func (c *CntFromErr) Name() string      { return c.name }
func (c *CntFromErr) Type() sco.CntType { return c.typ }

func (c *CntFromErr) Violations(x []float64) []float64 {
	errVals := c.f(gather(x, c.vars))
	out := make([]float64, len(errVals))
	for i, e := range errVals {
		if c.typ == sco.EqCnt {
			out[i] = math.Abs(e)
		} else {
			out[i] = math.Max(0, e)
		}
	}
	return out
}

func (c *CntFromErr) Violation(x []float64) float64 {
	sum := 0.0
	for _, v := range c.Violations(x) {
		sum += v
	}
	return sum
}

func (c *CntFromErr) Convex(x []float64, m sco.Model) *sco.ConvexConstraints {
	vals := gather(x, c.vars)
	errVals := c.f(vals)
	var jac *mat.Dense
	if c.jac != nil {
		jac = c.jac(vals)
	} else {
		jac = numericJac(c.f, vals, len(errVals))
	}
	cc := &sco.ConvexConstraints{}
	for _, aff := range linearize(errVals, jac, c.vars, vals) {
		if c.typ == sco.EqCnt {
			cc.AddEq(aff)
		} else {
			cc.AddIneq(aff)
		}
	}
	return cc
}
