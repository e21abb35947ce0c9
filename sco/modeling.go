// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cost is a non-convex scalar term that can be evaluated exactly and
// locally convexified. The convexification must be exact at its center:
// Convex(x, m).Value(x) == Value(x).
type Cost interface {
	Name() string
	// Value is the ground-truth scalar at x.
	Value(x []float64) float64
	// Convex builds a local convex model of the cost at x.
	// Auxiliary structure it needs is created in m.
	Convex(x []float64, m Model) *ConvexObjective
}

// Constraint is a non-convex vector term of kind equality (= 0) or
// inequality (≤ 0) that can be evaluated exactly and locally linearized.
type Constraint interface {
	Name() string
	Type() CntType
	// Violations reports per-component violations at x:
	// |cᵢ(x)| for equalities, max(0, cᵢ(x)) for inequalities.
	Violations(x []float64) []float64
	// Violation is the sum of Violations.
	Violation(x []float64) float64
	// Convex produces first-order models of the components at x.
	Convex(x []float64, m Model) *ConvexConstraints
}

// ConvexObjective accumulates one iteration's convex contribution of a cost:
// a quadratic part plus absolute-value and hinge penalty terms. Install
// materializes the penalty terms in the model through auxiliary variables;
// Release removes everything it created.
type ConvexObjective struct {
	model Model
	Quad  QuadExpr

	absAffs     []AffExpr
	absCoeffs   []float64
	hingeAffs   []AffExpr
	hingeCoeffs []float64

	auxVars   []Var
	cnts      []Cnt
	installed bool
}

// NewConvexObjective returns an empty convex contribution bound to m.
func NewConvexObjective(m Model) *ConvexObjective {
	return &ConvexObjective{model: m}
}

// AddQuad accumulates a positive-semidefinite quadratic. The caller
// guarantees PSD; the model solver may regularize but not repair an
// indefinite contribution.
func (co *ConvexObjective) AddQuad(q QuadExpr) { co.Quad.AddQuad(q) }

// AddAffine accumulates an affine objective contribution.
func (co *ConvexObjective) AddAffine(a AffExpr) { co.Quad.AddAffine(a) }

// AddAbs adds the term coeff·|aff| to the objective.
func (co *ConvexObjective) AddAbs(aff AffExpr, coeff float64) {
	if coeff < 0 {
		panic("abs penalty coefficient must be non-negative")
	}
	co.absAffs = append(co.absAffs, aff)
	co.absCoeffs = append(co.absCoeffs, coeff)
}

// AddHinge adds the term coeff·max(0, aff) to the objective.
func (co *ConvexObjective) AddHinge(aff AffExpr, coeff float64) {
	if coeff < 0 {
		panic("hinge penalty coefficient must be non-negative")
	}
	co.hingeAffs = append(co.hingeAffs, aff)
	co.hingeCoeffs = append(co.hingeCoeffs, coeff)
}

// Install materializes the abs and hinge terms: for each term an auxiliary
// variable t ≥ 0 is created with constraints aff - t ≤ 0 (and -aff - t ≤ 0
// for abs), and coeff·t is folded into the quadratic part. Idempotent;
// must run before the model's next Update.
func (co *ConvexObjective) Install() {
	if co.installed {
		return
	}
	co.installed = true
	n := len(co.absAffs) + len(co.hingeAffs)
	if n == 0 {
		return
	}
	aux := co.model.AddAuxVars(n)
	co.auxVars = aux
	for i, aff := range co.absAffs {
		t := aux[i]
		pos := cloneAff(aff)
		pos.AddTerm(t, -1)
		neg := aff.Neg()
		neg.AddTerm(t, -1)
		co.cnts = append(co.cnts,
			co.model.AddIneqCnt(pos, "abs"),
			co.model.AddIneqCnt(neg, "abs"))
		co.Quad.AddAffine(AffFromVar(t, co.absCoeffs[i]))
	}
	for i, aff := range co.hingeAffs {
		t := aux[len(co.absAffs)+i]
		pos := cloneAff(aff)
		pos.AddTerm(t, -1)
		co.cnts = append(co.cnts, co.model.AddIneqCnt(pos, "hinge"))
		co.Quad.AddAffine(AffFromVar(t, co.hingeCoeffs[i]))
	}
}

// Value evaluates the current quadratic part at the enlarged model point.
// After Install and a solve, this equals quad + Σ coeff·|aff| + Σ coeff·max(0, aff)
// up to the slack the solver left in the auxiliary variables.
func (co *ConvexObjective) Value(x []float64) float64 { return co.Quad.Value(x) }

// Release removes the auxiliary constraints and variables Install created.
// The removal takes effect at the model's next Update.
func (co *ConvexObjective) Release() {
	if len(co.cnts) > 0 {
		co.model.RemoveCnts(co.cnts)
		co.cnts = nil
	}
	if len(co.auxVars) > 0 {
		co.model.RemoveVars(co.auxVars)
		co.auxVars = nil
	}
}

func cloneAff(a AffExpr) AffExpr {
	out := AffExpr{Constant: a.Constant}
	out.Coeffs = append([]float64(nil), a.Coeffs...)
	out.Vars = append([]Var(nil), a.Vars...)
	return out
}

// ConvexConstraints holds the linearization of a constraint at a point:
// affine expressions meant to equal zero and affine expressions meant to be
// non-positive. Value and gradient match the underlying constraint at the
// linearization point.
type ConvexConstraints struct {
	Eqs   []AffExpr
	Ineqs []AffExpr
}

// AddEq appends an affine equality (= 0).
func (cc *ConvexConstraints) AddEq(aff AffExpr) { cc.Eqs = append(cc.Eqs, aff) }

// AddIneq appends an affine inequality (≤ 0).
func (cc *ConvexConstraints) AddIneq(aff AffExpr) { cc.Ineqs = append(cc.Ineqs, aff) }

// Violation is the L1 violation of the linearized constraint at the full
// model point x: Σ|eq(x)| + Σ max(0, ineq(x)).
func (cc *ConvexConstraints) Violation(x []float64) float64 {
	v := zero
	for _, e := range cc.Eqs {
		v += math.Abs(e.Value(x))
	}
	for _, e := range cc.Ineqs {
		v += math.Max(zero, e.Value(x))
	}
	return v
}

// CntsToCosts converts linearized constraints into L1 penalty objectives
// with coefficient errCoeff: every equality becomes an abs term and every
// inequality a hinge term. The penalty gradient at the linearization point
// matches the merit function gradient.
// TODO: support a distinct coefficient per constraint.
func CntsToCosts(cnts []*ConvexConstraints, errCoeff float64, m Model) []*ConvexObjective {
	out := make([]*ConvexObjective, 0, len(cnts))
	for _, cnt := range cnts {
		obj := NewConvexObjective(m)
		for _, aff := range cnt.Eqs {
			obj.AddAbs(aff, errCoeff)
		}
		for _, aff := range cnt.Ineqs {
			obj.AddHinge(aff, errCoeff)
		}
		out = append(out, obj)
	}
	return out
}

// OptProb aggregates the variables, bounds, costs and constraints of a
// non-convex problem over a convex model backend. The problem's variables
// occupy the first len(Vars()) columns of the model; convexification may
// add auxiliary columns after them.
type OptProb struct {
	model Model
	vars  []Var
	lower []float64
	upper []float64
	costs []Cost
	cnts  []Constraint
}

// NewProb returns an empty problem over the given model.
func NewProb(m Model) *OptProb {
	return &OptProb{model: m}
}

// CreateVariables adds named problem variables with the given bounds.
func (p *OptProb) CreateVariables(names []string, lower, upper []float64) []Var {
	if len(names) != len(lower) || len(names) != len(upper) {
		panic("bounds dimension not match variables")
	}
	vars := p.model.AddVars(names)
	p.model.SetVarBounds(vars, lower, upper)
	p.model.Update()
	p.vars = append(p.vars, vars...)
	p.lower = append(p.lower, lower...)
	p.upper = append(p.upper, upper...)
	return vars
}

// AddCost registers a cost term. Convexification order follows
// registration order.
func (p *OptProb) AddCost(c Cost) { p.costs = append(p.costs, c) }

// AddConstraint registers a constraint term.
func (p *OptProb) AddConstraint(c Constraint) { p.cnts = append(p.cnts, c) }

func (p *OptProb) Model() Model              { return p.model }
func (p *OptProb) Vars() []Var               { return p.vars }
func (p *OptProb) Costs() []Cost             { return p.costs }
func (p *OptProb) Constraints() []Constraint { return p.cnts }
func (p *OptProb) LowerBounds() []float64    { return p.lower }
func (p *OptProb) UpperBounds() []float64    { return p.upper }

// ClosestFeasiblePoint projects x onto the variable bounds.
func (p *OptProb) ClosestFeasiblePoint(x []float64) []float64 {
	if len(x) != len(p.vars) {
		panic(fmt.Sprintf("point dimension not match problem: expected %d got %d", len(p.vars), len(x)))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Min(math.Max(v, p.lower[i]), p.upper[i])
	}
	return out
}

func evaluateCosts(costs []Cost, x []float64) []float64 {
	out := make([]float64, len(costs))
	for i, c := range costs {
		out[i] = c.Value(x)
	}
	return out
}

func evaluateCntViols(cnts []Constraint, x []float64) []float64 {
	out := make([]float64, len(cnts))
	for i, c := range cnts {
		out[i] = c.Violation(x)
	}
	return out
}

func convexifyCosts(costs []Cost, x []float64, m Model) []*ConvexObjective {
	out := make([]*ConvexObjective, len(costs))
	for i, c := range costs {
		out[i] = c.Convex(x, m)
	}
	return out
}

func convexifyCnts(cnts []Constraint, x []float64, m Model) []*ConvexConstraints {
	out := make([]*ConvexConstraints, len(cnts))
	for i, c := range cnts {
		out[i] = c.Convex(x, m)
	}
	return out
}

func evaluateModelCosts(costs []*ConvexObjective, x []float64) []float64 {
	out := make([]float64, len(costs))
	for i, c := range costs {
		out[i] = c.Value(x)
	}
	return out
}

func evaluateModelCntViols(cnts []*ConvexConstraints, x []float64) []float64 {
	out := make([]float64, len(cnts))
	for i, c := range cnts {
		out[i] = c.Violation(x)
	}
	return out
}

func vecSum(v []float64) float64 {
	if len(v) == 0 {
		return zero
	}
	return floats.Sum(v)
}

func vecMax(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	return floats.Max(v)
}
