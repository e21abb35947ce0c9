// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/trajsqp/boxqp"
	"github.com/curioloop/trajsqp/sco"
)

func fixedVarModel(t *testing.T, value float64) (sco.Model, sco.Var) {
	t.Helper()
	m := boxqp.New()
	vars := m.AddVars([]string{"x"})
	m.SetVarBounds(vars, []float64{value}, []float64{value})
	m.Update()
	return m, vars[0]
}

// minimize coeff·|x-3| with x pinned by bounds
func TestConvexObjectiveAbs(t *testing.T) {
	m, x := fixedVarModel(t, 2)

	aff := sco.AffExpr{Constant: -3}
	aff.AddTerm(x, 1)

	co := sco.NewConvexObjective(m)
	co.AddAbs(aff, 2)
	co.Install()
	co.Install() // idempotent
	m.Update()
	m.SetObjective(co.Quad)

	require.Equal(t, sco.CvxSolved, m.Optimize())
	full := m.VarValues(m.Vars())
	require.Len(t, full, 2)
	require.InDelta(t, 2.0, co.Value(full), 1e-4, "2·|2-3|")

	co.Release()
	m.Update()
	require.Len(t, m.Vars(), 1, "aux structure must be released")
}

func TestConvexObjectiveHinge(t *testing.T) {
	for value, want := range map[float64]float64{4: 1, 2: 0} {
		m, x := fixedVarModel(t, value)

		aff := sco.AffExpr{Constant: -3}
		aff.AddTerm(x, 1)

		co := sco.NewConvexObjective(m)
		co.AddHinge(aff, 1)
		co.Install()
		m.Update()
		m.SetObjective(co.Quad)

		require.Equal(t, sco.CvxSolved, m.Optimize())
		require.InDelta(t, want, co.Value(m.VarValues(m.Vars())), 1e-4,
			"max(0, %v-3)", value)
	}
}

func TestConvexObjectiveRejectsNegativeCoeff(t *testing.T) {
	m, x := fixedVarModel(t, 0)
	co := sco.NewConvexObjective(m)
	require.Panics(t, func() { co.AddAbs(sco.AffFromVar(x, 1), -1) })
	require.Panics(t, func() { co.AddHinge(sco.AffFromVar(x, 1), -1) })
}

func TestConvexConstraintsViolation(t *testing.T) {
	x := sco.Var{Rep: &sco.VarRep{Index: 0, Name: "x"}}

	cc := &sco.ConvexConstraints{}
	eq := sco.AffExpr{Constant: -2} // x - 2 = 0
	eq.AddTerm(x, 1)
	cc.AddEq(eq)
	ineq := sco.AffExpr{Constant: -1} // x - 1 ≤ 0
	ineq.AddTerm(x, 1)
	cc.AddIneq(ineq)

	require.InDelta(t, 2.0, cc.Violation([]float64{0}), 1e-12)
	require.InDelta(t, 2.0+3.0, cc.Violation([]float64{4}), 1e-12)
}

// CntsToCosts penalizes an equality with an abs term and an inequality with
// a hinge term under a single coefficient.
func TestCntsToCosts(t *testing.T) {
	m, x := fixedVarModel(t, 0)

	cc := &sco.ConvexConstraints{}
	eq := sco.AffExpr{Constant: -2}
	eq.AddTerm(x, 1)
	cc.AddEq(eq)
	ineq := sco.AffExpr{Constant: -1}
	ineq.AddTerm(x, 1)
	cc.AddIneq(ineq)

	objs := sco.CntsToCosts([]*sco.ConvexConstraints{cc}, 10, m)
	require.Len(t, objs, 1)

	m.Update()
	objs[0].Install()
	m.Update()
	m.SetObjective(objs[0].Quad)

	require.Equal(t, sco.CvxSolved, m.Optimize())
	// 10·|0-2| + 10·max(0, 0-1)
	require.InDelta(t, 20.0, objs[0].Value(m.VarValues(m.Vars())), 1e-3)
}

func TestClosestFeasiblePoint(t *testing.T) {
	m := boxqp.New()
	prob := sco.NewProb(m)
	prob.CreateVariables([]string{"x", "y"}, []float64{-1, 0}, []float64{1, 2})

	require.Equal(t, []float64{1, 0}, prob.ClosestFeasiblePoint([]float64{5, -3}))
	require.Equal(t, []float64{0.5, 1}, prob.ClosestFeasiblePoint([]float64{0.5, 1}))
	require.Panics(t, func() { prob.ClosestFeasiblePoint([]float64{0}) })
}
