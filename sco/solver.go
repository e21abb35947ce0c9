// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

// Model is an in-memory convex program: variables with box bounds, linear
// equality and inequality constraints, and a quadratic objective. The SQP
// core treats it as a black box; any solver meeting these semantics will do
// (the boxqp package provides a dense pure-Go one).
//
// Structural changes (adding or removing variables and constraints) are
// staged and take effect at Update, which also reassigns the Index of every
// live VarRep/CntRep. Handles remain valid across Update.
type Model interface {
	// AddVars appends named variables with bounds (-∞, +∞).
	AddVars(names []string) []Var
	// AddAuxVars appends n auxiliary variables with bounds [0, +∞),
	// as introduced by hinge and abs penalty terms.
	AddAuxVars(n int) []Var
	// RemoveVars marks variables for removal at the next Update.
	RemoveVars(vars []Var)
	// SetVarBounds replaces the bounds of the given variables.
	SetVarBounds(vars []Var, lower, upper []float64)
	// VarValues reports the last solved values of the given variables.
	VarValues(vars []Var) []float64
	// Vars lists the live variables in index order.
	Vars() []Var

	// AddEqCnt adds the constraint aff = 0.
	AddEqCnt(aff AffExpr, name string) Cnt
	// AddIneqCnt adds the constraint aff ≤ 0.
	AddIneqCnt(aff AffExpr, name string) Cnt
	// RemoveCnts marks constraints for removal at the next Update.
	RemoveCnts(cnts []Cnt)

	// SetObjective replaces the objective to be minimized.
	SetObjective(q QuadExpr)
	// Update commits pending structural changes and reindexes handles.
	Update()
	// Optimize solves the current program. On CvxSolved the minimizer is
	// available through VarValues.
	Optimize() CvxStatus
	// WriteToFile dumps the current program in LP text format.
	WriteToFile(path string) error
}
