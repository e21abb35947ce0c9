// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

import (
	"fmt"
	"io"
)

// OptResults is the running snapshot of a sequential optimization:
// the current iterate, its exact cost values and constraint violations,
// the terminal status and the evaluation counters.
type OptResults struct {
	X            []float64
	CostVals     []float64
	CntViols     []float64
	Status       OptStatus
	TotalCost    float64
	NumFuncEvals int
	NumQPSolves  int
}

// Clear resets the snapshot for a fresh run.
func (r *OptResults) Clear() {
	*r = OptResults{Status: StatusInvalid}
}

func (r *OptResults) String() string {
	return fmt.Sprintf("Optimization results:\nstatus: %v\ncost values: %v\nconstraint violations: %v\nn func evals: %d\nn qp solves: %d\n",
		r.Status, r.CostVals, r.CntViols, r.NumFuncEvals, r.NumQPSolves)
}

// reportAlmostZero per-term improvements below this print without a ratio.
const reportAlmostZero = 1e-8

// TrustRegionResults records one trust-region step: exact values at the old
// iterate, convex-model values at the subproblem solution, exact values at
// the candidate iterate, and the derived merit quantities that drive the
// accept/shrink decision.
type TrustRegionResults struct {
	varNames  []string
	costNames []string
	cntNames  []string

	ModelVarVals  []float64 // subproblem solution over all model columns
	ModelCostVals []float64
	ModelCntViols []float64
	NewX          []float64 // first len(varNames) entries of ModelVarVals
	NewCostVals   []float64
	NewCntViols   []float64
	OldCostVals   []float64
	OldCntViols   []float64

	OldMerit           float64
	ModelMerit         float64
	NewMerit           float64
	ApproxMeritImprove float64
	ExactMeritImprove  float64
	MeritImproveRatio  float64
	MeritErrorCoeff    float64
}

func newTrustRegionResults(varNames, costNames, cntNames []string) *TrustRegionResults {
	return &TrustRegionResults{varNames: varNames, costNames: costNames, cntNames: cntNames}
}

// update recomputes the record after a subproblem solve. The problem
// variables occupy the first len(prev.X) model columns.
func (tr *TrustRegionResults) update(prev *OptResults, m Model,
	costModels []*ConvexObjective, cntModels []*ConvexConstraints,
	cnts []Constraint, costs []Cost, meritErrorCoeff float64) {

	tr.MeritErrorCoeff = meritErrorCoeff
	tr.ModelVarVals = m.VarValues(m.Vars())
	tr.ModelCostVals = evaluateModelCosts(costModels, tr.ModelVarVals)
	tr.ModelCntViols = evaluateModelCntViols(cntModels, tr.ModelVarVals)

	tr.NewX = append([]float64(nil), tr.ModelVarVals[:len(prev.X)]...)

	tr.OldCostVals = prev.CostVals
	tr.OldCntViols = prev.CntViols
	tr.NewCostVals = evaluateCosts(costs, tr.NewX)
	tr.NewCntViols = evaluateCntViols(cnts, tr.NewX)

	tr.OldMerit = vecSum(tr.OldCostVals) + meritErrorCoeff*vecSum(tr.OldCntViols)
	tr.ModelMerit = vecSum(tr.ModelCostVals) + meritErrorCoeff*vecSum(tr.ModelCntViols)
	tr.NewMerit = vecSum(tr.NewCostVals) + meritErrorCoeff*vecSum(tr.NewCntViols)
	tr.ApproxMeritImprove = tr.OldMerit - tr.ModelMerit
	tr.ExactMeritImprove = tr.OldMerit - tr.NewMerit
	tr.MeritImproveRatio = tr.ExactMeritImprove / tr.ApproxMeritImprove
}

// Print writes the per-term improvement table.
func (tr *TrustRegionResults) Print(w io.Writer) {
	fmt.Fprintf(w, "%15s | %10s | %10s | %10s | %10s\n", "", "oldexact", "dapprox", "dexact", "ratio")
	fmt.Fprintf(w, "%15s | %10s---%10s---%10s---%10s\n", "COSTS", "----------", "----------", "----------", "----------")
	for i := range tr.OldCostVals {
		approx := tr.OldCostVals[i] - tr.ModelCostVals[i]
		exact := tr.OldCostVals[i] - tr.NewCostVals[i]
		if abs(approx) > reportAlmostZero {
			fmt.Fprintf(w, "%15s | %10.3e | %10.3e | %10.3e | %10.3e\n",
				tr.costNames[i], tr.OldCostVals[i], approx, exact, exact/approx)
		} else {
			fmt.Fprintf(w, "%15s | %10.3e | %10.3e | %10.3e | %10s\n",
				tr.costNames[i], tr.OldCostVals[i], approx, exact, "  ------  ")
		}
	}
	if len(tr.cntNames) != 0 {
		fmt.Fprintf(w, "%15s | %10s---%10s---%10s---%10s\n", "CONSTRAINTS", "----------", "----------", "----------", "----------")
		for i := range tr.OldCntViols {
			approx := tr.OldCntViols[i] - tr.ModelCntViols[i]
			exact := tr.OldCntViols[i] - tr.NewCntViols[i]
			mu := tr.MeritErrorCoeff
			if abs(approx) > reportAlmostZero {
				fmt.Fprintf(w, "%15s | %10.3e | %10.3e | %10.3e | %10.3e\n",
					tr.cntNames[i], mu*tr.OldCntViols[i], mu*approx, mu*exact, exact/approx)
			} else {
				fmt.Fprintf(w, "%15s | %10.3e | %10.3e | %10.3e | %10s\n",
					tr.cntNames[i], mu*tr.OldCntViols[i], mu*approx, mu*exact, "  ------  ")
			}
		}
	}
	fmt.Fprintf(w, "%15s | %10.3e | %10.3e | %10.3e | %10.3e\n",
		"TOTAL", tr.OldMerit, tr.ApproxMeritImprove, tr.ExactMeritImprove, tr.MeritImproveRatio)
}

// WriteSolver appends one CSV record of the merit quantities.
func (tr *TrustRegionResults) WriteSolver(w io.Writer, header bool) {
	if header {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s\n", "DESCRIPTION", "oldexact", "dapprox", "dexact", "ratio")
	}
	fmt.Fprintf(w, "%s,%10.3e,%10.3e,%10.3e,%10.3e\n",
		"Solver", tr.OldMerit, tr.ApproxMeritImprove, tr.ExactMeritImprove, tr.MeritImproveRatio)
}

// WriteVars appends one CSV record of the candidate iterate.
func (tr *TrustRegionResults) WriteVars(w io.Writer, header bool) {
	if header {
		fmt.Fprintf(w, "%s", "NAMES")
		for _, name := range tr.varNames {
			fmt.Fprintf(w, ",%s", name)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s", "VALUES")
	for _, x := range tr.NewX {
		fmt.Fprintf(w, ",%e", x)
	}
	fmt.Fprintln(w)
}

// WriteCosts appends one CSV record with four columns per cost term.
func (tr *TrustRegionResults) WriteCosts(w io.Writer, header bool) {
	if header {
		fmt.Fprintf(w, "%s", "COST NAMES")
		for _, name := range tr.costNames {
			fmt.Fprintf(w, ",%s,%s,%s,%s", name, name, name, name)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s", "DESCRIPTION")
		for range tr.costNames {
			fmt.Fprintf(w, ",%s,%s,%s,%s", "oldexact", "dapprox", "dexact", "ratio")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s", "COSTS")
	for i := range tr.OldCostVals {
		approx := tr.OldCostVals[i] - tr.ModelCostVals[i]
		exact := tr.OldCostVals[i] - tr.NewCostVals[i]
		if abs(approx) > reportAlmostZero {
			fmt.Fprintf(w, ",%e,%e,%e,%e", tr.OldCostVals[i], approx, exact, exact/approx)
		} else {
			fmt.Fprintf(w, ",%e,%e,%e,%s", tr.OldCostVals[i], approx, exact, "nan")
		}
	}
	fmt.Fprintln(w)
}

// WriteConstraints appends one CSV record with four columns per constraint.
func (tr *TrustRegionResults) WriteConstraints(w io.Writer, header bool) {
	if header {
		fmt.Fprintf(w, "%s", "CONSTRAINT NAMES")
		for _, name := range tr.cntNames {
			fmt.Fprintf(w, ",%s,%s,%s,%s", name, name, name, name)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s", "DESCRIPTION")
		for range tr.cntNames {
			fmt.Fprintf(w, ",%s,%s,%s,%s", "oldexact", "dapprox", "dexact", "ratio")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s", "CONSTRAINTS")
	mu := tr.MeritErrorCoeff
	for i := range tr.OldCntViols {
		approx := tr.OldCntViols[i] - tr.ModelCntViols[i]
		exact := tr.OldCntViols[i] - tr.NewCntViols[i]
		if abs(approx) > reportAlmostZero {
			fmt.Fprintf(w, ",%e,%e,%e,%e", mu*tr.OldCntViols[i], mu*approx, mu*exact, exact/approx)
		} else {
			fmt.Fprintf(w, ",%e,%e,%e,%s", mu*tr.OldCntViols[i], mu*approx, mu*exact, "nan")
		}
	}
	fmt.Fprintln(w)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
