// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/curioloop/trajsqp/sco"
)

// quadratic (x-1)² as ½·2·x² - 2x + 1
func objSquare(v sco.Var, center float64) sco.QuadExpr {
	aff := sco.AffExpr{Constant: -center}
	aff.AddTerm(v, 1)
	return sco.SquareAff(aff)
}

func TestSolveUnconstrained(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x", "y"})
	q := objSquare(vars[0], 1)
	q.AddQuad(objSquare(vars[1], -2))
	m.SetObjective(q)
	m.Update()

	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveUnconstrained: not solved")
	}
	if vals := m.VarValues(vars); !almostEqual(vals, []float64{1, -2}, 1e-6) {
		t.Fatalf("TestSolveUnconstrained: bad minimizer %v", vals)
	}
}

func TestSolveEquality(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x", "y"})
	q := objSquare(vars[0], 0)
	q.AddQuad(objSquare(vars[1], 0))
	m.SetObjective(q)

	// x + y - 1 = 0
	aff := sco.AffExpr{Constant: -1}
	aff.AddTerm(vars[0], 1)
	aff.AddTerm(vars[1], 1)
	m.AddEqCnt(aff, "sum")
	m.Update()

	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveEquality: not solved")
	}
	if vals := m.VarValues(vars); !almostEqual(vals, []float64{0.5, 0.5}, 1e-6) {
		t.Fatalf("TestSolveEquality: bad minimizer %v", vals)
	}
}

func TestSolveInequalityActive(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x"})
	m.SetObjective(objSquare(vars[0], 2))

	// x - 1 ≤ 0
	aff := sco.AffExpr{Constant: -1}
	aff.AddTerm(vars[0], 1)
	cnt := m.AddIneqCnt(aff, "cap")
	m.Update()

	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveInequalityActive: not solved")
	}
	if vals := m.VarValues(vars); !almostEqual(vals[0], 1.0, 1e-6) {
		t.Fatalf("TestSolveInequalityActive: bad minimizer %v", vals)
	}

	// Releasing the constraint frees the minimizer.
	m.RemoveCnts([]sco.Cnt{cnt})
	m.Update()
	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveInequalityActive: not solved after removal")
	}
	if vals := m.VarValues(vars); !almostEqual(vals[0], 2.0, 1e-6) {
		t.Fatalf("TestSolveInequalityActive: bad minimizer after removal %v", vals)
	}
}

func TestSolveBoundsActive(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x"})
	m.SetVarBounds(vars, []float64{0}, []float64{1})
	m.SetObjective(objSquare(vars[0], 5))
	m.Update()

	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveBoundsActive: not solved")
	}
	if vals := m.VarValues(vars); !almostEqual(vals[0], 1.0, 1e-8) {
		t.Fatalf("TestSolveBoundsActive: bad minimizer %v", vals)
	}
}

// Aux columns carry no quadratic term: the solve relies on the Hessian
// regularization to stay positive definite.
func TestSolveLinearObjective(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x"})
	m.SetVarBounds(vars, []float64{3}, []float64{5})
	aux := m.AddAuxVars(1)

	// minimize t subject to x - t ≤ 0
	m.SetObjective(sco.QuadExpr{Affine: sco.AffFromVar(aux[0], 1)})
	aff := sco.AffFromVar(vars[0], 1)
	aff.AddTerm(aux[0], -1)
	m.AddIneqCnt(aff, "hinge")
	m.Update()

	if m.Optimize() != sco.CvxSolved {
		t.Fatal("TestSolveLinearObjective: not solved")
	}
	vals := m.VarValues([]sco.Var{vars[0], aux[0]})
	if !almostEqual(vals, []float64{3, 3}, 1e-5) {
		t.Fatalf("TestSolveLinearObjective: bad minimizer %v", vals)
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x"})
	m.SetObjective(objSquare(vars[0], 0))

	// x = 0 and x = 1 cannot both hold.
	m.AddEqCnt(sco.AffFromVar(vars[0], 1), "zero")
	one := sco.AffExpr{Constant: -1}
	one.AddTerm(vars[0], 1)
	m.AddEqCnt(one, "one")
	m.Update()

	if m.Optimize() != sco.CvxInfeasible {
		t.Fatal("TestSolveInfeasible: expected infeasible")
	}
}

func TestUpdateReindex(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x", "y"})
	aux := m.AddAuxVars(2)
	if aux[0].Rep.Index != 2 || aux[1].Rep.Index != 3 {
		t.Fatal("TestUpdateReindex: bad aux indices")
	}
	m.RemoveVars(aux[:1])
	m.Update()
	switch {
	case len(m.Vars()) != 3:
		t.Fatal("TestUpdateReindex: bad live count")
	case aux[1].Rep.Index != 2:
		t.Fatal("TestUpdateReindex: surviving aux not reindexed")
	case vars[1].Rep.Index != 1:
		t.Fatal("TestUpdateReindex: problem var index moved")
	}
}

func TestWriteToFile(t *testing.T) {
	m := New()
	vars := m.AddVars([]string{"x", "y"})
	m.SetVarBounds(vars, []float64{0, math.Inf(-1)}, []float64{1, math.Inf(1)})
	q := objSquare(vars[0], 1)
	q.AddQuad(objSquare(vars[1], 0))
	m.SetObjective(q)
	aff := sco.AffExpr{Constant: -1}
	aff.AddTerm(vars[0], 1)
	aff.AddTerm(vars[1], 1)
	m.AddIneqCnt(aff, "sum")
	m.Update()

	path := filepath.Join(t.TempDir(), "model.lp")
	if err := m.WriteToFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"Minimize", "Subject To", "Bounds", "End"} {
		if !strings.Contains(text, want) {
			t.Fatalf("TestWriteToFile: missing %q section", want)
		}
	}
}
