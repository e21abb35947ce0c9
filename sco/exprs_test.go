// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

import (
	"math"
	"testing"
)

func testVars(n int) []Var {
	out := make([]Var, n)
	for i := range out {
		out[i] = Var{Rep: &VarRep{Index: i, Name: "x"}}
	}
	return out
}

func TestAffExpr(t *testing.T) {
	v := testVars(2)
	aff := AffExpr{Constant: 1}
	aff.AddTerm(v[0], 2)
	aff.AddTerm(v[1], -3)

	x := []float64{0.5, 2}
	switch {
	case aff.Value(x) != 1+2*0.5-3*2:
		t.Fatal("TestAffExpr: bad value")
	case aff.Neg().Value(x) != -aff.Value(x):
		t.Fatal("TestAffExpr: bad negation")
	}

	neg := aff.Neg()
	neg.AddTerm(v[0], 7)
	if len(aff.Coeffs) != 2 {
		t.Fatal("TestAffExpr: negation aliases receiver")
	}

	sum := aff
	sum.Add(AffFromVar(v[0], 1))
	if sum.Value(x) != aff.Value(x)+0.5 {
		t.Fatal("TestAffExpr: bad accumulation")
	}
}

func TestQuadExpr(t *testing.T) {
	v := testVars(2)
	aff := AffExpr{Constant: -1}
	aff.AddTerm(v[0], 1)
	aff.AddTerm(v[1], 2)

	// (x + 2y - 1)² expanded
	q := SquareAff(aff)
	for _, x := range [][]float64{{0, 0}, {1, 1}, {-0.3, 0.7}, {2, -5}} {
		want := aff.Value(x) * aff.Value(x)
		if math.Abs(q.Value(x)-want) > 1e-12 {
			t.Fatalf("TestQuadExpr: square mismatch at %v", x)
		}
	}

	q.Scale(3)
	if x := []float64{2, -5}; math.Abs(q.Value(x)-3*aff.Value(x)*aff.Value(x)) > 1e-10 {
		t.Fatal("TestQuadExpr: bad scale")
	}

	var sum QuadExpr
	sum.AddQuad(SquareAff(aff))
	sum.AddAffine(AffFromVar(v[0], 4))
	if x := []float64{1, 2}; math.Abs(sum.Value(x)-(aff.Value(x)*aff.Value(x)+4)) > 1e-12 {
		t.Fatal("TestQuadExpr: bad accumulation")
	}
}
