// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import (
	"math"
	"reflect"
	"testing"
)

// Origin: https://www.netlib.org/lawson-hanson/all (PROG6)
// Reference: https://people.math.sc.edu/Burkardt/f_src/lawson/lawson.html
func TestLDP(t *testing.T) {

	const m = 3
	const n = 2

	g := []float64{
		0.20718533228468983, 0.39218501461672955, -0.59937034690141933,
		-2.5576231892137238, 1.3511531307082973, 1.2064700585054264,
	}
	h := []float64{
		-1.3004115226337452, -0.083539094650205481, 0.38395061728395063,
	}

	wantX := []float64{-0.12680556318798736, 0.25524638652733850}

	x := make([]float64, n)
	switch {
	case ldp(g, m, m, n, h, x, 30) != solved:
		t.Fatal("TestLDP: no solution")
	case !almostEqual(wantX, x, 1e-12):
		t.Fatal("TestLDP: bad solution")
	}
}

// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 23, Section 7.
func TestLSI(t *testing.T) {

	const (
		me = 4
		mg = 3
		n  = 2
	)

	e := []float64{
		0.25, 0.5, 0.5, 0.8,
		1, 1, 1, 1,
	}
	f := []float64{0.5, 0.6, 0.7, 1.2}
	g := []float64{
		1, 0, -1,
		0, 1, -1,
	}
	h := []float64{0, 0, -1}

	wantX := []float64{0.62131519274376423, 0.37868480725623571}

	x := make([]float64, n)
	switch {
	case lsi(e, f, g, h, me, mg, n, x, 0) != solved:
		t.Fatal("TestLSI: no solution")
	case !almostEqual(wantX, x, 1e-12):
		t.Fatal("TestLSI: bad solution")
	}
}

// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 20.
func TestLSE(t *testing.T) {

	const (
		mc = 1
		me = 2
		mg = 0
		n  = 2
	)

	c := []float64{
		0.4087,
		0.1593,
	}
	d := []float64{0.1376}
	e := []float64{
		0.4302, 0.6246,
		0.3516, 0.3384,
	}
	f := []float64{0.6593, 0.9666}

	wantX := []float64{-1.1774989821678763, 3.8847698305838736}

	x := make([]float64, n)
	switch {
	case lsei(c, d, e, f, nil, nil, mc, me, mg, n, x, 0) != solved:
		t.Fatal("TestLSE: no solution")
	case !almostEqual(wantX, x, 1e-12):
		t.Fatal("TestLSE: bad solution")
	}
}

func TestLSEI(t *testing.T) {

	const (
		mc = 2
		me = 4
		mg = 1
		n  = 3
	)

	c := []float64{
		-1, 2,
		0, 1,
		0, -1,
	}
	d := []float64{-3, 2}
	e := []float64{
		3, 1, 2, 0,
		2, 0, 0, 1,
		1, 0, 2, 0,
	}
	f := []float64{2, 1, 8, 3}
	g := []float64{
		0,
		1,
		0,
	}
	h := []float64{3}

	wantX := []float64{3, 3, 7}

	x := make([]float64, n)
	switch {
	case lsei(c, d, e, f, g, h, mc, me, mg, n, x, 0) != solved:
		t.Fatal("TestLSEI: no solution")
	case !almostEqual(wantX, x, 1e-9):
		t.Fatal("TestLSEI: bad solution")
	}
}

// Contradictory half planes x ≥ 1 and -x ≥ 1 have no least distance
// solution.
func TestLDPIncompatible(t *testing.T) {
	g := []float64{1, -1}
	h := []float64{1, 1}
	x := make([]float64, 1)
	if ldp(g, 2, 2, 1, h, x, 0) != incompatibleCons {
		t.Fatal("TestLDPIncompatible: expected incompatible constraints")
	}
}

func almostEqual[T float64 | []float64](a, b T, tol float64) bool {
	equalWithinAbs := func(a, b float64) bool {
		return a == b || math.Abs(a-b) <= tol
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.Float64:
		return equalWithinAbs(any(a).(float64), any(b).(float64))
	case reflect.Slice:
		a, b := any(a).([]float64), any(b).([]float64)
		if len(a) != len(b) {
			return false
		}
		for i, a := range a {
			if !equalWithinAbs(a, b[i]) {
				return false
			}
		}
		return true
	default:
		panic("unknown type")
	}
}
