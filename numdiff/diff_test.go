// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numdiff

import (
	"math"
	"testing"
)

func testFunc(x, y []float64) {
	y[0] = x[0] * x[0]
	y[1] = x[0] * x[1]
	y[2] = math.Sin(x[1])
}

func analyticJac(x []float64) []float64 {
	return []float64{
		2 * x[0], 0,
		x[1], x[0],
		0, math.Cos(x[1]),
	}
}

func maxDiff(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}

func TestForward(t *testing.T) {
	x0 := []float64{1.5, -0.7}
	jac := make([]float64, 6)
	jd := Jacobian{N: 2, M: 3, F: testFunc, Method: Forward}
	if err := jd.Diff(x0, jac); err != nil {
		t.Fatal(err)
	}
	if d := maxDiff(jac, analyticJac(x0)); d > 1e-6 {
		t.Fatalf("TestForward: jacobian off by %e", d)
	}
}

func TestCentral(t *testing.T) {
	x0 := []float64{1.5, -0.7}
	jac := make([]float64, 6)
	jd := Jacobian{N: 2, M: 3, F: testFunc, Method: Central}
	if err := jd.Diff(x0, jac); err != nil {
		t.Fatal(err)
	}
	if d := maxDiff(jac, analyticJac(x0)); d > 1e-9 {
		t.Fatalf("TestCentral: jacobian off by %e", d)
	}
}

// An iterate on its upper bound must be probed from below only.
func TestBoundedStep(t *testing.T) {
	var seen []float64
	jd := Jacobian{
		N: 1, M: 1, Method: Central,
		Lower: []float64{0}, Upper: []float64{2},
		F: func(x, y []float64) {
			seen = append(seen, x[0])
			y[0] = x[0] * x[0]
		},
	}
	jac := make([]float64, 1)
	if err := jd.Diff([]float64{2}, jac); err != nil {
		t.Fatal(err)
	}
	for _, x := range seen {
		if x > 2 || x < 0 {
			t.Fatalf("TestBoundedStep: evaluated out of bounds at %v", x)
		}
	}
	if math.Abs(jac[0]-4) > 1e-4 {
		t.Fatalf("TestBoundedStep: jacobian %v", jac[0])
	}
}

func TestBadDims(t *testing.T) {
	jd := Jacobian{N: 0, M: 1, F: testFunc}
	if err := jd.Diff(nil, nil); err == nil {
		t.Fatal("TestBadDims: expected dimension error")
	}
}
