// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trajopt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/trajsqp/sco"
)

// θ = (0, 0.1, 0.3, 0.6), 1/dt = (2, 2.5, 3, 3.5)
var stencilVals = []float64{0, 0.1, 0.3, 0.6, 2, 2.5, 3, 3.5}

func requireJacMatch(t *testing.T, f VectorFunc, jac JacobianFunc, vals []float64, tol float64) {
	t.Helper()
	want := numericJac(f, vals, len(f(vals)))
	got := jac(vals)
	r, c := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, r, gr)
	require.Equal(t, c, gc)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tol, "entry (%d,%d)", i, j)
		}
	}
}

func TestJointVelErr(t *testing.T) {
	f := JointVelErr(0.1, 0.2, 0.1)
	errs := f(stencilVals)
	require.Len(t, errs, 6)
	// velocities: 0.1·2.5, 0.2·3, 0.3·3.5
	vels := []float64{0.25, 0.6, 1.05}
	for i, v := range vels {
		require.InDelta(t, v-0.1-0.2, errs[i], 1e-12)
		require.InDelta(t, 0.1-(v-0.1), errs[3+i], 1e-12)
	}
	requireJacMatch(t, f, JointVelJac(), stencilVals, 1e-6)
}

func TestJointAccErr(t *testing.T) {
	f := JointAccErr(0.5)
	require.Len(t, f(stencilVals), 2)
	requireJacMatch(t, f, JointAccJac(), stencilVals, 1e-6)
}

func TestJointJerkErr(t *testing.T) {
	f := JointJerkErr(0.5)
	require.Len(t, f(stencilVals), 1)
	requireJacMatch(t, f, JointJerkJac(), stencilVals, 1e-5)
}

func TestTimeErr(t *testing.T) {
	invDt := []float64{2, 4}
	f := TimeErr(0.5)
	total := f(invDt)
	require.Len(t, total, 1)
	require.InDelta(t, 0.5+0.25-0.5, total[0], 1e-12)
	requireJacMatch(t, f, TimeJac(), invDt, 1e-6)
}

func TestLinearize(t *testing.T) {
	f := func(v []float64) []float64 { return []float64{v[0]*v[0] - v[1]} }
	vals := []float64{1.5, 2.0}
	jac := numericJac(f, vals, 1)

	vs := []sco.Var{
		{Rep: &sco.VarRep{Index: 0, Name: "a"}},
		{Rep: &sco.VarRep{Index: 1, Name: "b"}},
	}
	affs := linearize(f(vals), jac, vs, vals)
	require.Len(t, affs, 1)
	// The value matches at the linearization point, and the numeric
	// Jacobian that supplies the gradient matches the analytic one.
	require.InDelta(t, f(vals)[0], affs[0].Value(vals), 1e-9)
	require.InDelta(t, 2*vals[0], jac.At(0, 0), 1e-6)
}
