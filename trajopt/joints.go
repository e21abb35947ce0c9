// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trajopt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/trajsqp/sco"
)

// Joint stencils operate on a per-joint variable vector
// (θ₀ ··· θ_{T-1}, 1/dt₀ ··· 1/dt_{T-1}): the top half holds the joint
// values of T consecutive waypoints and the bottom half the inverse step
// durations. The velocity between waypoints i and i+1 uses the 1/dt of the
// second waypoint; entry 1/dt₀ is never referenced.

func velRaw(vals []float64) []float64 {
	half := len(vals) / 2
	out := make([]float64, half-1)
	for i := range out {
		out[i] = (vals[i+1] - vals[i]) * vals[half+1+i]
	}
	return out
}

func velRawJac(vals []float64) *mat.Dense {
	n := len(vals)
	half := n / 2
	jac := mat.NewDense(half-1, n, nil)
	for i := 0; i < half-1; i++ {
		ti := i + half + 1
		jac.Set(i, i, -vals[ti])
		jac.Set(i, i+1, vals[ti])
		jac.Set(i, ti, vals[i+1]-vals[i])
	}
	return jac
}

func accRaw(vals []float64) []float64 {
	half := len(vals) / 2
	vels := velRaw(vals)
	out := make([]float64, half-2)
	for i := range out {
		out[i] = 2 * (vels[i+1] - vels[i]) / (vals[half+1+i] + vals[half+2+i])
	}
	return out
}

func accRawJac(vals []float64) *mat.Dense {
	n := len(vals)
	half := n / 2
	vels := velRaw(vals)
	velJac := velRawJac(vals)
	jac := mat.NewDense(half-2, n, nil)
	for i := 0; i < half-2; i++ {
		dt1 := i + half + 1
		dt2 := dt1 + 1
		totalDt := vals[dt1] + vals[dt2]
		jac.Set(i, i, 2*(velJac.At(i+1, i)-velJac.At(i, i))/totalDt)
		jac.Set(i, i+1, 2*(velJac.At(i+1, i+1)-velJac.At(i, i+1))/totalDt)
		jac.Set(i, i+2, 2*(velJac.At(i+1, i+2)-velJac.At(i, i+2))/totalDt)
		dv := (vels[i+1] - vels[i]) / (totalDt * totalDt)
		jac.Set(i, dt1, 2*((velJac.At(i+1, dt1)-velJac.At(i, dt1))/totalDt-dv))
		jac.Set(i, dt2, 2*((velJac.At(i+1, dt2)-velJac.At(i, dt2))/totalDt-dv))
	}
	return jac
}

func jerkRaw(vals []float64) []float64 {
	half := len(vals) / 2
	accs := accRaw(vals)
	out := make([]float64, half-3)
	for i := range out {
		out[i] = 3 * (accs[i+1] - accs[i]) / (vals[half+1+i] + vals[half+2+i] + vals[half+3+i])
	}
	return out
}

func jerkRawJac(vals []float64) *mat.Dense {
	n := len(vals)
	half := n / 2
	accs := accRaw(vals)
	accJac := accRawJac(vals)
	jac := mat.NewDense(half-3, n, nil)
	for i := 0; i < half-3; i++ {
		dt1 := i + half + 1
		dt2 := dt1 + 1
		dt3 := dt2 + 1
		totalDt := vals[dt1] + vals[dt2] + vals[dt3]
		for _, c := range []int{i, i + 1, i + 2, i + 3} {
			jac.Set(i, c, 3*(accJac.At(i+1, c)-accJac.At(i, c))/totalDt)
		}
		da := (accs[i+1] - accs[i]) / (totalDt * totalDt)
		for _, c := range []int{dt1, dt2, dt3} {
			jac.Set(i, c, 3*((accJac.At(i+1, c)-accJac.At(i, c))/totalDt-da))
		}
	}
	return jac
}

// JointVelErr returns the velocity tolerance error: for every pair of
// consecutive waypoints it emits v - target - upperTol followed (in the
// bottom half) by lowerTol - (v - target). For an equality target both
// tolerances are zero and the error is effectively doubled.
func JointVelErr(target, upperTol, lowerTol float64) VectorFunc {
	return func(vals []float64) []float64 {
		vels := velRaw(vals)
		out := make([]float64, 2*len(vels))
		for i, v := range vels {
			out[i] = v - target - upperTol
			out[len(vels)+i] = lowerTol - (v - target)
		}
		return out
	}
}

// JointVelJac is the analytic Jacobian of JointVelErr.
func JointVelJac() JacobianFunc {
	return func(vals []float64) *mat.Dense {
		n := len(vals)
		raw := velRawJac(vals)
		numVels := n/2 - 1
		jac := mat.NewDense(2*numVels, n, nil)
		for i := 0; i < numVels; i++ {
			for c := 0; c < n; c++ {
				v := raw.At(i, c)
				jac.Set(i, c, v)
				jac.Set(numVels+i, c, -v)
			}
		}
		return jac
	}
}

// JointAccErr returns the acceleration limit error acc - limit per interior
// waypoint.
func JointAccErr(limit float64) VectorFunc {
	return func(vals []float64) []float64 {
		out := accRaw(vals)
		for i := range out {
			out[i] -= limit
		}
		return out
	}
}

// JointAccJac is the analytic Jacobian of JointAccErr.
func JointAccJac() JacobianFunc { return accRawJac }

// JointJerkErr returns the jerk limit error jerk - limit per interior
// waypoint pair.
func JointJerkErr(limit float64) VectorFunc {
	return func(vals []float64) []float64 {
		out := jerkRaw(vals)
		for i := range out {
			out[i] -= limit
		}
		return out
	}
}

// JointJerkJac is the analytic Jacobian of JointJerkErr.
func JointJerkJac() JacobianFunc { return jerkRawJac }

// TimeErr returns the total-duration error Σ dtᵢ - limit over the inverse
// step duration variables.
func TimeErr(limit float64) VectorFunc {
	return func(vals []float64) []float64 {
		total := -limit
		for _, v := range vals {
			total += 1 / v
		}
		return []float64{total}
	}
}

// TimeJac is the analytic Jacobian of TimeErr.
func TimeJac() JacobianFunc {
	return func(vals []float64) *mat.Dense {
		jac := mat.NewDense(1, len(vals), nil)
		for i, v := range vals {
			jac.Set(0, i, -1/(v*v))
		}
		return jac
	}
}

// Trajectory lays a T × dof waypoint grid, and optionally a column of
// inverse step durations, over problem variables.
type Trajectory struct {
	Steps, Dof int
	joints     []sco.Var // Steps*Dof, row-major by waypoint
	timeVars   []sco.Var // Steps inverse durations, empty when untimed
}

// NewTrajectory creates the waypoint variables in prob. Per-joint bounds
// apply to every waypoint. When invDtLower > 0 an inverse step duration
// column bounded to [invDtLower, invDtUpper] is created as well.
func NewTrajectory(prob *sco.OptProb, steps, dof int, jointLower, jointUpper []float64, invDtLower, invDtUpper float64) *Trajectory {
	if len(jointLower) != dof || len(jointUpper) != dof {
		panic("joint bounds dimension not match dof")
	}
	names := make([]string, 0, steps*dof)
	lower := make([]float64, 0, steps*dof)
	upper := make([]float64, 0, steps*dof)
	for t := 0; t < steps; t++ {
		for d := 0; d < dof; d++ {
			names = append(names, fmt.Sprintf("j%d_%d", t, d))
			lower = append(lower, jointLower[d])
			upper = append(upper, jointUpper[d])
		}
	}
	traj := &Trajectory{Steps: steps, Dof: dof}
	traj.joints = prob.CreateVariables(names, lower, upper)
	if invDtLower > 0 {
		names = names[:0]
		lower = lower[:0]
		upper = upper[:0]
		for t := 0; t < steps; t++ {
			names = append(names, fmt.Sprintf("dt%d", t))
			lower = append(lower, invDtLower)
			upper = append(upper, invDtUpper)
		}
		traj.timeVars = prob.CreateVariables(names, lower, upper)
	}
	return traj
}

// Waypoint returns the joint variables of waypoint t.
func (tr *Trajectory) Waypoint(t int) []sco.Var {
	return tr.joints[t*tr.Dof : (t+1)*tr.Dof]
}

// Column returns the variables of joint d across all waypoints.
func (tr *Trajectory) Column(d int) []sco.Var {
	out := make([]sco.Var, tr.Steps)
	for t := 0; t < tr.Steps; t++ {
		out[t] = tr.joints[t*tr.Dof+d]
	}
	return out
}

// TimeVars returns the inverse step duration variables.
func (tr *Trajectory) TimeVars() []sco.Var { return tr.timeVars }

// ColumnWithTime returns the stencil variable vector of joint d:
// its waypoint column followed by the inverse duration column.
func (tr *Trajectory) ColumnWithTime(d int) []sco.Var {
	if len(tr.timeVars) == 0 {
		panic("trajectory has no time variables")
	}
	return append(tr.Column(d), tr.timeVars...)
}

// PinWaypoint constrains waypoint t to the given joint values.
func (tr *Trajectory) PinWaypoint(t int, target []float64) sco.Constraint {
	if len(target) != tr.Dof {
		panic("pin target dimension not match dof")
	}
	goal := append([]float64(nil), target...)
	vars := tr.Waypoint(t)
	f := func(vals []float64) []float64 {
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = v - goal[i]
		}
		return out
	}
	jac := func(vals []float64) *mat.Dense {
		m := mat.NewDense(len(vals), len(vals), nil)
		for i := range vals {
			m.Set(i, i, 1)
		}
		return m
	}
	return NewCntFromErr(f, jac, vars, sco.EqCnt, fmt.Sprintf("pin%d", t))
}

// SmoothCost is a squared-displacement cost Σ coeff·(θ_{t+1,d} - θ_{t,d})²
// over the whole trajectory.
func (tr *Trajectory) SmoothCost(coeff float64) sco.Cost {
	vars := tr.joints
	dof := tr.Dof
	f := func(vals []float64) []float64 {
		out := make([]float64, 0, len(vals)-dof)
		for i := dof; i < len(vals); i++ {
			out = append(out, vals[i]-vals[i-dof])
		}
		return out
	}
	jac := func(vals []float64) *mat.Dense {
		m := mat.NewDense(len(vals)-dof, len(vals), nil)
		for i := dof; i < len(vals); i++ {
			m.Set(i-dof, i, 1)
			m.Set(i-dof, i-dof, -1)
		}
		return m
	}
	return NewCostFromErr(f, jac, vars, coeff, Squared, "smooth")
}

// TotalTimeCost penalizes trajectory duration beyond limit with the given
// penalty style, or the raw duration when limit is zero.
func (tr *Trajectory) TotalTimeCost(coeff, limit float64, penalty PenaltyType) sco.Cost {
	if len(tr.timeVars) == 0 {
		panic("trajectory has no time variables")
	}
	return NewCostFromErr(TimeErr(limit), TimeJac(), tr.timeVars, coeff, penalty, "time")
}
