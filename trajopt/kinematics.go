// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trajopt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/trajsqp/sco"
)

// ForwardKin is the kinematics contract of a manipulator: it maps joint
// values to a task-space pose vector and its Jacobian. A spatial
// manipulator typically reports six components (translation followed by a
// rotation vector); planar kinematics may report fewer. The Jacobian has
// one row per pose component and one column per joint. Implementations
// live outside this module.
type ForwardKin interface {
	NumJoints() int
	Pose(joints []float64) []float64
	Jacobian(joints []float64) *mat.Dense
}

// CartPoseErr returns the pose error pose(θ) - target of one waypoint.
func CartPoseErr(kin ForwardKin, target []float64) VectorFunc {
	goal := append([]float64(nil), target...)
	return func(vals []float64) []float64 {
		pose := kin.Pose(vals)
		out := make([]float64, len(pose))
		for i := range pose {
			out[i] = pose[i] - goal[i]
		}
		return out
	}
}

// CartPoseJac is the analytic Jacobian of CartPoseErr.
func CartPoseJac(kin ForwardKin) JacobianFunc {
	return kin.Jacobian
}

// CartPoseCnt constrains waypoint t of the trajectory to the target pose.
func (tr *Trajectory) CartPoseCnt(kin ForwardKin, t int, target []float64) sco.Constraint {
	if kin.NumJoints() != tr.Dof {
		panic("kinematics dof not match trajectory")
	}
	return NewCntFromErr(CartPoseErr(kin, target), CartPoseJac(kin),
		tr.Waypoint(t), sco.EqCnt, fmt.Sprintf("pose%d", t))
}

// CartPoseCost penalizes the pose error of waypoint t.
func (tr *Trajectory) CartPoseCost(kin ForwardKin, t int, target []float64, coeff float64, penalty PenaltyType) sco.Cost {
	if kin.NumJoints() != tr.Dof {
		panic("kinematics dof not match trajectory")
	}
	return NewCostFromErr(CartPoseErr(kin, target), CartPoseJac(kin),
		tr.Waypoint(t), coeff, penalty, fmt.Sprintf("pose%d", t))
}
