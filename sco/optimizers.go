// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sco

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Callback observes the optimization: it is invoked once at the start of
// every SQP iteration and once at termination. Callbacks must not mutate
// the problem structure.
type Callback func(prob *OptProb, results *OptResults)

// BasicTrustRegionSQP minimizes an OptProb with trust-region SQP under an
// L1 exact-penalty merit function.
//
// Each SQP iteration convexifies every cost and constraint at the current
// iterate, converts the constraint linearizations into abs/hinge penalties
// weighted by the merit coefficient, and minimizes the summed quadratic
// model inside the trust box intersected with the variable bounds. A step is
// accepted when the realized merit improvement is positive and agrees with
// the predicted one; otherwise the box shrinks. An outer loop raises the
// merit coefficient until the constraints are satisfied.
type BasicTrustRegionSQP struct {
	Param  Parameters
	Logger *Logger

	prob      *OptProb
	model     Model
	results   OptResults
	callbacks []Callback
}

// NewBasicTrustRegionSQP returns a solver for prob with default parameters.
func NewBasicTrustRegionSQP(prob *OptProb) *BasicTrustRegionSQP {
	o := &BasicTrustRegionSQP{Param: DefaultParameters()}
	o.SetProblem(prob)
	return o
}

// SetProblem binds the solver to a problem and its model.
func (o *BasicTrustRegionSQP) SetProblem(prob *OptProb) {
	o.prob = prob
	if prob != nil {
		o.model = prob.Model()
	}
}

// AddCallback appends an observer. Callbacks run in registration order.
func (o *BasicTrustRegionSQP) AddCallback(cb Callback) {
	o.callbacks = append(o.callbacks, cb)
}

// Results exposes the running snapshot. Valid after Initialize.
func (o *BasicTrustRegionSQP) Results() *OptResults { return &o.results }

// Initialize sets the starting iterate. Must run after SetProblem and
// before Optimize.
func (o *BasicTrustRegionSQP) Initialize(x []float64) error {
	if o.prob == nil {
		return fmt.Errorf("need to set the problem before initializing")
	}
	if len(o.prob.Vars()) != len(x) {
		return fmt.Errorf("initialization vector has wrong length: expected %d got %d", len(o.prob.Vars()), len(x))
	}
	o.results.Clear()
	o.results.X = append([]float64(nil), x...)
	return nil
}

func (o *BasicTrustRegionSQP) callCallbacks() {
	for _, cb := range o.callbacks {
		cb(o.prob, &o.results)
	}
}

func (o *BasicTrustRegionSQP) adjustTrustRegion(ratio float64) {
	o.Param.TrustBoxSize *= ratio
}

// setTrustBoxConstraints bounds every problem variable to the intersection
// of its bounds with [xᵢ-Δ, xᵢ+Δ].
func (o *BasicTrustRegionSQP) setTrustBoxConstraints(x []float64) {
	vars := o.prob.Vars()
	if len(vars) != len(x) {
		panic("iterate dimension not match problem")
	}
	lb, ub := o.prob.LowerBounds(), o.prob.UpperBounds()
	lbTrust := make([]float64, len(x))
	ubTrust := make([]float64, len(x))
	for i := range x {
		lbTrust[i] = math.Max(x[i]-o.Param.TrustBoxSize, lb[i])
		ubTrust[i] = math.Min(x[i]+o.Param.TrustBoxSize, ub[i])
	}
	o.model.SetVarBounds(vars, lbTrust, ubTrust)
}

// iterLogs holds the per-iteration CSV streams. Best-effort: a stream that
// failed to open stays nil and its records are dropped.
type iterLogs struct {
	solver, vars, costs, cnts *os.File
}

func openIterLogs(dir string, logger *Logger) *iterLogs {
	open := func(name string) *os.File {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			logger.log(LogError, "cannot open iteration log %s: %v", name, err)
			return nil
		}
		return f
	}
	return &iterLogs{
		solver: open("trajopt_solver.log"),
		vars:   open("trajopt_vars.log"),
		costs:  open("trajopt_costs.log"),
		cnts:   open("trajopt_constraints.log"),
	}
}

func (l *iterLogs) write(tr *TrustRegionResults, header bool) {
	if l == nil {
		return
	}
	if l.solver != nil {
		tr.WriteSolver(l.solver, header)
	}
	if l.vars != nil {
		tr.WriteVars(l.vars, header)
	}
	if l.costs != nil {
		tr.WriteCosts(l.costs, header)
	}
	if l.cnts != nil {
		tr.WriteConstraints(l.cnts, header)
	}
}

func (l *iterLogs) close() {
	if l == nil {
		return
	}
	for _, f := range []*os.File{l.solver, l.vars, l.costs, l.cnts} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Optimize runs the solver to a terminal status. The final iterate, cost
// values, violations and counters are available through Results.
func (o *BasicTrustRegionSQP) Optimize() OptStatus {
	if len(o.results.X) == 0 {
		panic("optimizer is not initialized")
	}
	if o.prob == nil {
		panic("optimization problem is not set")
	}

	prob, model, param := o.prob, o.model, &o.Param
	logger, results := o.Logger, &o.results

	constraints := prob.Constraints()
	varNames := make([]string, len(prob.Vars()))
	for i, v := range prob.Vars() {
		varNames[i] = v.Rep.Name
	}
	costNames := make([]string, len(prob.Costs()))
	for i, c := range prob.Costs() {
		costNames[i] = c.Name()
	}
	cntNames := make([]string, len(constraints))
	for i, c := range constraints {
		cntNames[i] = c.Name()
	}
	iterResults := newTrustRegionResults(varNames, costNames, cntNames)

	var logs *iterLogs
	if param.LogResults {
		logs = openIterLogs(param.LogDir, logger)
	}
	defer logs.close()

	results.X = prob.ClosestFeasiblePoint(results.X)

	// Convex contributions installed into the model for the running SQP
	// iteration. Released before the next convexification and at exit so
	// the model never accumulates stale auxiliary columns.
	var installed []*ConvexObjective
	release := func() {
		for _, co := range installed {
			co.Release()
		}
		installed = installed[:0]
	}
	defer func() {
		release()
		model.Update()
	}()

	start := time.Now()
	retval := StatusInvalid
	done := false

meritLoop:
	for meritIncreases := 0; meritIncreases < param.MaxMeritCoeffIncreases; meritIncreases++ {
	sqpLoop:
		for iter := 1; ; iter++ {
			o.callCallbacks()

			if time.Since(start).Seconds() > param.MaxTime {
				logger.log(LogInfo, "time limit reached")
				retval = OptScoIterationLimit
				done = true
				break meritLoop
			}

			logger.log(LogDebug, "current iterate: %v", results.X)
			logger.log(LogInfo, "iteration %d", iter)

			// Only happens on the first iteration: later iterations reuse
			// the evaluations made when the step was accepted.
			if len(results.CostVals) == 0 && len(results.CntViols) == 0 {
				results.CntViols = evaluateCntViols(constraints, results.X)
				results.CostVals = evaluateCosts(prob.Costs(), results.X)
				results.NumFuncEvals++
			}

			release()
			costModels := convexifyCosts(prob.Costs(), results.X, model)
			cntModels := convexifyCnts(constraints, results.X, model)
			cntCostModels := CntsToCosts(cntModels, param.MeritErrorCoeff, model)
			model.Update()
			for _, cost := range costModels {
				cost.Install()
			}
			for _, cost := range cntCostModels {
				cost.Install()
			}
			installed = append(installed, costModels...)
			installed = append(installed, cntCostModels...)
			model.Update()

			var objective QuadExpr
			for _, co := range costModels {
				objective.AddQuad(co.Quad)
			}
			for _, co := range cntCostModels {
				objective.AddQuad(co.Quad)
			}
			model.SetObjective(objective)

			for param.TrustBoxSize >= param.MinTrustBoxSize {
				o.setTrustBoxConstraints(results.X)
				status := model.Optimize()

				results.NumQPSolves++
				if status != CvxSolved {
					logger.log(LogError, "convex solver failed (%v): saving model to %s.lp and %s.ilp",
						status, param.ModelDumpPrefix, param.ModelDumpPrefix)
					_ = model.WriteToFile(param.ModelDumpPrefix + ".lp")
					_ = model.WriteToFile(param.ModelDumpPrefix + ".ilp")
					retval = OptFailed
					done = true
					break meritLoop
				}

				iterResults.update(results, model, costModels, cntModels,
					constraints, prob.Costs(), param.MeritErrorCoeff)

				logs.write(iterResults, results.NumFuncEvals == 1)
				if logger.enable(LogDebug) {
					iterResults.Print(logger.Msg)
				}

				results.NumFuncEvals++

				if iterResults.ApproxMeritImprove < -1e-5 {
					logger.log(LogError, "approximate merit function got worse (%.3e): convexification is probably wrong to zeroth order",
						iterResults.ApproxMeritImprove)
				}

				if iterResults.ApproxMeritImprove < param.MinApproxImprove {
					logger.log(LogInfo, "converged because improvement was small (%.3e < %.3e)",
						iterResults.ApproxMeritImprove, param.MinApproxImprove)
					retval = OptConverged
					break sqpLoop
				}
				if iterResults.ApproxMeritImprove/iterResults.OldMerit < param.MinApproxImproveFrac {
					logger.log(LogInfo, "converged because improvement ratio was small (%.3e < %.3e)",
						iterResults.ApproxMeritImprove/iterResults.OldMerit, param.MinApproxImproveFrac)
					retval = OptConverged
					break sqpLoop
				} else if iterResults.ExactMeritImprove < 0 || iterResults.MeritImproveRatio < param.ImproveRatioThreshold {
					o.adjustTrustRegion(param.TrustShrinkRatio)
					logger.log(LogInfo, "shrunk trust region. new box size: %.4f", param.TrustBoxSize)
				} else {
					results.X = iterResults.NewX
					results.CostVals = iterResults.NewCostVals
					results.CntViols = iterResults.NewCntViols
					o.adjustTrustRegion(param.TrustExpandRatio)
					logger.log(LogInfo, "expanded trust region. new box size: %.4f", param.TrustBoxSize)
					break
				}
			}

			if param.TrustBoxSize < param.MinTrustBoxSize {
				logger.log(LogInfo, "converged because trust region is tiny")
				retval = OptConverged
				break sqpLoop
			} else if iter >= param.MaxIter {
				logger.log(LogInfo, "iteration limit")
				retval = OptScoIterationLimit
				done = true
				break meritLoop
			}
		}

		// Penalty adjustment: reached only on OptConverged.
		if len(results.CntViols) == 0 || vecMax(results.CntViols) < param.CntTolerance {
			if len(results.CntViols) > 0 {
				logger.log(LogInfo, "constraints are satisfied (to tolerance %.2e)", param.CntTolerance)
			}
			done = true
			break
		}
		logger.log(LogInfo, "not all constraints are satisfied. increasing penalties")
		param.MeritErrorCoeff *= param.MeritCoeffIncreaseRatio
		param.TrustBoxSize = math.Max(param.TrustBoxSize, param.MinTrustBoxSize/param.TrustShrinkRatio*1.5)
	}

	if !done {
		retval = OptPenaltyIterationLimit
		logger.log(LogInfo, "optimization couldn't satisfy all constraints")
	}

	results.Status = retval
	results.TotalCost = vecSum(results.CostVals)
	logger.log(LogInfo, "\n==================\n%v==================", results)
	o.callCallbacks()
	return retval
}
