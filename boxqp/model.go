// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxqp

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/curioloop/trajsqp/sco"
)

// Model is a dense in-memory convex quadratic program implementing
// sco.Model. Added variables and constraints are live at once; removals
// are staged, and Update commits them and reassigns handle indices. A
// Model is not safe for concurrent use.
type Model struct {
	// MaxIter caps the active-set iterations of the inner NNLS solve.
	// Zero picks the kernel default of three times the NNLS column count,
	// which is the number of inequality rows (inequality constraints plus
	// finite bounds).
	MaxIter int

	vars      []*varRec
	cnts      []*cntRec
	objective sco.QuadExpr
	auxSeq    int
	dirty     bool
}

type varRec struct {
	rep    *sco.VarRep
	lb, ub float64
	value  float64
}

type cntRec struct {
	rep *sco.CntRep
	aff sco.AffExpr
}

var _ sco.Model = (*Model)(nil)

// New returns an empty model.
func New() *Model {
	return &Model{}
}

// AddVars appends named variables with bounds (-∞, +∞).
func (m *Model) AddVars(names []string) []sco.Var {
	out := make([]sco.Var, len(names))
	for i, name := range names {
		rep := &sco.VarRep{Index: len(m.vars), Name: name}
		m.vars = append(m.vars, &varRec{rep: rep, lb: math.Inf(-1), ub: math.Inf(1)})
		out[i] = sco.Var{Rep: rep}
	}
	return out
}

// AddAuxVars appends n auxiliary variables with bounds [0, +∞).
func (m *Model) AddAuxVars(n int) []sco.Var {
	out := make([]sco.Var, n)
	for i := range out {
		m.auxSeq++
		rep := &sco.VarRep{Index: len(m.vars), Name: fmt.Sprintf("aux%d", m.auxSeq)}
		m.vars = append(m.vars, &varRec{rep: rep, lb: zero, ub: math.Inf(1)})
		out[i] = sco.Var{Rep: rep}
	}
	return out
}

// RemoveVars marks variables for removal at the next Update.
func (m *Model) RemoveVars(vars []sco.Var) {
	for _, v := range vars {
		v.Rep.Removed = true
	}
	m.dirty = true
}

// SetVarBounds replaces the bounds of the given variables.
func (m *Model) SetVarBounds(vars []sco.Var, lower, upper []float64) {
	if len(vars) != len(lower) || len(vars) != len(upper) {
		panic("bounds dimension not match variables")
	}
	for i, v := range vars {
		rec := m.vars[v.Rep.Index]
		rec.lb, rec.ub = lower[i], upper[i]
	}
}

// VarValues reports the last solved values of the given variables.
func (m *Model) VarValues(vars []sco.Var) []float64 {
	out := make([]float64, len(vars))
	for i, v := range vars {
		out[i] = m.vars[v.Rep.Index].value
	}
	return out
}

// Vars lists the live variables in index order.
func (m *Model) Vars() []sco.Var {
	out := make([]sco.Var, len(m.vars))
	for i, rec := range m.vars {
		out[i] = sco.Var{Rep: rec.rep}
	}
	return out
}

// AddEqCnt adds the constraint aff = 0.
func (m *Model) AddEqCnt(aff sco.AffExpr, name string) sco.Cnt {
	return m.addCnt(aff, name, sco.EqCnt)
}

// AddIneqCnt adds the constraint aff ≤ 0.
func (m *Model) AddIneqCnt(aff sco.AffExpr, name string) sco.Cnt {
	return m.addCnt(aff, name, sco.IneqCnt)
}

func (m *Model) addCnt(aff sco.AffExpr, name string, typ sco.CntType) sco.Cnt {
	rep := &sco.CntRep{Index: len(m.cnts), Name: name, Type: typ}
	m.cnts = append(m.cnts, &cntRec{rep: rep, aff: aff})
	return sco.Cnt{Rep: rep}
}

// RemoveCnts marks constraints for removal at the next Update.
func (m *Model) RemoveCnts(cnts []sco.Cnt) {
	for _, c := range cnts {
		c.Rep.Removed = true
	}
	m.dirty = true
}

// SetObjective replaces the objective to be minimized.
func (m *Model) SetObjective(q sco.QuadExpr) {
	m.objective = q
}

// Update commits pending removals and reindexes the surviving handles.
func (m *Model) Update() {
	if !m.dirty {
		return
	}
	m.dirty = false

	vars := m.vars[:0]
	for _, rec := range m.vars {
		if rec.rep.Removed {
			continue
		}
		rec.rep.Index = len(vars)
		vars = append(vars, rec)
	}
	m.vars = vars

	cnts := m.cnts[:0]
	for _, rec := range m.cnts {
		if rec.rep.Removed {
			continue
		}
		rec.rep.Index = len(cnts)
		cnts = append(cnts, rec)
	}
	m.cnts = cnts
}

// WriteToFile dumps the current program in LP text format.
func (m *Model) WriteToFile(path string) error {
	var sb strings.Builder
	sb.WriteString("\\ boxqp model dump\nMinimize\n obj: ")
	writeAff(&sb, m.objective.Affine)
	if len(m.objective.Coeffs) > 0 {
		sb.WriteString(" + [")
		for i, coeff := range m.objective.Coeffs {
			if i > 0 {
				sb.WriteString(" +")
			}
			v1 := m.objective.Vars1[i].Rep
			v2 := m.objective.Vars2[i].Rep
			if v1 == v2 {
				fmt.Fprintf(&sb, " %g %s ^ 2", 2*coeff, v1.Name)
			} else {
				fmt.Fprintf(&sb, " %g %s * %s", 2*coeff, v1.Name, v2.Name)
			}
		}
		sb.WriteString(" ] / 2")
	}
	sb.WriteString("\nSubject To\n")
	for i, rec := range m.cnts {
		sense := "<="
		if rec.rep.Type == sco.EqCnt {
			sense = "="
		}
		fmt.Fprintf(&sb, " c%d_%s: ", i, rec.rep.Name)
		writeAff(&sb, sco.AffExpr{Coeffs: rec.aff.Coeffs, Vars: rec.aff.Vars})
		fmt.Fprintf(&sb, " %s %g\n", sense, -rec.aff.Constant)
	}
	sb.WriteString("Bounds\n")
	for _, rec := range m.vars {
		fmt.Fprintf(&sb, " %g <= %s <= %g\n", rec.lb, rec.rep.Name, rec.ub)
	}
	sb.WriteString("End\n")
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func writeAff(sb *strings.Builder, aff sco.AffExpr) {
	if aff.Constant != 0 || len(aff.Coeffs) == 0 {
		fmt.Fprintf(sb, "%g", aff.Constant)
	}
	for i, coeff := range aff.Coeffs {
		if i > 0 || aff.Constant != 0 {
			sb.WriteString(" +")
		}
		fmt.Fprintf(sb, " %g %s", coeff, aff.Vars[i].Rep.Name)
	}
}
