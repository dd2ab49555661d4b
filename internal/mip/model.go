// Package mip models small integer programs and solves them.
//
// A Model is built the way a caller would drive an external MIP library:
// integer variables with explicit bounds, a linear objective and linear
// constraints with explicit lower and upper bounds. Solvers read the model
// and return a Solution whose Status tells an optimal answer apart from an
// infeasible or unfinished search.
package mip

import (
	"fmt"
	"math"
)

// Infinity is used for one-sided constraint bounds.
var Infinity = math.Inf(1)

// Var is an integer decision variable.
type Var struct {
	index int
	name  string
	lb    float64
	ub    float64
}

func (v *Var) Index() int   { return v.index }
func (v *Var) Name() string { return v.name }

// Bounds returns the variable's integer lower and upper bound.
func (v *Var) Bounds() (float64, float64) { return v.lb, v.ub }

type term struct {
	index int
	coef  float64
}

// linear keeps coefficients in insertion order so solvers see a stable layout.
type linear struct {
	terms []term
	pos   map[int]int
}

func (l *linear) set(index int, coef float64) {
	if l.pos == nil {
		l.pos = make(map[int]int)
	}
	if i, ok := l.pos[index]; ok {
		l.terms[i].coef = coef
		return
	}
	l.pos[index] = len(l.terms)
	l.terms = append(l.terms, term{index: index, coef: coef})
}

func (l *linear) coefficient(index int) float64 {
	if i, ok := l.pos[index]; ok {
		return l.terms[i].coef
	}
	return 0
}

func (l *linear) eval(values []float64) float64 {
	var sum float64
	for _, t := range l.terms {
		sum += t.coef * values[t.index]
	}
	return sum
}

// Constraint is lb <= sum(coef * var) <= ub.
type Constraint struct {
	linear
	name string
	lb   float64
	ub   float64
}

func (c *Constraint) Name() string { return c.name }

func (c *Constraint) Bounds() (float64, float64) { return c.lb, c.ub }

func (c *Constraint) SetCoefficient(v *Var, coef float64) {
	c.set(v.index, coef)
}

func (c *Constraint) Coefficient(v *Var) float64 {
	return c.coefficient(v.index)
}

// Objective is the linear function being optimized.
type Objective struct {
	linear
	maximize bool
}

func (o *Objective) SetMaximization() { o.maximize = true }
func (o *Objective) SetMinimization() { o.maximize = false }
func (o *Objective) Maximization() bool { return o.maximize }

func (o *Objective) SetCoefficient(v *Var, coef float64) {
	o.set(v.index, coef)
}

func (o *Objective) Coefficient(v *Var) float64 {
	return o.coefficient(v.index)
}

// Model is one integer program. It is not safe for concurrent mutation.
type Model struct {
	name        string
	vars        []*Var
	constraints []*Constraint
	objective   Objective
}

func NewModel(name string) *Model {
	return &Model{name: name}
}

func (m *Model) Name() string { return m.name }

// IntVar adds an integer variable bounded by [lb, ub].
func (m *Model) IntVar(lb, ub float64, name string) *Var {
	v := &Var{
		index: len(m.vars),
		name:  name,
		lb:    math.Ceil(lb),
		ub:    math.Floor(ub),
	}
	m.vars = append(m.vars, v)
	return v
}

// Constraint adds lb <= expr <= ub. Use -Infinity or Infinity for one-sided rows.
func (m *Model) Constraint(lb, ub float64, name string) *Constraint {
	c := &Constraint{name: name, lb: lb, ub: ub}
	m.constraints = append(m.constraints, c)
	return c
}

func (m *Model) Objective() *Objective { return &m.objective }

func (m *Model) Vars() []*Var { return m.vars }

func (m *Model) Constraints() []*Constraint { return m.constraints }

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) NumConstraints() int { return len(m.constraints) }

func (m *Model) String() string {
	return fmt.Sprintf("%s: %d vars, %d constraints", m.name, len(m.vars), len(m.constraints))
}

const feasTol = 1e-6

// Feasible reports whether values satisfy every bound and constraint.
func (m *Model) Feasible(values []float64) bool {
	if len(values) != len(m.vars) {
		return false
	}
	for i, v := range m.vars {
		x := values[i]
		if x < v.lb-feasTol || x > v.ub+feasTol {
			return false
		}
		if math.Abs(x-math.Round(x)) > feasTol {
			return false
		}
	}
	for _, c := range m.constraints {
		activity := c.eval(values)
		if activity < c.lb-feasTol*(1+math.Abs(c.lb)) || activity > c.ub+feasTol*(1+math.Abs(c.ub)) {
			return false
		}
	}
	return true
}

// Evaluate returns the objective value at values.
func (m *Model) Evaluate(values []float64) float64 {
	return m.objective.eval(values)
}

// sense is +1 when maximizing and -1 when minimizing, so solvers can always
// search for the largest score.
func (m *Model) sense() float64 {
	if m.objective.maximize {
		return 1
	}
	return -1
}
