package mip

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultMaxNodes bounds the branch and bound tree.
const DefaultMaxNodes = 200000

const (
	integralTol = 1e-6
	pruneTol    = 1e-9
	simplexTol  = 1e-10
)

// BranchAndBound solves integer programs with depth-first branch and bound
// over LP relaxations. When every variable is bounded, relaxations are solved
// by a dual simplex that warm-starts each child from its parent's tableau,
// and nonbasic variables are fixed by reduced cost once an incumbent exists.
// Models with unbounded variables are relaxed with gonum's simplex.
type BranchAndBound struct {
	MaxNodes int
}

func NewBranchAndBound(maxNodes int) *BranchAndBound {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &BranchAndBound{MaxNodes: maxNodes}
}

type bbNode struct {
	lb []float64
	ub []float64
	// bound is the parent's relaxation bound.
	bound float64
	warm  *tableau
}

// relaxation is the LP bound of one node. bound is in sense-adjusted units,
// so larger is always better.
type relaxation struct {
	infeasible bool
	bound      float64
	x          []float64
	branch     int
	tab        *tableau
}

type relaxer interface {
	relax(nd *bbNode) relaxation
}

func (b *BranchAndBound) Solve(ctx context.Context, model *Model) (*Solution, error) {
	n := model.NumVars()
	root := &bbNode{lb: make([]float64, n), ub: make([]float64, n), bound: math.Inf(1)}
	boxed := true
	for j, v := range model.vars {
		if v.lb > v.ub {
			return &Solution{Status: Infeasible}, nil
		}
		if math.IsInf(v.lb, -1) {
			return nil, fmt.Errorf("%w: %s", ErrUnboundedVariable, v.name)
		}
		root.lb[j], root.ub[j] = v.lb, v.ub
		if math.IsInf(v.ub, 1) {
			boxed = false
		}
	}

	var rx relaxer = simplexRelaxer{model: model}
	if boxed {
		rx = newDualRelaxer(model)
	}

	sense := model.sense()
	var incumbent []float64
	best := math.Inf(-1)
	consider := func(x []float64) bool {
		if !model.Feasible(x) {
			return false
		}
		if score := sense * model.Evaluate(x); incumbent == nil || score > best+pruneTol {
			best, incumbent = score, x
		}
		return true
	}

	stack := []*bbNode{root}
	nodes := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= b.MaxNodes {
			return &Solution{Status: NotSolved, Nodes: nodes}, nil
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if incumbent != nil && nd.bound <= best+pruneTol {
			continue
		}
		nodes++

		rel := rx.relax(nd)
		if rel.infeasible {
			continue
		}
		if incumbent != nil && rel.bound <= best+pruneTol {
			continue
		}

		if rel.branch < 0 {
			if consider(rel.x) {
				continue
			}
			// Rounding noise left an infeasible point; split on a free variable instead.
			rel.branch = firstFree(nd.lb, nd.ub)
			if rel.branch < 0 {
				continue
			}
		} else {
			consider(roundWithin(rel.x, nd.lb, nd.ub))
		}

		lb, ub := nd.lb, nd.ub
		if incumbent != nil && rel.tab != nil {
			lb, ub, _ = rel.tab.fixByCost(lb, ub, rel.bound-best)
		}

		j := rel.branch
		value := (lb[j] + ub[j]) / 2
		if rel.x != nil {
			value = rel.x[j]
		}
		split := math.Floor(value)
		if split >= ub[j] {
			split = ub[j] - 1
		}
		if split < lb[j] {
			split = lb[j]
		}

		down := &bbNode{lb: lb, ub: cloneWith(ub, j, split), bound: rel.bound}
		up := &bbNode{lb: cloneWith(lb, j, split+1), ub: ub, bound: rel.bound}

		// Explore the child closer to the relaxed value first. It takes the
		// parent's tableau and its sibling gets a copy.
		first, second := down, up
		if value-split >= 0.5 {
			first, second = up, down
		}
		if rel.tab != nil {
			second.warm = rel.tab.clone()
			first.warm = rel.tab
		}
		stack = append(stack, second, first)
	}

	if incumbent == nil {
		return &Solution{Status: Infeasible, Nodes: nodes}, nil
	}
	return &Solution{
		Status:    Optimal,
		Objective: model.Evaluate(incumbent),
		Values:    incumbent,
		Nodes:     nodes,
	}, nil
}

// roundWithin rounds every value to the nearest integer inside [lb, ub].
func roundWithin(x, lb, ub []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = math.Min(math.Max(math.Round(v), lb[j]), ub[j])
	}
	return out
}

func cloneWith(src []float64, j int, value float64) []float64 {
	dst := append([]float64(nil), src...)
	dst[j] = value
	return dst
}

func firstFree(lb, ub []float64) int {
	for j := range lb {
		if lb[j] < ub[j] {
			return j
		}
	}
	return -1
}

type lpRow struct {
	terms []term // column-indexed
	slack float64
	rhs   float64
}

// relax solves the LP relaxation of model with variable bounds [lb, ub].
//
// Variables are shifted to y = x - lb so every column is non-negative. Each
// kept constraint side gets its own slack column and every free variable with
// a finite upper bound gets an explicit bound row, which keeps the
// standard-form matrix at full row rank.
func relax(model *Model, lb, ub []float64) relaxation {
	sense := model.sense()
	n := len(lb)

	col := make([]int, n)
	var free []int
	constant := 0.0
	for j := 0; j < n; j++ {
		constant += sense * model.objective.coefficient(j) * lb[j]
		if lb[j] < ub[j] {
			col[j] = len(free)
			free = append(free, j)
		} else {
			col[j] = -1
		}
	}

	if len(free) == 0 {
		if !model.Feasible(lb) {
			return relaxation{infeasible: true}
		}
		return relaxation{bound: constant, x: append([]float64(nil), lb...), branch: -1}
	}

	rows := make([]lpRow, 0, len(model.constraints)+len(free))
	for _, c := range model.constraints {
		var shift, minAct, maxAct float64
		var terms []term
		for _, t := range c.terms {
			shift += t.coef * lb[t.index]
			if k := col[t.index]; k >= 0 && t.coef != 0 {
				r := t.coef * (ub[t.index] - lb[t.index])
				minAct += math.Min(0, r)
				maxAct += math.Max(0, r)
				terms = append(terms, term{index: k, coef: t.coef})
			}
		}
		lo, hi := c.lb-shift, c.ub-shift
		act := math.Max(math.Abs(minAct), math.Abs(maxAct))
		if math.IsInf(act, 0) {
			act = 0
		}
		eps := feasTol * (1 + math.Abs(shift) + act)
		if maxAct < lo-eps || minAct > hi+eps {
			return relaxation{infeasible: true}
		}
		if !math.IsInf(hi, 1) && maxAct > hi+eps {
			rows = append(rows, lpRow{terms: terms, slack: 1, rhs: hi})
		}
		if !math.IsInf(lo, -1) && minAct < lo-eps {
			rows = append(rows, lpRow{terms: terms, slack: -1, rhs: lo})
		}
	}
	for k, j := range free {
		if math.IsInf(ub[j], 1) {
			continue
		}
		rows = append(rows, lpRow{
			terms: []term{{index: k, coef: 1}},
			slack: 1,
			rhs:   ub[j] - lb[j],
		})
	}

	nFree := len(free)
	cols := nFree + len(rows)
	A := mat.NewDense(len(rows), cols, nil)
	rhs := make([]float64, len(rows))
	for i, row := range rows {
		scale := 1.0
		for _, t := range row.terms {
			scale = math.Max(scale, math.Abs(t.coef))
		}
		for _, t := range row.terms {
			A.Set(i, t.index, t.coef/scale)
		}
		A.Set(i, nFree+i, row.slack/scale)
		rhs[i] = row.rhs / scale
	}

	cost := make([]float64, cols)
	for k, j := range free {
		cost[k] = -sense * model.objective.coefficient(j)
	}

	optF, y, err := lp.Simplex(cost, A, rhs, simplexTol, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return relaxation{infeasible: true}
		}
		// Numerical trouble: fall back to the trivial bound and split the
		// first free variable.
		bound := constant
		for _, j := range free {
			bound += math.Max(0, sense*model.objective.coefficient(j)*(ub[j]-lb[j]))
		}
		return relaxation{bound: bound, branch: free[0]}
	}

	x := append([]float64(nil), lb...)
	branch := -1
	bestFrac := 0.0
	for k, j := range free {
		v := lb[j] + y[k]
		if r := math.Round(v); math.Abs(v-r) <= integralTol {
			v = r
		} else if frac := 0.5 - math.Abs(v-math.Floor(v)-0.5); frac > bestFrac {
			bestFrac, branch = frac, j
		}
		x[j] = math.Min(math.Max(v, lb[j]), ub[j])
	}

	return relaxation{bound: constant - optF, x: x, branch: branch}
}

// simplexRelaxer solves every node from scratch with gonum's simplex.
type simplexRelaxer struct {
	model *Model
}

func (r simplexRelaxer) relax(nd *bbNode) relaxation {
	return relax(r.model, nd.lb, nd.ub)
}

// dualRelaxer solves nodes with the bounded dual simplex. A node that
// carries its parent's tableau only pays for the pivots its new bounds
// need. A tableau is rebuilt from scratch once it has pivoted long enough to
// drift, and gonum's simplex takes over if the dual simplex stalls.
type dualRelaxer struct {
	model   *Model
	boxed   *boxedModel
	maxIter int
	refresh int
}

func newDualRelaxer(model *Model) *dualRelaxer {
	bm := newBoxedModel(model)
	size := bm.n + len(bm.rows)
	return &dualRelaxer{
		model:   model,
		boxed:   bm,
		maxIter: 20*size + 100,
		refresh: 50*size + 1000,
	}
}

func (r *dualRelaxer) relax(nd *bbNode) relaxation {
	tab := nd.warm
	nd.warm = nil

	if tab != nil && tab.pivots < r.refresh {
		for j := 0; j < r.boxed.n; j++ {
			if tab.lo[j] != nd.lb[j] || tab.hi[j] != nd.ub[j] {
				tab.setBounds(j, nd.lb[j], nd.ub[j])
			}
		}
		switch tab.solve(r.maxIter) {
		case lpInfeasible:
			return relaxation{infeasible: true}
		case lpOptimal:
			if r.boxed.consistent(tab.x) {
				return r.result(tab, nd)
			}
		}
	}

	tab = r.boxed.tableau(nd.lb, nd.ub)
	switch tab.solve(r.maxIter) {
	case lpInfeasible:
		return relaxation{infeasible: true}
	case lpOptimal:
		return r.result(tab, nd)
	}
	return relax(r.model, nd.lb, nd.ub)
}

func (r *dualRelaxer) result(tab *tableau, nd *bbNode) relaxation {
	x := make([]float64, r.boxed.n)
	branch := -1
	bestFrac := 0.0
	for j := range x {
		v := math.Min(math.Max(tab.x[j], nd.lb[j]), nd.ub[j])
		if rv := math.Round(v); math.Abs(v-rv) <= integralTol {
			v = rv
		} else if frac := 0.5 - math.Abs(v-math.Floor(v)-0.5); frac > bestFrac {
			bestFrac, branch = frac, j
		}
		x[j] = v
	}
	return relaxation{bound: tab.score(), x: x, branch: branch, tab: tab}
}
