package mip

import (
	"context"
	"fmt"
	"math"
)

// DefaultMaxVars bounds the free variables Enumerator will accept.
const DefaultMaxVars = 40

// Enumerator solves a model by depth-first enumeration of every integer
// assignment, pruning on constraint activity and on the best objective found.
// It is exact and deterministic but only practical for small pools.
type Enumerator struct {
	MaxVars int
}

func NewEnumerator(maxVars int) *Enumerator {
	if maxVars <= 0 {
		maxVars = DefaultMaxVars
	}
	return &Enumerator{MaxVars: maxVars}
}

type enumState struct {
	ctx      context.Context
	model    *Model
	coefs    [][]float64 // [constraint][var]
	sufMin   [][]float64 // [constraint][var] min activity of vars >= index
	sufMax   [][]float64
	score    []float64 // sense-adjusted objective coefficients
	sufScore []float64

	values   []float64
	activity []float64
	best     []float64
	bestVal  float64
	nodes    int
	err      error
}

func (e *Enumerator) Solve(ctx context.Context, model *Model) (*Solution, error) {
	vars := model.Vars()
	n := len(vars)

	free := 0
	for _, v := range vars {
		if v.lb > v.ub {
			return &Solution{Status: Infeasible}, nil
		}
		if v.lb < v.ub {
			free++
		}
	}
	if free > e.MaxVars {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyVariables, free, e.MaxVars)
	}

	st := &enumState{
		ctx:      ctx,
		model:    model,
		values:   make([]float64, n),
		activity: make([]float64, len(model.constraints)),
		score:    make([]float64, n),
		sufScore: make([]float64, n+1),
		bestVal:  math.Inf(-1),
	}

	sense := model.sense()
	for j := n - 1; j >= 0; j-- {
		st.score[j] = sense * model.objective.coefficient(j)
		st.sufScore[j] = st.sufScore[j+1] + math.Max(st.score[j]*vars[j].lb, st.score[j]*vars[j].ub)
	}

	st.coefs = make([][]float64, len(model.constraints))
	st.sufMin = make([][]float64, len(model.constraints))
	st.sufMax = make([][]float64, len(model.constraints))
	for k, c := range model.constraints {
		row := make([]float64, n)
		for _, t := range c.terms {
			row[t.index] = t.coef
		}
		lo := make([]float64, n+1)
		hi := make([]float64, n+1)
		for j := n - 1; j >= 0; j-- {
			a, b := row[j]*vars[j].lb, row[j]*vars[j].ub
			lo[j] = lo[j+1] + math.Min(a, b)
			hi[j] = hi[j+1] + math.Max(a, b)
		}
		st.coefs[k], st.sufMin[k], st.sufMax[k] = row, lo, hi
	}

	st.search(0, 0)
	if st.err != nil {
		return nil, st.err
	}
	if st.best == nil {
		return &Solution{Status: Infeasible, Nodes: st.nodes}, nil
	}
	return &Solution{
		Status:    Optimal,
		Objective: model.Evaluate(st.best),
		Values:    st.best,
		Nodes:     st.nodes,
	}, nil
}

func (st *enumState) search(j int, score float64) {
	if st.err != nil {
		return
	}
	st.nodes++
	if st.nodes%4096 == 0 {
		if err := st.ctx.Err(); err != nil {
			st.err = err
			return
		}
	}

	for k, c := range st.model.constraints {
		if st.activity[k]+st.sufMin[k][j] > c.ub+feasTol*(1+math.Abs(c.ub)) {
			return
		}
		if st.activity[k]+st.sufMax[k][j] < c.lb-feasTol*(1+math.Abs(c.lb)) {
			return
		}
	}
	if st.best != nil && score+st.sufScore[j] <= st.bestVal+1e-9 {
		return
	}

	if j == len(st.values) {
		st.bestVal = score
		st.best = append([]float64(nil), st.values...)
		return
	}

	v := st.model.vars[j]
	for x := v.ub; x >= v.lb; x-- {
		st.values[j] = x
		for k := range st.activity {
			st.activity[k] += st.coefs[k][j] * x
		}
		st.search(j+1, score+st.score[j]*x)
		for k := range st.activity {
			st.activity[k] -= st.coefs[k][j] * x
		}
	}
	st.values[j] = 0
}
