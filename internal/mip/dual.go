package mip

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	primalTol = 1e-7
	dualTol   = 1e-9
	pivotTol  = 1e-9
	fixTol    = 1e-7
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpStalled
)

// boxedRow is one constraint scaled so its largest coefficient is one.
type boxedRow struct {
	terms []term
	lo    float64
	hi    float64
}

// boxedModel is the LP view of a model whose variables all have finite
// bounds. Costs are minimized, so they carry the negated sense.
type boxedModel struct {
	n    int
	rows []boxedRow
	cost []float64
}

func newBoxedModel(model *Model) *boxedModel {
	bm := &boxedModel{
		n:    model.NumVars(),
		rows: make([]boxedRow, 0, len(model.constraints)),
		cost: make([]float64, model.NumVars()),
	}
	sense := model.sense()
	for _, t := range model.objective.terms {
		bm.cost[t.index] = -sense * t.coef
	}
	for _, c := range model.constraints {
		scale := 0.0
		for _, t := range c.terms {
			scale = math.Max(scale, math.Abs(t.coef))
		}
		if scale == 0 {
			scale = 1
		}
		row := boxedRow{lo: c.lb / scale, hi: c.ub / scale}
		for _, t := range c.terms {
			if t.coef != 0 {
				row.terms = append(row.terms, term{index: t.index, coef: t.coef / scale})
			}
		}
		bm.rows = append(bm.rows, row)
	}
	return bm
}

// consistent reports whether x satisfies every row, allowing for the
// round-off a long run of warm-started pivots can build up.
func (bm *boxedModel) consistent(x []float64) bool {
	for _, r := range bm.rows {
		var activity float64
		for _, t := range r.terms {
			activity += t.coef * x[t.index]
		}
		if activity < r.lo-1e-6 || activity > r.hi+1e-6 {
			return false
		}
	}
	return true
}

// tableau is a dense bounded-variable simplex tableau over the columns
// [x | s]. Row i reads s_i = a_i·x with lo_i <= s_i <= hi_i, and t holds
// B^-1 [A | -I] row by row.
type tableau struct {
	m, n   int
	width  int
	t      []float64
	lo     []float64
	hi     []float64
	cost   []float64
	d      []float64
	x      []float64
	head   []int
	row    []int
	upper  []bool
	pivots int
}

// tableau starts from the all-slack basis. Every structural column rests on
// the bound its cost prefers, so the start is dual feasible and the dual
// simplex needs no phase one.
func (bm *boxedModel) tableau(lb, ub []float64) *tableau {
	m, n := len(bm.rows), bm.n
	w := n + m
	tb := &tableau{
		m:     m,
		n:     n,
		width: w,
		t:     make([]float64, m*w),
		lo:    make([]float64, w),
		hi:    make([]float64, w),
		cost:  make([]float64, w),
		d:     make([]float64, w),
		x:     make([]float64, w),
		head:  make([]int, m),
		row:   make([]int, w),
		upper: make([]bool, w),
	}
	copy(tb.lo, lb)
	copy(tb.hi, ub)
	copy(tb.cost, bm.cost)
	copy(tb.d, bm.cost)

	for j := 0; j < n; j++ {
		tb.row[j] = -1
		if lb[j] < ub[j] && tb.d[j] < 0 {
			tb.x[j], tb.upper[j] = ub[j], true
		} else {
			tb.x[j] = lb[j]
		}
	}
	for i, r := range bm.rows {
		k := n + i
		tb.lo[k], tb.hi[k] = r.lo, r.hi
		tb.head[i], tb.row[k] = k, i
		tb.t[i*w+k] = 1

		var s float64
		for _, t := range r.terms {
			tb.t[i*w+t.index] = -t.coef
			s += t.coef * tb.x[t.index]
		}
		tb.x[k] = s
	}
	return tb
}

func (tb *tableau) clone() *tableau {
	c := *tb
	c.t = append([]float64(nil), tb.t...)
	c.lo = append([]float64(nil), tb.lo...)
	c.hi = append([]float64(nil), tb.hi...)
	c.d = append([]float64(nil), tb.d...)
	c.x = append([]float64(nil), tb.x...)
	c.head = append([]int(nil), tb.head...)
	c.row = append([]int(nil), tb.row...)
	c.upper = append([]bool(nil), tb.upper...)
	return &c
}

// score is the objective in sense-adjusted units, larger is better.
func (tb *tableau) score() float64 {
	var sum float64
	for j := 0; j < tb.n; j++ {
		sum -= tb.cost[j] * tb.x[j]
	}
	return sum
}

// setBounds changes the bounds of column j. A nonbasic column moves to the
// bound that keeps its reduced cost dual feasible. A basic column keeps its
// value and, if now out of bounds, is repaired by the next solve.
func (tb *tableau) setBounds(j int, lo, hi float64) {
	tb.lo[j], tb.hi[j] = lo, hi
	if tb.row[j] >= 0 {
		return
	}
	if lo == hi || tb.d[j] >= 0 {
		tb.move(j, lo, false)
	} else {
		tb.move(j, hi, true)
	}
}

func (tb *tableau) move(j int, value float64, upper bool) {
	if delta := value - tb.x[j]; delta != 0 {
		for i, k := range tb.head {
			if f := tb.t[i*tb.width+j]; f != 0 {
				tb.x[k] -= f * delta
			}
		}
	}
	tb.x[j] = value
	tb.upper[j] = upper
}

// solve runs the dual simplex until every basic column is within bounds.
// After maxIter/4 pivots it switches to smallest-index choices so a
// degenerate cycle cannot repeat.
func (tb *tableau) solve(maxIter int) lpStatus {
	for it := 0; it < maxIter; it++ {
		bland := it >= maxIter/4

		r := tb.leavingRow(bland)
		if r < 0 {
			return lpOptimal
		}
		p := tb.head[r]
		increase := tb.x[p] < tb.lo[p]
		q := tb.enteringColumn(r, increase, bland)
		if q < 0 {
			return lpInfeasible
		}

		target := tb.hi[p]
		if increase {
			target = tb.lo[p]
		}
		tb.pivot(r, q, target, !increase)
		tb.repairDual()
	}
	return lpStalled
}

func (tb *tableau) leavingRow(bland bool) int {
	best, worst := -1, 0.0
	for i, k := range tb.head {
		v := tb.x[k]
		var violation float64
		switch {
		case v < tb.lo[k]-primalTol:
			violation = tb.lo[k] - v
		case v > tb.hi[k]+primalTol:
			violation = v - tb.hi[k]
		default:
			continue
		}
		if bland {
			if best < 0 || k < tb.head[best] {
				best = i
			}
			continue
		}
		if violation > worst {
			best, worst = i, violation
		}
	}
	return best
}

// enteringColumn runs the dual ratio test on row r. increase is true when
// the leaving column sits below its lower bound.
func (tb *tableau) enteringColumn(r int, increase, bland bool) int {
	pivotRow := tb.t[r*tb.width : (r+1)*tb.width]
	q := -1
	var bestRatio, bestAlpha float64
	for j, a := range pivotRow {
		if tb.row[j] >= 0 || tb.lo[j] == tb.hi[j] {
			continue
		}
		if increase {
			a = -a
		}
		if tb.upper[j] {
			if a > -pivotTol {
				continue
			}
		} else if a < pivotTol {
			continue
		}

		alpha := math.Abs(a)
		ratio := math.Abs(tb.d[j]) / alpha
		switch {
		case q < 0 || ratio < bestRatio-dualTol:
			q, bestRatio, bestAlpha = j, ratio, alpha
		case !bland && ratio <= bestRatio+dualTol && alpha > bestAlpha:
			q, bestAlpha = j, alpha
		}
	}
	return q
}

// pivot brings column q into the basis at row r. The leaving column is set
// to target and rests at its upper bound when toUpper is set.
func (tb *tableau) pivot(r, q int, target float64, toUpper bool) {
	w := tb.width
	p := tb.head[r]
	pivotRow := tb.t[r*w : (r+1)*w]
	alpha := pivotRow[q]

	step := (tb.x[p] - target) / alpha
	for i, k := range tb.head {
		if f := tb.t[i*w+q]; f != 0 {
			tb.x[k] -= f * step
		}
	}
	tb.x[q] += step
	tb.x[p] = target

	if theta := tb.d[q] / alpha; theta != 0 {
		floats.AddScaled(tb.d, -theta, pivotRow)
	}
	tb.d[q] = 0

	floats.Scale(1/alpha, pivotRow)
	pivotRow[q] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		ri := tb.t[i*w : (i+1)*w]
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, pivotRow)
			ri[q] = 0
		}
	}

	tb.head[r] = q
	tb.row[q] = r
	tb.row[p] = -1
	tb.upper[q] = false
	tb.upper[p] = toUpper
	tb.pivots++
}

// repairDual flips boxed nonbasic columns whose reduced cost drifted to the
// wrong sign.
func (tb *tableau) repairDual() {
	for j, dj := range tb.d {
		if tb.row[j] >= 0 || tb.lo[j] == tb.hi[j] {
			continue
		}
		switch {
		case !tb.upper[j] && dj < -dualTol && !math.IsInf(tb.hi[j], 1):
			tb.move(j, tb.hi[j], true)
		case tb.upper[j] && dj > dualTol && !math.IsInf(tb.lo[j], -1):
			tb.move(j, tb.lo[j], false)
		}
	}
}

// fixByCost returns node bounds where every nonbasic structural column that
// cannot leave its bound without dropping the relaxation by more than gap is
// fixed there. The input slices are copied before the first change.
func (tb *tableau) fixByCost(lb, ub []float64, gap float64) ([]float64, []float64, int) {
	fixed := 0
	for j := 0; j < tb.n; j++ {
		if tb.row[j] >= 0 || lb[j] == ub[j] {
			continue
		}
		loss := tb.d[j]
		if tb.upper[j] {
			loss = -loss
		}
		loss *= math.Min(ub[j]-lb[j], 1)
		if loss <= gap+fixTol {
			continue
		}
		if fixed == 0 {
			lb = append([]float64(nil), lb...)
			ub = append([]float64(nil), ub...)
		}
		fixed++
		if tb.upper[j] {
			lb[j] = ub[j]
		} else {
			ub[j] = lb[j]
		}
	}
	return lb, ub, fixed
}
