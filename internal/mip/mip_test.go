package mip

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solvers() map[string]Solver {
	return map[string]Solver{
		BackendSimplex:   NewBranchAndBound(0),
		BackendEnumerate: NewEnumerator(0),
	}
}

// knapsack: maximize 10a + 6b + 4c subject to 5a + 4b + 3c <= 8.
func knapsack() (*Model, []*Var) {
	m := NewModel("knapsack")
	a := m.IntVar(0, 1, "a")
	b := m.IntVar(0, 1, "b")
	c := m.IntVar(0, 1, "c")

	obj := m.Objective()
	obj.SetCoefficient(a, 10)
	obj.SetCoefficient(b, 6)
	obj.SetCoefficient(c, 4)
	obj.SetMaximization()

	weight := m.Constraint(0, 8, "weight")
	weight.SetCoefficient(a, 5)
	weight.SetCoefficient(b, 4)
	weight.SetCoefficient(c, 3)
	return m, []*Var{a, b, c}
}

func TestSolveKnapsack(t *testing.T) {
	for name, solver := range solvers() {
		t.Run(name, func(t *testing.T) {
			m, vars := knapsack()
			sol, err := solver.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, Optimal, sol.Status)
			assert.InDelta(t, 14.0, sol.Objective, 1e-6)
			assert.InDelta(t, 1.0, sol.Value(vars[0]), 1e-6)
			assert.InDelta(t, 0.0, sol.Value(vars[1]), 1e-6)
			assert.InDelta(t, 1.0, sol.Value(vars[2]), 1e-6)
		})
	}
}

func TestSolveInfeasible(t *testing.T) {
	for name, solver := range solvers() {
		t.Run(name, func(t *testing.T) {
			m := NewModel("infeasible")
			x := m.IntVar(0, 1, "x")
			y := m.IntVar(0, 1, "y")
			m.Objective().SetCoefficient(x, 1)
			m.Objective().SetMaximization()
			c := m.Constraint(3, Infinity, "at_least_three")
			c.SetCoefficient(x, 1)
			c.SetCoefficient(y, 1)

			sol, err := solver.Solve(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, Infeasible, sol.Status)
		})
	}
}

func TestSolveEqualityAndFixedVariable(t *testing.T) {
	for name, solver := range solvers() {
		t.Run(name, func(t *testing.T) {
			m := NewModel("pick_two")
			x1 := m.IntVar(0, 1, "x1")
			x2 := m.IntVar(1, 1, "x2")
			x3 := m.IntVar(0, 1, "x3")
			obj := m.Objective()
			obj.SetCoefficient(x1, 3)
			obj.SetCoefficient(x2, 2)
			obj.SetCoefficient(x3, 5)
			obj.SetMaximization()

			size := m.Constraint(2, 2, "size")
			for _, v := range []*Var{x1, x2, x3} {
				size.SetCoefficient(v, 1)
			}

			sol, err := solver.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, Optimal, sol.Status)
			assert.InDelta(t, 7.0, sol.Objective, 1e-6)
			assert.InDelta(t, 0.0, sol.Value(x1), 1e-6)
			assert.InDelta(t, 1.0, sol.Value(x2), 1e-6)
			assert.InDelta(t, 1.0, sol.Value(x3), 1e-6)
		})
	}
}

func TestSolveMinimization(t *testing.T) {
	for name, solver := range solvers() {
		t.Run(name, func(t *testing.T) {
			m := NewModel("cover")
			x := m.IntVar(0, 1, "x")
			y := m.IntVar(0, 1, "y")
			m.Objective().SetCoefficient(x, 2)
			m.Objective().SetCoefficient(y, 3)
			c := m.Constraint(1, Infinity, "cover")
			c.SetCoefficient(x, 1)
			c.SetCoefficient(y, 1)

			sol, err := solver.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, Optimal, sol.Status)
			assert.InDelta(t, 2.0, sol.Objective, 1e-6)
		})
	}
}

// randomModel is a 0/1 program with three packing rows, a covering row and,
// when sized is set, an exact cardinality row.
func randomModel(rng *rand.Rand, n int, sized bool) *Model {
	m := NewModel("random")
	vars := make([]*Var, n)
	for j := range vars {
		vars[j] = m.IntVar(0, 1, "x")
		m.Objective().SetCoefficient(vars[j], float64(rng.Intn(40)+1)+rng.Float64())
	}
	m.Objective().SetMaximization()

	for k := 0; k < 3; k++ {
		c := m.Constraint(0, float64(rng.Intn(3*n)+5), "cap")
		for _, v := range vars {
			c.SetCoefficient(v, float64(rng.Intn(10)))
		}
	}
	cover := m.Constraint(float64(rng.Intn(3)), Infinity, "cover")
	for _, v := range vars[:n/2] {
		cover.SetCoefficient(v, 1)
	}
	if sized {
		size := m.Constraint(float64(n/3), float64(n/3), "size")
		for _, v := range vars {
			size.SetCoefficient(v, 1)
		}
	}
	return m
}

func TestBranchAndBoundAgreesWithEnumerator(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bb := NewBranchAndBound(0)
	enum := NewEnumerator(0)

	for i := 0; i < 60; i++ {
		n := 10
		if i >= 25 {
			n = 20
		}
		m := randomModel(rng, n, i%2 == 0)

		want, err := enum.Solve(context.Background(), m)
		require.NoError(t, err)
		got, err := bb.Solve(context.Background(), m)
		require.NoError(t, err)

		require.Equal(t, want.Status, got.Status, "model %d", i)
		if want.Status == Optimal {
			assert.InDelta(t, want.Objective, got.Objective, 1e-6, "model %d", i)
			assert.True(t, m.Feasible(got.Values), "model %d", i)
		}
	}
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	m, _ := knapsack()
	sol, err := NewBranchAndBound(1).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, NotSolved, sol.Status)
}

func TestBranchAndBoundCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, _ := knapsack()
	_, err := NewBranchAndBound(0).Solve(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnumeratorRejectsLargeModels(t *testing.T) {
	m := NewModel("wide")
	for i := 0; i < 5; i++ {
		m.IntVar(0, 1, "x")
	}
	_, err := NewEnumerator(4).Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrTooManyVariables)
}

func TestFeasibleAndEvaluate(t *testing.T) {
	m, _ := knapsack()
	assert.True(t, m.Feasible([]float64{1, 0, 1}))
	assert.False(t, m.Feasible([]float64{1, 1, 0}), "over weight")
	assert.False(t, m.Feasible([]float64{0.5, 0, 0}), "fractional")
	assert.False(t, m.Feasible([]float64{1, 0}), "wrong length")
	assert.InDelta(t, 14.0, m.Evaluate([]float64{1, 0, 1}), 1e-9)
}

func TestCoefficientOverwrite(t *testing.T) {
	m := NewModel("overwrite")
	x := m.IntVar(0, 1, "x")
	c := m.Constraint(0, 1, "row")
	c.SetCoefficient(x, 2)
	c.SetCoefficient(x, 1)
	assert.Equal(t, 1.0, c.Coefficient(x))
	assert.Len(t, c.terms, 1)
}

func TestNewSolver(t *testing.T) {
	s, err := NewSolver("simplex", Options{})
	require.NoError(t, err)
	assert.IsType(t, &BranchAndBound{}, s)

	s, err = NewSolver("ENUMERATE", Options{MaxVars: 12})
	require.NoError(t, err)
	require.IsType(t, &Enumerator{}, s)
	assert.Equal(t, 12, s.(*Enumerator).MaxVars)

	_, err = NewSolver("cbc", Options{})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "optimal", Optimal.String())
	assert.Equal(t, "infeasible", Infeasible.String())
	assert.Equal(t, "not_solved", NotSolved.String())
}

func rootBounds(m *Model) ([]float64, []float64) {
	lb := make([]float64, m.NumVars())
	ub := make([]float64, m.NumVars())
	for j, v := range m.Vars() {
		lb[j], ub[j] = v.Bounds()
	}
	return lb, ub
}

func TestTableauSolvesKnapsackRelaxation(t *testing.T) {
	m, _ := knapsack()
	lb, ub := rootBounds(m)

	tab := newBoxedModel(m).tableau(lb, ub)
	require.Equal(t, lpOptimal, tab.solve(100))
	assert.InDelta(t, 14.5, tab.score(), 1e-9)
	assert.InDelta(t, 1.0, tab.x[0], 1e-9)
	assert.InDelta(t, 0.75, tab.x[1], 1e-9)
	assert.InDelta(t, 0.0, tab.x[2], 1e-9)
}

func TestTableauDetectsInfeasibleRows(t *testing.T) {
	m := NewModel("infeasible")
	x := m.IntVar(0, 1, "x")
	y := m.IntVar(0, 1, "y")
	c := m.Constraint(3, Infinity, "at_least_three")
	c.SetCoefficient(x, 1)
	c.SetCoefficient(y, 1)

	lb, ub := rootBounds(m)
	assert.Equal(t, lpInfeasible, newBoxedModel(m).tableau(lb, ub).solve(100))
}

func TestTableauWarmStartMatchesColdSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	checked := 0
	for i := 0; i < 30; i++ {
		m := randomModel(rng, 14, i%2 == 0)
		bm := newBoxedModel(m)
		lb, ub := rootBounds(m)

		tab := bm.tableau(lb, ub)
		if tab.solve(1000) != lpOptimal {
			continue
		}
		for k := 0; k < 4; k++ {
			j := rng.Intn(m.NumVars())
			v := float64(rng.Intn(2))
			lb[j], ub[j] = v, v

			warm := tab.clone()
			warm.setBounds(j, v, v)
			warmStatus := warm.solve(1000)

			cold := bm.tableau(lb, ub)
			coldStatus := cold.solve(1000)

			require.Equal(t, coldStatus, warmStatus, "model %d step %d", i, k)
			if coldStatus != lpOptimal {
				break
			}
			assert.InDelta(t, cold.score(), warm.score(), 1e-6, "model %d step %d", i, k)
			assert.True(t, bm.consistent(warm.x), "model %d step %d", i, k)
			tab = warm
			checked++
		}
	}
	assert.Greater(t, checked, 20)
}

func TestTableauFixByCost(t *testing.T) {
	m, _ := knapsack()
	lb, ub := rootBounds(m)
	tab := newBoxedModel(m).tableau(lb, ub)
	require.Equal(t, lpOptimal, tab.solve(100))

	sameLB, sameUB, fixed := tab.fixByCost(lb, ub, math.Inf(1))
	assert.Zero(t, fixed)
	assert.Equal(t, lb, sameLB)
	assert.Equal(t, ub, sameUB)

	newLB, newUB, fixed := tab.fixByCost(lb, ub, 0)
	assert.Positive(t, fixed)
	assert.Equal(t, []float64{0, 0, 0}, lb, "input bounds are not modified")
	for j := range newLB {
		if newLB[j] == newUB[j] {
			assert.Less(t, tab.row[j], 0, "only nonbasic columns are fixed")
			assert.InDelta(t, tab.x[j], newLB[j], 1e-9)
		}
	}
	// The fractional column stays free.
	assert.Less(t, newLB[1], newUB[1])
}

func TestBranchAndBoundUnboundedVariable(t *testing.T) {
	m := NewModel("unbounded")
	x := m.IntVar(0, Infinity, "x")
	y := m.IntVar(0, 10, "y")
	m.Objective().SetCoefficient(x, 1)
	m.Objective().SetCoefficient(y, 1)
	m.Objective().SetMaximization()
	c := m.Constraint(-Infinity, 12, "weight")
	c.SetCoefficient(x, 2)
	c.SetCoefficient(y, 3)

	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, Optimal, sol.Status)
	assert.InDelta(t, 6.0, sol.Objective, 1e-6)
	assert.InDelta(t, 6.0, sol.Value(x), 1e-6)
}

func TestBranchAndBoundRejectsUnboundedBelow(t *testing.T) {
	m := NewModel("free")
	m.IntVar(math.Inf(-1), 3, "x")
	_, err := NewBranchAndBound(0).Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrUnboundedVariable)
}
