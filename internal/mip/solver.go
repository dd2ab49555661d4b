package mip

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status is the outcome of a solve.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	default:
		return "not_solved"
	}
}

// Solution holds the result of a solve. Values is only meaningful when
// Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
}

// Value returns the solved value of v, or zero when there is none.
func (s *Solution) Value(v *Var) float64 {
	if s == nil || v.index >= len(s.Values) {
		return 0
	}
	return s.Values[v.index]
}

// Solver solves a Model. Infeasibility is reported through Status, not as an error.
type Solver interface {
	Solve(ctx context.Context, model *Model) (*Solution, error)
}

// Backend names accepted by NewSolver.
const (
	BackendSimplex   = "simplex"
	BackendEnumerate = "enumerate"
)

var (
	ErrUnknownBackend    = errors.New("unknown solver backend")
	ErrTooManyVariables  = errors.New("too many free variables to enumerate")
	ErrUnboundedVariable = errors.New("variable has no finite lower bound")
)

// Options tune the solver backends. Zero values select defaults.
type Options struct {
	MaxNodes int
	MaxVars  int
}

// NewSolver returns the backend registered under name.
func NewSolver(name string, opts Options) (Solver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendSimplex:
		return NewBranchAndBound(opts.MaxNodes), nil
	case BackendEnumerate:
		return NewEnumerator(opts.MaxVars), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
