package optimizer

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
)

// subspace is a slice of the lineup space: every lineup that holds the
// included players and none of the excluded ones. bound is the subspace's
// best projection once roster is solved, and its parent's before that.
type subspace struct {
	include []string
	exclude []string
	roster  *Roster
	bound   float64
}

type subspaceQueue []*subspace

func (q subspaceQueue) Len() int { return len(q) }

func (q subspaceQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound > q[j].bound
	}
	return q[i].roster != nil && q[j].roster == nil
}

func (q subspaceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *subspaceQueue) Push(x interface{}) { *q = append(*q, x.(*subspace)) }

func (q *subspaceQueue) Pop() interface{} {
	old := *q
	s := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return s
}

// lineupFrontier hands out lineups in descending projected points while
// solving only uncapped models. Each lineup it hands out splits what is left
// of its subspace into disjoint children: child k keeps the lineup's first
// k-1 free players and drops the k-th. A child is queued on its parent's
// bound and solved when it reaches the top.
type lineupFrontier struct {
	solver mip.Solver
	req    LineupRequest
	queue  subspaceQueue
	solves int
	// incomplete is set when a solve stopped without proving its answer.
	incomplete bool
}

func newLineupFrontier(solver mip.Solver, req LineupRequest) *lineupFrontier {
	f := &lineupFrontier{solver: solver, req: req}
	heap.Push(&f.queue, &subspace{bound: math.Inf(1)})
	return f
}

// next returns the best remaining lineup projecting at most maxPoints, or nil
// once no such lineup is left. Lineups above maxPoints are passed over, so
// maxPoints must never rise between calls.
func (f *lineupFrontier) next(ctx context.Context, maxPoints float64) (*Roster, error) {
	for f.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := heap.Pop(&f.queue).(*subspace)
		if top.roster == nil {
			roster, err := f.solve(ctx, top)
			if err != nil {
				heap.Push(&f.queue, top)
				return nil, err
			}
			if f.incomplete {
				return nil, nil
			}
			if roster != nil {
				top.roster, top.bound = roster, roster.Projected()
				heap.Push(&f.queue, top)
			}
			continue
		}

		f.split(top)
		if top.bound > maxPoints {
			continue
		}
		return top.roster, nil
	}
	return nil, nil
}

func (f *lineupFrontier) solve(ctx context.Context, s *subspace) (*Roster, error) {
	req := f.req
	req.MaxPoints = NoPointCap
	if len(s.include) > 0 {
		req.Locked = make(map[string]bool, len(f.req.Locked)+len(s.include))
		for id := range f.req.Locked {
			req.Locked[id] = true
		}
		for _, id := range s.include {
			req.Locked[id] = true
		}
	}
	if len(s.exclude) > 0 {
		req.Excluded = make(map[string]bool, len(s.exclude))
		for _, id := range s.exclude {
			req.Excluded[id] = true
		}
	}

	model, vars := BuildModel(req)
	f.solves++
	solution, err := f.solver.Solve(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to solve %s: %w", model.Name(), err)
	}
	switch solution.Status {
	case mip.Optimal:
		return rosterFrom(req.Players, vars, solution), nil
	case mip.NotSolved:
		f.incomplete = true
	}
	return nil, nil
}

func (f *lineupFrontier) split(s *subspace) {
	kept := make(map[string]bool, len(f.req.Locked)+len(s.include))
	for id := range f.req.Locked {
		kept[id] = true
	}
	for _, id := range s.include {
		kept[id] = true
	}

	include := append([]string(nil), s.include...)
	for _, p := range s.roster.Players {
		if kept[p.ID] {
			continue
		}
		heap.Push(&f.queue, &subspace{
			include: append([]string(nil), include...),
			exclude: append(append([]string(nil), s.exclude...), p.ID),
			bound:   s.bound,
		})
		include = append(include, p.ID)
	}
}
