package optimizer

import (
	"context"
	"testing"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineupRequest(rules platform.Rules, players []Player, locked ...string) LineupRequest {
	pool := Expand(players, rules)
	req := LineupRequest{
		Rules:     rules,
		Players:   pool.Players,
		Groups:    pool.Groups,
		Teams:     teamsOf(pool.Players),
		Locked:    make(map[string]bool),
		MaxPoints: NoPointCap,
	}
	for _, id := range locked {
		req.Locked[id] = true
	}
	return req
}

// capLoop replays the sequence the point cap defines: every solve asks for
// the best lineup at least DefaultEpsilon below the one before.
func capLoop(t *testing.T, solver mip.Solver, req LineupRequest, limit int) []float64 {
	t.Helper()
	var totals []float64
	for len(totals) < limit {
		roster, err := BuildLineup(context.Background(), solver, req)
		require.NoError(t, err)
		if roster == nil {
			break
		}
		totals = append(totals, roster.Projected())
		req.MaxPoints = roster.Projected() - DefaultEpsilon
	}
	return totals
}

func frontierLoop(t *testing.T, solver mip.Solver, req LineupRequest, limit int) []*Roster {
	t.Helper()
	f := newLineupFrontier(solver, req)
	maxPoints := NoPointCap
	var rosters []*Roster
	for len(rosters) < limit {
		roster, err := f.next(context.Background(), maxPoints)
		require.NoError(t, err)
		if roster == nil {
			break
		}
		rosters = append(rosters, roster)
		maxPoints = roster.Projected() - DefaultEpsilon
	}
	return rosters
}

func TestFrontierFollowsPointCap(t *testing.T) {
	tests := []struct {
		name string
		req  LineupRequest
	}{
		{"fanduel", lineupRequest(platform.FanDuelRules(), fanDuelPool())},
		{"fanduel locked", lineupRequest(platform.FanDuelRules(), fanDuelPool(), "fd-payton")},
		{"draftkings", lineupRequest(platform.DraftKingsRules(), draftKingsPool())},
		{"draftkings locked", lineupRequest(platform.DraftKingsRules(), draftKingsPool(), "dk-durant", "dk-young")},
		{"yahoo", lineupRequest(platform.YahooRules(), yahooPool())},
		{"random fanduel", lineupRequest(platform.FanDuelRules(), randomSlate(21, 18, 3500, 9000, 100, false))},
		{"random draftkings", lineupRequest(platform.DraftKingsRules(), randomSlate(22, 15, 3000, 8000, 100, true))},
		{"random yahoo", lineupRequest(platform.YahooRules(), randomSlate(23, 16, 10, 40, 1, false))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := capLoop(t, mip.NewEnumerator(0), tt.req, 15)
			require.NotEmpty(t, want)

			for name, solver := range testSolvers() {
				got := frontierLoop(t, solver, tt.req, 15)
				require.Len(t, got, len(want), name)
				for i, roster := range got {
					requireValidRoster(t, tt.req.Rules, roster)
					assert.InDelta(t, want[i], roster.Projected(), 1e-6, "%s lineup %d", name, i)
					for id := range tt.req.Locked {
						assert.True(t, roster.Contains(id), "%s lineup %d lost %s", name, i, id)
					}
				}
			}
		})
	}
}

func TestFrontierSkipsTiedLineups(t *testing.T) {
	players := append(fanDuelCore(), Player{
		ID: "fd-harden-2", Team: "LAC", Position: "PG", Salary: 6500, ProjectedPoints: 40.25,
	})
	req := lineupRequest(platform.FanDuelRules(), players)

	rosters := frontierLoop(t, mip.NewBranchAndBound(0), req, 5)
	require.Len(t, rosters, 2, "the two lineups with Curry tie, only one is kept")
	assert.InDelta(t, 5.25, rosters[0].Projected()-rosters[1].Projected(), 1e-9)
	assert.True(t, rosters[1].Contains("fd-harden"))
	assert.True(t, rosters[1].Contains("fd-harden-2"))
}

type statusSolver struct {
	status mip.Status
}

func (s statusSolver) Solve(context.Context, *mip.Model) (*mip.Solution, error) {
	return &mip.Solution{Status: s.status}, nil
}

func TestFrontierStopsOnUnfinishedSolve(t *testing.T) {
	f := newLineupFrontier(statusSolver{status: mip.NotSolved}, lineupRequest(platform.FanDuelRules(), fanDuelPool()))
	roster, err := f.next(context.Background(), NoPointCap)
	require.NoError(t, err)
	assert.Nil(t, roster)
	assert.True(t, f.incomplete)
	assert.Equal(t, 1, f.solves)
}

func TestFrontierCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newLineupFrontier(mip.NewEnumerator(0), lineupRequest(platform.FanDuelRules(), fanDuelPool()))
	_, err := f.next(ctx, NoPointCap)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.solves)
}
