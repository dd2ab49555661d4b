package optimizer

import (
	"context"
	"fmt"
	"sort"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

// NoPointCap is the starting upper bound on projected points, far above any
// realistic lineup total.
const NoPointCap = 10000.0

// LineupRequest is one solve of the lineup model.
type LineupRequest struct {
	Rules   platform.Rules
	Players []Player
	// Groups are clone index groups from Expand.
	Groups [][]int
	// Teams defaults to every team in Players.
	Teams []string
	// Locked holds player IDs that must appear in the lineup.
	Locked map[string]bool
	// Excluded holds player IDs that must not appear. It wins over Locked.
	Excluded  map[string]bool
	MaxPoints float64
}

// BuildModel constructs the integer program for req and returns it with one
// selection variable per player, in pool order.
func BuildModel(req LineupRequest) (*mip.Model, []*mip.Var) {
	rules := req.Rules
	model := mip.NewModel(fmt.Sprintf("%s lineup", rules.Name))

	grouped := make(map[int]bool)
	for _, group := range req.Groups {
		for _, idx := range group {
			grouped[idx] = true
		}
	}

	vars := make([]*mip.Var, len(req.Players))
	for i, p := range req.Players {
		// Multi-position clones are locked through their group constraint.
		switch {
		case req.Excluded[p.ID]:
			vars[i] = model.IntVar(0, 0, p.ID)
		case req.Locked[p.ID] && !(rules.MultiPosition && grouped[i]):
			vars[i] = model.IntVar(1, 1, p.ID)
		default:
			vars[i] = model.IntVar(0, 1, p.ID)
		}
	}

	objective := model.Objective()
	for i, p := range req.Players {
		objective.SetCoefficient(vars[i], p.ProjectedPoints)
	}
	objective.SetMaximization()

	salary := model.Constraint(0, float64(rules.SalaryCap), "salary_cap")
	for i, p := range req.Players {
		salary.SetCoefficient(vars[i], float64(p.Salary))
	}

	points := model.Constraint(0, req.MaxPoints, "point_cap")
	for i, p := range req.Players {
		points.SetCoefficient(vars[i], p.ProjectedPoints)
	}

	for _, limit := range rules.PositionLimits {
		c := model.Constraint(float64(limit.Min), float64(limit.Max), "position_"+limit.Label)
		for i, p := range req.Players {
			if platform.Matches(limit.Label, p.Position) {
				c.SetCoefficient(vars[i], 1)
			}
		}
	}

	if rules.MaxPerTeam > 0 {
		teams := req.Teams
		if teams == nil {
			teams = teamsOf(req.Players)
		}
		for _, team := range teams {
			c := model.Constraint(0, float64(rules.MaxPerTeam), "team_"+team)
			for i, p := range req.Players {
				if p.Team == team {
					c.SetCoefficient(vars[i], 1)
				}
			}
		}
	}

	if rules.MultiPosition {
		for n, group := range req.Groups {
			lb := 0.0
			for _, idx := range group {
				if req.Locked[req.Players[idx].ID] {
					lb = 1
					break
				}
			}
			c := model.Constraint(lb, 1, fmt.Sprintf("multi_position_%d", n))
			for _, idx := range group {
				c.SetCoefficient(vars[idx], 1)
			}
		}
	}

	size := model.Constraint(float64(rules.RosterSize), float64(rules.RosterSize), "roster_size")
	for i := range req.Players {
		size.SetCoefficient(vars[i], 1)
	}

	return model, vars
}

// BuildLineup solves one lineup model. It returns a nil roster when the
// solver finds no optimal lineup.
func BuildLineup(ctx context.Context, solver mip.Solver, req LineupRequest) (*Roster, error) {
	model, vars := BuildModel(req)

	solution, err := solver.Solve(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("failed to solve %s: %w", model.Name(), err)
	}
	if solution.Status != mip.Optimal {
		return nil, nil
	}
	return rosterFrom(req.Players, vars, solution), nil
}

func rosterFrom(players []Player, vars []*mip.Var, solution *mip.Solution) *Roster {
	roster := &Roster{}
	for i, v := range vars {
		if solution.Value(v) > 0.5 {
			roster.Players = append(roster.Players, players[i])
		}
	}
	return roster
}

func teamsOf(players []Player) []string {
	seen := make(map[string]bool)
	var teams []string
	for _, p := range players {
		if !seen[p.Team] {
			seen[p.Team] = true
			teams = append(teams, p.Team)
		}
	}
	sort.Strings(teams)
	return teams
}
