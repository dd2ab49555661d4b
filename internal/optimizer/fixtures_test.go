package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSolvers() map[string]mip.Solver {
	return map[string]mip.Solver{
		mip.BackendSimplex:   mip.NewBranchAndBound(0),
		mip.BackendEnumerate: mip.NewEnumerator(0),
	}
}

// fanDuelCore is exactly one FanDuel lineup: two of each guard and forward
// position plus a center, 59800 in salary.
func fanDuelCore() []Player {
	return []Player{
		{ID: "fd-curry", Name: "Stephen Curry", Team: "GSW", Position: "PG", Salary: 7000, ProjectedPoints: 45.5},
		{ID: "fd-harden", Name: "James Harden", Team: "LAC", Position: "PG", Salary: 6500, ProjectedPoints: 40.25},
		{ID: "fd-booker", Name: "Devin Booker", Team: "PHX", Position: "SG", Salary: 6800, ProjectedPoints: 38.0},
		{ID: "fd-mitchell", Name: "Donovan Mitchell", Team: "CLE", Position: "SG", Salary: 6200, ProjectedPoints: 36.0},
		{ID: "fd-tatum", Name: "Jayson Tatum", Team: "BOS", Position: "SF", Salary: 7200, ProjectedPoints: 42.0},
		{ID: "fd-butler", Name: "Jimmy Butler", Team: "MIA", Position: "SF", Salary: 6000, ProjectedPoints: 33.0},
		{ID: "fd-giannis", Name: "Giannis Antetokounmpo", Team: "MIL", Position: "PF", Salary: 7400, ProjectedPoints: 48.0},
		{ID: "fd-siakam", Name: "Pascal Siakam", Team: "IND", Position: "PF", Salary: 5800, ProjectedPoints: 31.0},
		{ID: "fd-jokic", Name: "Nikola Jokic", Team: "DEN", Position: "C", Salary: 6900, ProjectedPoints: 42.0},
	}
}

// fanDuelPool adds a third point guard and a second center, giving six
// feasible lineups with distinct totals.
func fanDuelPool() []Player {
	return append(fanDuelCore(),
		Player{ID: "fd-payton", Name: "Gary Payton II", Team: "GSW", Position: "PG", Salary: 5000, ProjectedPoints: 30.0},
		Player{ID: "fd-adams", Name: "Steven Adams", Team: "HOU", Position: "C", Salary: 5500, ProjectedPoints: 35.5},
	)
}

func draftKingsPool() []Player {
	return []Player{
		{ID: "dk-doncic", Name: "Luka Doncic", Team: "DAL", Position: "PG/SG", Salary: 9000, ProjectedPoints: 50.0},
		{ID: "dk-young", Name: "Trae Young", Team: "ATL", Position: "PG", Salary: 7000, ProjectedPoints: 40.0},
		{ID: "dk-herro", Name: "Tyler Herro", Team: "MIA", Position: "SG", Salary: 6000, ProjectedPoints: 35.0},
		{ID: "dk-durant", Name: "Kevin Durant", Team: "PHX", Position: "SF/PF", Salary: 8000, ProjectedPoints: 45.0},
		{ID: "dk-bridges", Name: "Mikal Bridges", Team: "NYK", Position: "SF", Salary: 5000, ProjectedPoints: 30.0},
		{ID: "dk-randle", Name: "Julius Randle", Team: "MIN", Position: "PF", Salary: 5500, ProjectedPoints: 32.0},
		{ID: "dk-embiid", Name: "Joel Embiid", Team: "PHI", Position: "C", Salary: 6000, ProjectedPoints: 38.0},
		{ID: "dk-lopez", Name: "Brook Lopez", Team: "MIL", Position: "C", Salary: 4000, ProjectedPoints: 25.0},
		{ID: "dk-white", Name: "Derrick White", Team: "BOS", Position: "PG", Salary: 3500, ProjectedPoints: 20.0},
		{ID: "dk-johnson", Name: "Keldon Johnson", Team: "SAS", Position: "SF", Salary: 3000, ProjectedPoints: 18.0},
	}
}

// yahooPool has its best lineup drawn from only two teams. Swapping either
// center for the Bulls center gives the only other feasible lineups.
func yahooPool() []Player {
	return []Player{
		{ID: "y-murray", Team: "DEN", Position: "PG", Salary: 20, ProjectedPoints: 30.0},
		{ID: "y-jokic", Team: "DEN", Position: "C", Salary: 20, ProjectedPoints: 20.0},
		{ID: "y-porter", Team: "DEN", Position: "SF", Salary: 20, ProjectedPoints: 25.0},
		{ID: "y-gordon", Team: "DEN", Position: "PF", Salary: 20, ProjectedPoints: 24.0},
		{ID: "y-brunson", Team: "NYK", Position: "PG", Salary: 20, ProjectedPoints: 29.0},
		{ID: "y-hart", Team: "NYK", Position: "SG", Salary: 20, ProjectedPoints: 22.0},
		{ID: "y-anunoby", Team: "NYK", Position: "SF", Salary: 20, ProjectedPoints: 21.0},
		{ID: "y-robinson", Team: "NYK", Position: "C", Salary: 20, ProjectedPoints: 18.0},
		{ID: "y-vucevic", Team: "CHI", Position: "C", Salary: 20, ProjectedPoints: 15.0},
	}
}

func ids(players []Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

// requireValidRoster checks the roster against every rule in rules.
func requireValidRoster(t *testing.T, rules platform.Rules, roster *Roster) {
	t.Helper()
	require.NotNil(t, roster)
	require.Len(t, roster.Players, rules.RosterSize)
	assert.LessOrEqual(t, roster.Spent(), rules.SalaryCap)

	for _, limit := range rules.PositionLimits {
		count := 0
		for _, p := range roster.Players {
			if platform.Matches(limit.Label, p.Position) {
				count++
			}
		}
		assert.GreaterOrEqual(t, count, limit.Min, "position %s", limit.Label)
		assert.LessOrEqual(t, count, limit.Max, "position %s", limit.Label)
	}

	seen := make(map[string]bool)
	perTeam := make(map[string]int)
	for _, p := range roster.Players {
		assert.False(t, seen[p.ID], "player %s selected twice", p.ID)
		seen[p.ID] = true
		perTeam[p.Team]++
	}
	if rules.MaxPerTeam > 0 {
		for team, n := range perTeam {
			assert.LessOrEqual(t, n, rules.MaxPerTeam, "team %s", team)
		}
	}
}

var (
	slatePositions = []string{"PG", "SG", "SF", "PF", "C"}
	dualPositions  = []string{"PG/SG", "SG/SF", "SF/PF", "PF/C"}
)

// randomSlate builds a seeded pool of n players spread over one team per
// twelve players. Salaries are drawn in steps between minSalary and
// maxSalary and projections follow salary with noise. With dual set, every
// third player is listed at two positions.
func randomSlate(seed int64, n, minSalary, maxSalary, step int, dual bool) []Player {
	rng := rand.New(rand.NewSource(seed))
	teams := n / 12
	if teams < 3 {
		teams = 3
	}

	players := make([]Player, n)
	for i := range players {
		salary := minSalary + step*rng.Intn((maxSalary-minSalary)/step+1)
		value := float64(salary-minSalary) / float64(maxSalary-minSalary)
		projected := 12 + 38*value + 16*rng.Float64() - 8

		position := slatePositions[i%len(slatePositions)]
		if dual && i%3 == 0 {
			position = dualPositions[rng.Intn(len(dualPositions))]
		}
		players[i] = Player{
			ID:              fmt.Sprintf("p%03d", i),
			Team:            fmt.Sprintf("T%02d", i%teams),
			Position:        position,
			Salary:          salary,
			ProjectedPoints: math.Round(projected*100) / 100,
		}
	}
	return players
}
