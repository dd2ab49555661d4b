package optimizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

// Roster is one generated lineup. Players keep the order the model
// selected them in.
type Roster struct {
	Players []Player `json:"players"`
}

// Spent is the total salary of the roster.
func (r *Roster) Spent() int {
	total := 0
	for _, p := range r.Players {
		total += p.Salary
	}
	return total
}

// Projected is the total projected points of the roster.
func (r *Roster) Projected() float64 {
	total := 0.0
	for _, p := range r.Players {
		total += p.ProjectedPoints
	}
	return total
}

// TeamCount is the number of distinct teams on the roster.
func (r *Roster) TeamCount() int {
	teams := make(map[string]bool)
	for _, p := range r.Players {
		teams[p.Team] = true
	}
	return len(teams)
}

// Contains reports whether the roster holds the player with id.
func (r *Roster) Contains(id string) bool {
	for _, p := range r.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// SortedPlayers returns the players ordered PG, SG, SF, PF, C with unknown
// positions last. Ties keep roster order.
func (r *Roster) SortedPlayers() []Player {
	sorted := append([]Player(nil), r.Players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return platform.Rank(sorted[i].Position) < platform.Rank(sorted[j].Position)
	})
	return sorted
}

func (r *Roster) String() string {
	var b strings.Builder
	for i, p := range r.SortedPlayers() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Describe())
	}
	fmt.Fprintf(&b, "\n\nProjected Score: %s\tCost: $%d",
		strconv.FormatFloat(r.Projected(), 'f', -1, 64), r.Spent())
	return b.String()
}
