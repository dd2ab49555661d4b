package optimizer

import (
	"fmt"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

// Player is one entry of a slate's player pool.
type Player struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	Team            string  `json:"team"`
	Opponent        string  `json:"opponent,omitempty"`
	Position        string  `json:"position"`
	Salary          int     `json:"salary"`
	ProjectedPoints float64 `json:"projected_points"`
	IsInjured       bool    `json:"is_injured,omitempty"`
}

// WithPosition returns a copy of p listed at a single position.
func (p Player) WithPosition(position string) Player {
	p.Position = position
	return p
}

// Positions returns the position codes p is eligible for.
func (p Player) Positions() []string {
	return platform.ParsePositions(p.Position)
}

func (p Player) String() string {
	return p.ID
}

// Describe renders the player for logs and console output.
func (p Player) Describe() string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return fmt.Sprintf("%-24s %-6s %-3s $%-6d %6.2f", name, p.Position, p.Team, p.Salary, p.ProjectedPoints)
}
