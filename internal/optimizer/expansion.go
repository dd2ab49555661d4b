package optimizer

import (
	"strings"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

// MultiPositionSeparator splits positions on platforms that let a player
// fill any one of several positions.
const MultiPositionSeparator = "/"

// ExpandedPool is a player pool after multi-position expansion. Each group
// lists the indices of the clones that came from one original player.
type ExpandedPool struct {
	Players []Player
	Groups  [][]int
}

// Expand replaces each "PG/SG" style player with one single-position clone
// per eligible position when the platform allows multi-position players.
// The input slice is never modified.
func Expand(players []Player, rules platform.Rules) ExpandedPool {
	if !rules.MultiPosition {
		return ExpandedPool{Players: append([]Player(nil), players...)}
	}

	pool := ExpandedPool{Players: make([]Player, 0, len(players))}
	for _, p := range players {
		if !strings.Contains(p.Position, MultiPositionSeparator) {
			pool.Players = append(pool.Players, p)
			continue
		}

		positions := splitMultiPosition(p.Position)
		if len(positions) < 2 {
			// "PG/" or "SG/SG": nothing to choose between.
			if len(positions) == 1 {
				p = p.WithPosition(positions[0])
			}
			pool.Players = append(pool.Players, p)
			continue
		}

		group := make([]int, 0, len(positions))
		for _, pos := range positions {
			group = append(group, len(pool.Players))
			pool.Players = append(pool.Players, p.WithPosition(pos))
		}
		pool.Groups = append(pool.Groups, group)
	}
	return pool
}

func splitMultiPosition(position string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(position, MultiPositionSeparator) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
