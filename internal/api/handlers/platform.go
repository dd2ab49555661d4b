package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/utils"
)

type platformInfo struct {
	Name           string                   `json:"name"`
	SalaryCap      int                      `json:"salary_cap"`
	RosterSize     int                      `json:"roster_size"`
	MaxPerTeam     int                      `json:"max_per_team"`
	MinTeams       int                      `json:"min_teams,omitempty"`
	MultiPosition  bool                     `json:"multi_position"`
	PositionLimits []platform.PositionLimit `json:"position_limits"`
	ExportHeader   []string                 `json:"export_header"`
}

// ListPlatforms describes the roster rules of every supported platform.
func ListPlatforms(c *gin.Context) {
	all := platform.All()
	out := make([]platformInfo, 0, len(all))
	for _, r := range all {
		out = append(out, platformInfo{
			Name:           r.Name,
			SalaryCap:      r.SalaryCap,
			RosterSize:     r.RosterSize,
			MaxPerTeam:     r.MaxPerTeam,
			MinTeams:       r.MinTeams,
			MultiPosition:  r.MultiPosition,
			PositionLimits: r.PositionLimits,
			ExportHeader:   r.Header(),
		})
	}
	utils.SendSuccess(c, out)
}
