package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/utils"
)

type OptimizerHandler struct {
	lineups *services.LineupService
	logger  *logrus.Logger
}

func NewOptimizerHandler(lineups *services.LineupService, logger *logrus.Logger) *OptimizerHandler {
	return &OptimizerHandler{
		lineups: lineups,
		logger:  logger,
	}
}

type optimizeRequest struct {
	SlateID         *uint              `json:"slate_id"`
	Platform        string             `json:"platform"`
	Players         []optimizer.Player `json:"players"`
	NumLineups      int                `json:"num_lineups" binding:"required,min=1"`
	LockedPlayers   []string           `json:"locked_players"`
	ExcludedPlayers []string           `json:"excluded_players"`
	IncludeInjured  bool               `json:"include_injured"`
	OptimizationID  string             `json:"optimization_id"`
}

// OptimizeLineups generates lineups for a stored slate or an inline pool.
func (h *OptimizerHandler) OptimizeLineups(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.SlateID == nil && len(req.Players) == 0 {
		utils.SendValidationError(c, "Invalid request body", "slate_id or players is required")
		return
	}
	if req.SlateID == nil && req.Platform == "" {
		utils.SendValidationError(c, "Invalid request body", "platform is required with an inline player pool")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"platform":    req.Platform,
		"num_lineups": req.NumLineups,
		"players":     len(req.Players),
		"locked":      len(req.LockedPlayers),
		"excluded":    len(req.ExcludedPlayers),
	}).Info("Optimization requested")

	result, err := h.lineups.Generate(c.Request.Context(), services.GenerateRequest{
		SlateID:        req.SlateID,
		Platform:       req.Platform,
		Players:        req.Players,
		NumLineups:     req.NumLineups,
		Locked:         req.LockedPlayers,
		Excluded:       req.ExcludedPlayers,
		IncludeInjured: req.IncludeInjured,
		OptimizationID: req.OptimizationID,
	})
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, result, &utils.Meta{
		Total:          int64(len(result.Lineups)),
		OptimizationID: result.OptimizationID,
		Cached:         result.Cached,
	})
}
