package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/logger"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/utils"
)

// sendServiceError maps service errors onto API responses.
func sendServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		utils.SendValidationError(c, "Invalid request", err.Error())
	case errors.Is(err, services.ErrSlateNotFound):
		utils.SendNotFound(c, "Slate not found")
	case errors.Is(err, services.ErrRunNotFound):
		utils.SendNotFound(c, "Optimization run not found")
	case errors.Is(err, mip.ErrTooManyVariables):
		utils.SendError(c, http.StatusUnprocessableEntity,
			utils.NewAppError(utils.ErrCodeSolverLimit, "Player pool is too large for the configured solver", err.Error()))
	case errors.Is(err, optimizer.ErrSlotUnfilled):
		utils.SendError(c, http.StatusUnprocessableEntity,
			utils.NewAppError(utils.ErrCodeInvalidLineup, "Lineup does not fill the platform slots", err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		utils.SendError(c, http.StatusGatewayTimeout,
			utils.NewAppError(utils.ErrCodeOptimization, "Optimization timed out"))
	default:
		logger.WithRequestContext(c.Request.Method, c.FullPath(), c.ClientIP()).
			WithError(err).Error("Optimization failed")
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeOptimization, "Optimization failed", err.Error()))
	}
}
