package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/utils"
)

type LineupHandler struct {
	lineups *services.LineupService
}

func NewLineupHandler(lineups *services.LineupService) *LineupHandler {
	return &LineupHandler{lineups: lineups}
}

// GetLineups returns a stored run with its lineups in rank order.
func (h *LineupHandler) GetLineups(c *gin.Context) {
	id := c.Param("optimization_id")
	run, err := h.lineups.GetRun(c.Request.Context(), id)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, run, &utils.Meta{
		Total:          int64(len(run.Lineups)),
		OptimizationID: run.ID,
	})
}

// ExportLineups streams a run as the platform's upload CSV.
func (h *LineupHandler) ExportLineups(c *gin.Context) {
	id := c.Param("optimization_id")

	var buf bytes.Buffer
	if err := h.lineups.Export(c.Request.Context(), id, &buf); err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			sendServiceError(c, err)
			return
		}
		_ = c.Error(err)
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeExportFailed, "Failed to export lineups", err.Error()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=lineups-%s.csv", id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
