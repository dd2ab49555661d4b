package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/utils"
)

type SlateHandler struct {
	lineups *services.LineupService
}

func NewSlateHandler(lineups *services.LineupService) *SlateHandler {
	return &SlateHandler{lineups: lineups}
}

type createSlateRequest struct {
	Platform  string             `json:"platform" binding:"required"`
	Name      string             `json:"name" binding:"required"`
	StartTime time.Time          `json:"start_time"`
	Players   []optimizer.Player `json:"players" binding:"required,min=1"`
}

func newSlate(platform, name string, start time.Time, players []optimizer.Player) *models.Slate {
	slate := &models.Slate{
		Platform:  platform,
		Name:      name,
		StartTime: start,
		Players:   make([]models.Player, len(players)),
	}
	for i, p := range players {
		slate.Players[i] = models.PlayerFromOptimizer(0, p)
	}
	return slate
}

// CreateSlate stores a slate posted as JSON.
func (h *SlateHandler) CreateSlate(c *gin.Context) {
	var req createSlateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	slate := newSlate(req.Platform, req.Name, req.StartTime, req.Players)
	if err := h.lineups.CreateSlate(c.Request.Context(), slate); err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendCreated(c, slate)
}

// ImportSlate stores a slate uploaded as a player pool CSV in the "file"
// form field.
func (h *SlateHandler) ImportSlate(c *gin.Context) {
	platform := c.PostForm("platform")
	name := c.DefaultPostForm("name", "Imported slate")
	if platform == "" {
		utils.SendValidationError(c, "Invalid upload", "platform is required")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.SendValidationError(c, "Invalid upload", "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.SendInternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	players, err := services.ReadPlayerPool(file)
	if err != nil {
		utils.SendValidationError(c, "Invalid player pool", err.Error())
		return
	}

	slate := newSlate(platform, name, time.Time{}, players)
	if err := h.lineups.CreateSlate(c.Request.Context(), slate); err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendCreated(c, slate)
}

func (h *SlateHandler) GetSlate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid slate ID", err.Error())
		return
	}

	slate, err := h.lineups.GetSlate(c.Request.Context(), uint(id))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, slate, &utils.Meta{Total: int64(len(slate.Players))})
}
