package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/websocket"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	cache services.Cache
	hub   *websocket.Hub
}

func NewHealthHandler(db *database.DB, cache services.Cache, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
		hub:   hub,
	}
}

// GetHealth reports database reachability and the cache circuit state.
// A degraded cache still answers 200 since searches run without it.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"service": "nba-lineup-optimizer",
	}

	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["database"] = err.Error()
	} else {
		body["database"] = "ok"
	}

	switch cache := h.cache.(type) {
	case *services.CacheService:
		state := cache.State()
		body["cache"] = state.String()
		if state != gobreaker.StateClosed && status == http.StatusOK {
			body["status"] = "degraded"
		}
	case *services.MemoryCache:
		body["cache"] = "memory"
	}

	if h.hub != nil {
		body["websocket_clients"] = h.hub.GetConnectionCount()
	}

	c.JSON(status, body)
}
