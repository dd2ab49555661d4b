package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/api/handlers"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/api/middleware"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/websocket"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
)

// Dependencies are the shared services the HTTP layer is built on.
type Dependencies struct {
	DB      *database.DB
	Cache   services.Cache
	Hub     *websocket.Hub
	Lineups *services.LineupService
	Config  *config.Config
	Logger  *logrus.Logger
}

// NewRouter builds the engine with middleware, health, websocket and the
// /api/v1 routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CorsOrigins))

	health := handlers.NewHealthHandler(deps.DB, deps.Cache, deps.Hub)
	router.GET("/health", health.GetHealth)

	// progress stream lives at the root, not under /api/v1
	router.GET("/ws/optimization-progress/:optimization_id", deps.Hub.HandleWebSocket)

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	optimizerHandler := handlers.NewOptimizerHandler(deps.Lineups, deps.Logger)
	slateHandler := handlers.NewSlateHandler(deps.Lineups)
	lineupHandler := handlers.NewLineupHandler(deps.Lineups)

	group.GET("/platforms", handlers.ListPlatforms)

	// Slate endpoints
	group.POST("/slates", slateHandler.CreateSlate)
	group.POST("/slates/import", slateHandler.ImportSlate)
	group.GET("/slates/:id", slateHandler.GetSlate)

	// Optimization endpoints
	group.POST("/optimize",
		middleware.RateLimit(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst),
		optimizerHandler.OptimizeLineups)

	// Lineup endpoints
	group.GET("/lineups/:optimization_id", lineupHandler.GetLineups)
	group.GET("/lineups/:optimization_id/export", lineupHandler.ExportLineups)
}
