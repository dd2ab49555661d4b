package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/api"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/websocket"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.IsDevelopment() {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cache := connectCache(ctx, cfg, log)

	solver, err := mip.NewSolver(cfg.SolverBackend, mip.Options{
		MaxNodes: cfg.SolverMaxNodes,
		MaxVars:  cfg.SolverMaxVars,
	})
	if err != nil {
		log.Fatalf("Failed to create solver: %v", err)
	}

	if cfg.IsProduction() {
		for _, origin := range cfg.CorsOrigins {
			if origin == "*" {
				log.Warn("CORS_ORIGINS allows any origin in production")
			}
		}
	}

	hub := websocket.NewHub(log, cfg.CorsOrigins)
	go hub.Run(ctx)

	lineupService := services.NewLineupService(db, cache, cfg, solver, hub, log)

	retention := services.NewRetentionService(db, log, cfg.RetentionSchedule, cfg.RetentionDays)
	if err := retention.Start(); err != nil {
		log.Errorf("Failed to start lineup retention: %v", err)
	}
	defer retention.Stop()

	router := api.NewRouter(api.Dependencies{
		DB:      db,
		Cache:   cache,
		Hub:     hub,
		Lineups: lineupService,
		Config:  cfg,
		Logger:  log,
	})

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	// write timeout covers the optimization deadline
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OptimizationDeadline() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithService("nba-lineup-optimizer").WithFields(logrus.Fields{
			"port":   cfg.Port,
			"solver": cfg.SolverBackend,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	stop()

	log.Info("Server exited")
}

// connectCache returns a redis cache, or an in-process one when redis is
// not configured or unreachable.
func connectCache(ctx context.Context, cfg *config.Config, log *logrus.Logger) services.Cache {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, using in-memory cache")
		return services.NewMemoryCache()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Invalid REDIS_URL, using in-memory cache")
		return services.NewMemoryCache()
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, using in-memory cache")
		client.Close()
		return services.NewMemoryCache()
	}

	log.Info("Connected to Redis")
	return services.NewCacheService(client, log)
}
