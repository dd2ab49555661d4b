package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrSlateNotFound  = errors.New("slate not found")
	ErrRunNotFound    = errors.New("optimization run not found")
)

// ProgressNotifier receives search progress for one optimization run.
type ProgressNotifier interface {
	BroadcastToRun(optimizationID string, messageType string, payload interface{})
}

type GenerateRequest struct {
	SlateID        *uint              `json:"slate_id,omitempty"`
	Platform       string             `json:"platform"`
	Players        []optimizer.Player `json:"players,omitempty"`
	NumLineups     int                `json:"num_lineups"`
	Locked         []string           `json:"locked_players,omitempty"`
	Excluded       []string           `json:"excluded_players,omitempty"`
	IncludeInjured bool               `json:"include_injured,omitempty"`
	// OptimizationID lets a client subscribe to progress before the run starts.
	OptimizationID string `json:"optimization_id,omitempty"`
}

type GenerateResult struct {
	OptimizationID   string          `json:"optimization_id"`
	Platform         string          `json:"platform"`
	Lineups          []models.Lineup `json:"lineups"`
	Attempts         int             `json:"attempts"`
	Rejected         int             `json:"rejected"`
	PoolSize         int             `json:"pool_size"`
	OptimizationTime int64           `json:"optimization_time_ms"`
	Cached           bool            `json:"cached"`
	Truncated        bool            `json:"truncated,omitempty"`
}

// LineupService runs lineup searches and stores their results.
type LineupService struct {
	db       *database.DB
	cache    Cache
	cfg      *config.Config
	solver   mip.Solver
	notifier ProgressNotifier
	logger   *logrus.Logger
}

func NewLineupService(db *database.DB, cache Cache, cfg *config.Config, solver mip.Solver, notifier ProgressNotifier, logger *logrus.Logger) *LineupService {
	return &LineupService{
		db:       db,
		cache:    cache,
		cfg:      cfg,
		solver:   solver,
		notifier: notifier,
		logger:   logger,
	}
}

// Generate validates req, resolves its player pool and runs the search.
// Identical requests are answered from the cache.
func (s *LineupService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.NumLineups < 1 || req.NumLineups > s.cfg.MaxLineups {
		return nil, fmt.Errorf("%w: num_lineups must be between 1 and %d", ErrInvalidRequest, s.cfg.MaxLineups)
	}

	platformName := req.Platform
	players := req.Players
	if req.SlateID != nil {
		slate, err := s.GetSlate(ctx, *req.SlateID)
		if err != nil {
			return nil, err
		}
		if platformName == "" {
			platformName = slate.Platform
		}
		players = slate.OptimizerPlayers()
	}

	rules, err := platform.Lookup(platformName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: player pool is empty", ErrInvalidRequest)
	}

	fingerprint, err := Fingerprint(players, req.NumLineups, req.Locked, req.Excluded)
	if err != nil {
		return nil, err
	}
	if req.IncludeInjured {
		fingerprint += ":injured"
	}
	cacheKey := OptimizationCacheKey(rules.Name, fingerprint)

	optimizationID := req.OptimizationID
	if _, err := uuid.Parse(optimizationID); err != nil {
		optimizationID = ""
	}

	var cached GenerateResult
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		s.logger.WithFields(logrus.Fields{
			"optimization_id": cached.OptimizationID,
			"requested_id":    optimizationID,
		}).Info("Serving lineups from cache")
		cached.Cached = true
		// Clients subscribed under their own id still get a done message.
		if optimizationID != "" && s.notifier != nil {
			s.notifier.BroadcastToRun(optimizationID, "optimization_progress", optimizer.Progress{
				Attempt:  cached.Attempts,
				Accepted: len(cached.Lineups),
				Target:   req.NumLineups,
				Done:     true,
			})
		}
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.WithError(err).Warn("Cache lookup failed")
	}

	if optimizationID == "" {
		optimizationID = uuid.NewString()
	}
	log := s.logger.WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"platform":        rules.Name,
	})

	searchCtx := ctx
	if deadline := s.cfg.OptimizationDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	opt := optimizer.NewOptimizer(s.solver, s.logger,
		optimizer.WithMaxAttempts(s.cfg.SearchMaxAttempts),
		optimizer.WithEpsilon(s.cfg.SearchEpsilon),
	)
	result, err := opt.Optimize(searchCtx, players, optimizer.OptimizeConfig{
		Rules:           rules,
		NumLineups:      req.NumLineups,
		LockedPlayers:   req.Locked,
		ExcludedPlayers: req.Excluded,
		IncludeInjured:  req.IncludeInjured,
		Progress: func(p optimizer.Progress) {
			if s.notifier != nil {
				s.notifier.BroadcastToRun(optimizationID, "optimization_progress", p)
			}
		},
	})
	if err != nil {
		if errors.Is(err, optimizer.ErrEmptyPool) || errors.Is(err, optimizer.ErrLockedUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if result.Truncated {
		log.WithField("lineups", len(result.Lineups)).Warn("Saving lineups from a search that ran out of time")
	}

	lineups := make([]models.Lineup, 0, len(result.Lineups))
	for i, roster := range result.Lineups {
		lineup, err := models.NewLineup(optimizationID, i+1, rules, roster)
		if err != nil {
			return nil, err
		}
		lineups = append(lineups, lineup)
	}

	run := models.OptimizationRun{
		ID:         optimizationID,
		SlateID:    req.SlateID,
		Platform:   rules.Name,
		Requested:  req.NumLineups,
		Generated:  len(lineups),
		Attempts:   result.Attempts,
		Rejected:   result.Rejected,
		Locked:     models.JSONList(req.Locked),
		Excluded:   models.JSONList(req.Excluded),
		DurationMs: result.OptimizationTime,
		Truncated:  result.Truncated,
		Lineups:    lineups,
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to save lineups: %w", err)
	}

	out := &GenerateResult{
		OptimizationID:   optimizationID,
		Platform:         rules.Name,
		Lineups:          run.Lineups,
		Attempts:         result.Attempts,
		Rejected:         result.Rejected,
		PoolSize:         result.PoolSize,
		OptimizationTime: result.OptimizationTime,
		Truncated:        result.Truncated,
	}

	// Truncated runs are saved but never cached.
	if !result.Truncated {
		if err := s.cache.Set(ctx, cacheKey, out, s.cfg.CacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache lineups")
		}
	}

	log.WithFields(logrus.Fields{
		"lineups":   len(lineups),
		"attempts":  result.Attempts,
		"truncated": result.Truncated,
	}).Info("Optimization complete")
	return out, nil
}

// GetRun loads a run with its lineups in rank order. Runs are cached by id.
func (s *LineupService) GetRun(ctx context.Context, optimizationID string) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	cacheKey := RunCacheKey(optimizationID)
	if err := s.cache.Get(ctx, cacheKey, &run); err == nil {
		return &run, nil
	}

	err := s.db.WithContext(ctx).
		Preload("Lineups", func(db *gorm.DB) *gorm.DB { return db.Order("rank ASC") }).
		First(&run, "id = ?", optimizationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, &run, s.cfg.CacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache run")
	}
	return &run, nil
}

// Export writes the run's lineups as a platform upload CSV.
func (s *LineupService) Export(ctx context.Context, optimizationID string, w io.Writer) error {
	run, err := s.GetRun(ctx, optimizationID)
	if err != nil {
		return err
	}
	rules, err := platform.Lookup(run.Platform)
	if err != nil {
		return err
	}

	rosters := make([]*optimizer.Roster, 0, len(run.Lineups))
	for i := range run.Lineups {
		roster, err := run.Lineups[i].Roster()
		if err != nil {
			return err
		}
		rosters = append(rosters, roster)
	}
	return optimizer.WriteCSV(w, rules, rosters)
}

// CreateSlate stores a slate and its players. The platform name is
// normalized to its canonical spelling.
func (s *LineupService) CreateSlate(ctx context.Context, slate *models.Slate) error {
	rules, err := platform.Lookup(slate.Platform)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if len(slate.Players) == 0 {
		return fmt.Errorf("%w: slate has no players", ErrInvalidRequest)
	}

	seen := make(map[string]bool, len(slate.Players))
	for _, p := range slate.Players {
		if seen[p.ExternalID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidRequest, p.ExternalID)
		}
		seen[p.ExternalID] = true
	}

	slate.Platform = rules.Name
	if slate.StartTime.IsZero() {
		slate.StartTime = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(slate).Error; err != nil {
		return fmt.Errorf("failed to create slate: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"slate_id": slate.ID,
		"platform": slate.Platform,
		"players":  len(slate.Players),
	}).Info("Slate created")
	return nil
}

func (s *LineupService) GetSlate(ctx context.Context, id uint) (*models.Slate, error) {
	var slate models.Slate
	if err := s.db.WithContext(ctx).Preload("Players").First(&slate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlateNotFound
		}
		return nil, fmt.Errorf("failed to load slate: %w", err)
	}
	return &slate, nil
}
