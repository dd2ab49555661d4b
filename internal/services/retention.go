package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
	"gorm.io/gorm"
)

// RetentionService deletes old optimization runs on a cron schedule.
type RetentionService struct {
	db       *database.DB
	cron     *cron.Cron
	logger   *logrus.Logger
	schedule string
	maxAge   time.Duration
	now      func() time.Time
}

func NewRetentionService(db *database.DB, logger *logrus.Logger, schedule string, days int) *RetentionService {
	return &RetentionService{
		db:       db,
		cron:     cron.New(),
		logger:   logger,
		schedule: schedule,
		maxAge:   time.Duration(days) * 24 * time.Hour,
		now:      time.Now,
	}
}

func (s *RetentionService) Start() error {
	if s.maxAge <= 0 {
		s.logger.Info("Lineup retention disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.PurgeOnce(context.Background()); err != nil {
			s.logger.WithError(err).Error("Lineup retention failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"max_age":  s.maxAge.String(),
	}).Info("Lineup retention started")
	return nil
}

func (s *RetentionService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Lineup retention stopped")
}

// PurgeOnce deletes runs older than the retention window with their
// lineups and returns how many runs were removed.
func (s *RetentionService) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge)

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.OptimizationRun{}).Select("id").Where("created_at < ?", cutoff)

		if err := tx.Where("optimization_id IN (?)", stale).Delete(&models.Lineup{}).Error; err != nil {
			return fmt.Errorf("failed to delete lineups: %w", err)
		}
		result := tx.Where("created_at < ?", cutoff).Delete(&models.OptimizationRun{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete runs: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Purged old optimization runs")
	return removed, nil
}
