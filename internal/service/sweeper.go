package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/models"
)

// Sweeper removes provisional plans whose generation never completed.
type Sweeper struct {
	db       *gorm.DB
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewSweeper(db *gorm.DB, ttl time.Duration, log *zap.Logger) *Sweeper {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{db: db, ttl: ttl, interval: interval, now: time.Now, log: log}
}

// SweepOnce deletes processing plans older than the TTL that have no items
// and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	result := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.MealPlanProcessing, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM meal_plan_items WHERE meal_plan_items.meal_plan_id = meal_plans.id)").
		Delete(&models.MealPlan{})
	if result.Error != nil {
		return 0, apperrors.Storage("Failed to sweep provisional meal plans", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.SweptPlans.Add(float64(result.RowsAffected))
		s.log.Info("swept provisional meal plans", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// Run sweeps on a ticker until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
