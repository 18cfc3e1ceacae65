package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// Gated features.
const (
	FeatureMealPlanning     = "mealPlanning"
	FeatureNutritionalInfo  = "nutritionalInfo"
	FeatureRecipeGeneration = "recipeGeneration"
	FeatureFavorites        = "favorites"
)

// IsFeatureAvailable reports whether a feature is open to the caller.
// Recipe generation and favorites are open to everyone, within quota.
func IsFeatureAvailable(feature string, subscribed bool) bool {
	switch feature {
	case FeatureMealPlanning, FeatureNutritionalInfo:
		return subscribed
	case FeatureRecipeGeneration, FeatureFavorites:
		return true
	}
	return false
}

// SubscriptionService reads and writes the local subscription mirror.
type SubscriptionService struct {
	db         *gorm.DB
	dailyLimit int
	log        *zap.Logger
}

func NewSubscriptionService(db *gorm.DB, dailyLimit int, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{db: db, dailyLimit: dailyLimit, log: log}
}

// Get returns the user's subscription, or an inactive one if none is stored.
func (s *SubscriptionService) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if err != nil {
		if apperrors.IsNoRows(err) {
			return &models.Subscription{UserID: userID, Status: models.SubscriptionInactive}, nil
		}
		return nil, apperrors.Storage("Failed to load subscription", err)
	}
	return &sub, nil
}

func (s *SubscriptionService) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.IsActive(), nil
}

// Upsert writes the subscription keyed by user. Replaying the same update
// leaves one row with the same content.
func (s *SubscriptionService) Upsert(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	columns := []string{"status", "updated_at"}
	if sub.StripeCustomerID != "" {
		columns = append(columns, "stripe_customer_id")
	}
	if sub.StripeSubscriptionID != "" {
		columns = append(columns, "stripe_subscription_id")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(sub).Error
	return apperrors.Storage("Failed to update subscription", err)
}

// Status summarises plan and daily usage for the caller.
func (s *SubscriptionService) Status(ctx context.Context, userID uuid.UUID) (*types.SubscriptionStatusResponse, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := dailyGenerations(ctx, s.db, userID, time.Now())
	if err != nil {
		return nil, err
	}
	return &types.SubscriptionStatusResponse{
		Status:           sub.Status,
		IsSubscribed:     sub.IsActive(),
		DailyGenerations: used,
		DailyLimit:       s.dailyLimit,
	}, nil
}

func dailyGenerations(ctx context.Context, db *gorm.DB, userID uuid.UUID, now time.Time) (int, error) {
	var gen models.RecipeGeneration
	err := db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, now.UTC().Format(models.DateLayout)).
		First(&gen).Error
	if err != nil {
		if apperrors.IsNoRows(err) {
			return 0, nil
		}
		return 0, apperrors.Storage("Failed to load generation count", err)
	}
	return gen.Count, nil
}
