package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/types"
)

type PreferencesService struct {
	db *gorm.DB
}

func NewPreferencesService(db *gorm.DB) *PreferencesService {
	return &PreferencesService{db: db}
}

// Get returns stored preferences, or empty ones.
func (s *PreferencesService) Get(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := s.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if apperrors.IsNoRows(err) {
			return &models.UserPreference{
				UserID:              userID,
				DietaryRestrictions: datatypes.JSONSlice[string]{},
				FavoriteIngredients: datatypes.JSONSlice[string]{},
				DislikedIngredients: datatypes.JSONSlice[string]{},
			}, nil
		}
		return nil, apperrors.Storage("Failed to load preferences", err)
	}
	return &pref, nil
}

// Update replaces the user's preferences.
func (s *PreferencesService) Update(ctx context.Context, userID uuid.UUID, req types.UpdatePreferencesRequest) (*models.UserPreference, error) {
	pref := models.UserPreference{
		ID:                  uuid.New(),
		UserID:              userID,
		DietaryRestrictions: cleanList(req.DietaryRestrictions),
		FavoriteIngredients: cleanList(req.FavoriteIngredients),
		DislikedIngredients: cleanList(req.DislikedIngredients),
		UpdatedAt:           time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dietary_restrictions", "favorite_ingredients", "disliked_ingredients", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return nil, apperrors.Storage("Failed to save preferences", err)
	}
	return s.Get(ctx, userID)
}

func cleanList(items []string) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
