package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/retry"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// RecipeConfig carries the single-recipe assistant and free tier limits.
type RecipeConfig struct {
	AssistantID      string
	FreeDailyLimit   int
	FreeSavedRecipes int
}

// RecipeService generates single recipes and manages saved recipes.
type RecipeService struct {
	db            *gorm.DB
	client        GenerationClient
	poller        *Poller
	subscriptions *SubscriptionService
	preferences   *PreferencesService
	cfg           RecipeConfig
	retryPolicy   retry.Policy
	now           func() time.Time
	log           *zap.Logger
}

func NewRecipeService(db *gorm.DB, client GenerationClient, poller *Poller, subs *SubscriptionService, prefs *PreferencesService, cfg RecipeConfig, log *zap.Logger) *RecipeService {
	return &RecipeService{
		db:            db,
		client:        client,
		poller:        poller,
		subscriptions: subs,
		preferences:   prefs,
		cfg:           cfg,
		retryPolicy:   retry.DefaultPolicy(),
		now:           time.Now,
		log:           log,
	}
}

// Generate produces one recipe synchronously. Free users are limited per
// UTC day and never receive nutrition data.
func (s *RecipeService) Generate(ctx context.Context, userID uuid.UUID, req types.GenerateRecipeRequest) (*types.Recipe, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.Validation("Prompt is required")
	}
	if req.Servings < 0 {
		return nil, apperrors.Validation("Servings must be positive")
	}

	subscribed, err := s.subscriptions.IsActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		used, err := dailyGenerations(ctx, s.db, userID, s.now())
		if err != nil {
			return nil, err
		}
		if used >= s.cfg.FreeDailyLimit {
			return nil, apperrors.Quota(fmt.Sprintf("Daily limit of %d recipe generations reached. Upgrade to premium for unlimited generations.", s.cfg.FreeDailyLimit))
		}
	}

	if req.UseStoredPreferences {
		pref, err := s.preferences.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		req.DietaryRestrictions = mergeLists(req.DietaryRestrictions, pref.DietaryRestrictions)
		req.FavoriteIngredients = mergeLists(req.FavoriteIngredients, pref.FavoriteIngredients)
		req.DislikedIngredients = mergeLists(req.DislikedIngredients, pref.DislikedIngredients)
	}

	threadID, err := s.client.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.client.AddMessage(ctx, threadID, BuildRecipePrompt(req)); err != nil {
		return nil, err
	}
	runID, err := s.client.StartRun(ctx, threadID, s.cfg.AssistantID)
	if err != nil {
		return nil, err
	}
	metrics.GenerationSubmissions.WithLabelValues("recipe").Inc()

	result, err := s.poller.Wait(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}

	recipe, err := ParseRecipePayload(result.Output)
	if err != nil {
		s.log.Warn("rejected generated recipe", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}
	if !IsFeatureAvailable(FeatureNutritionalInfo, subscribed) {
		recipe.DietaryInfo = nil
	}

	if err := s.incrementGenerations(ctx, userID); err != nil {
		s.log.Error("failed to count recipe generation", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return recipe, nil
}

func (s *RecipeService) incrementGenerations(ctx context.Context, userID uuid.UUID) error {
	now := s.now().UTC()
	return retry.Do(ctx, s.retryPolicy, func(ctx context.Context) error {
		row := models.RecipeGeneration{
			UserID:    userID,
			Date:      now.Format(models.DateLayout),
			Count:     1,
			UpdatedAt: now,
		}
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("recipe_generations.count + 1"),
				"updated_at": now,
			}),
		}).Create(&row).Error
	}, func(attempt int, err error, wait time.Duration) {
		s.log.Warn("retrying generation count",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

// SaveRecipe stores a recipe in the user's collection. Free users may keep
// a limited number.
func (s *RecipeService) SaveRecipe(ctx context.Context, userID uuid.UUID, recipe types.Recipe) (*models.SavedRecipe, error) {
	if err := validateRecipe(&recipe); err != nil {
		return nil, apperrors.Validation("Recipe " + err.Error())
	}

	subscribed, err := s.subscriptions.IsActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.SavedRecipe{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return nil, apperrors.Storage("Failed to count saved recipes", err)
		}
		if int(count) >= s.cfg.FreeSavedRecipes {
			return nil, apperrors.Quota(fmt.Sprintf("Free plan allows %d saved recipes. Upgrade to premium to save more.", s.cfg.FreeSavedRecipes))
		}
		recipe.DietaryInfo = nil
	}

	vec := RecipeEmbedding(&recipe)
	row := models.SavedRecipe{
		UserID:      userID,
		Title:       recipe.Title,
		Ingredients: datatypes.JSONSlice[types.Ingredient](recipe.Ingredients),
		Steps:       datatypes.JSONSlice[types.Step](recipe.Steps),
		CookingTime: datatypes.NewJSONType(*recipe.CookingTime),
		Servings:    int(recipe.Servings),
		Difficulty:  recipe.Difficulty,
		Embedding:   &vec,
	}
	if recipe.DietaryInfo != nil {
		info := datatypes.NewJSONType(*recipe.DietaryInfo)
		row.DietaryInfo = &info
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperrors.Storage("Failed to save recipe", err)
	}
	return &row, nil
}

// ListSaved returns the user's saved recipes, newest first. A query keeps
// the recipes whose title or ingredient names contain every word of it; on
// Postgres the matches are ranked by embedding distance to the query.
func (s *RecipeService) ListSaved(ctx context.Context, userID uuid.UUID, q string) ([]models.SavedRecipe, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)

	q = strings.TrimSpace(q)
	if q != "" && s.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{TermEmbedding(q)}},
		})
	}
	query = query.Order("created_at DESC")

	var recipes []models.SavedRecipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, apperrors.Storage("Failed to fetch saved recipes", err)
	}
	if q == "" {
		return recipes, nil
	}

	matched := recipes[:0]
	for _, r := range recipes {
		if MatchesQuery(r.Title, r.Ingredients, q) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// DeleteSaved removes one of the user's saved recipes.
func (s *RecipeService) DeleteSaved(ctx context.Context, userID, recipeID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", recipeID, userID).Delete(&models.SavedRecipe{})
	if result.Error != nil {
		return apperrors.Storage("Failed to delete recipe", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("Recipe not found")
	}
	return nil
}

func mergeLists(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			key := strings.ToLower(strings.TrimSpace(item))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(item))
		}
	}
	return out
}
