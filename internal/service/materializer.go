package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// Materializer writes a validated payload into the relational store.
type Materializer struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMaterializer(db *gorm.DB, log *zap.Logger) *Materializer {
	return &Materializer{db: db, log: log}
}

// Materialize writes recipes, items and (for full plans) the grocery list
// in one transaction and marks the plan ready. Either everything is written
// or nothing is. With swap set only the selected slot is replaced.
func (m *Materializer) Materialize(ctx context.Context, planID uuid.UUID, payload *types.MealPlanPayload, swap *types.SwapMeal) (*models.MealPlan, error) {
	kind := "full"
	if swap != nil {
		kind = "swap"
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.MealPlan
		if err := tx.First(&plan, "id = ?", planID).Error; err != nil {
			return apperrors.Storage("Meal plan not found", err)
		}

		replaced := func(db *gorm.DB) *gorm.DB {
			db = db.Where("meal_plan_id = ?", planID)
			if swap != nil {
				db = db.Where("day_number = ? AND meal_type = ?", swap.Day, swap.MealType)
			}
			return db
		}
		var oldRecipeIDs []uuid.UUID
		if err := tx.Model(&models.MealPlanItem{}).Scopes(replaced).Pluck("recipe_id", &oldRecipeIDs).Error; err != nil {
			return apperrors.Storage("Failed to load replaced meals", err)
		}
		if err := tx.Scopes(replaced).Delete(&models.MealPlanItem{}).Error; err != nil {
			return apperrors.Storage("Failed to remove replaced meals", err)
		}
		// Each recipe row belongs to exactly one item.
		if len(oldRecipeIDs) > 0 {
			if err := tx.Where("id IN ?", oldRecipeIDs).Delete(&models.MealPlanRecipe{}).Error; err != nil {
				return apperrors.Storage("Failed to remove replaced recipes", err)
			}
		}

		for _, day := range sortedDays(payload.Days) {
			for _, mealType := range types.MealTypes {
				recipe, ok := day.Meals[mealType]
				if !ok || recipe == nil {
					continue
				}
				row := models.NewMealPlanRecipe(recipe, plan.Servings)
				if err := tx.Create(row).Error; err != nil {
					return apperrors.Storage("Failed to save recipe", err)
				}
				item := models.MealPlanItem{
					MealPlanID: planID,
					DayNumber:  day.DayNumber,
					MealType:   mealType,
					RecipeID:   row.ID,
				}
				if err := tx.Create(&item).Error; err != nil {
					return apperrors.Storage("Failed to save meal plan item", err)
				}
			}
		}

		if swap == nil && payload.GroceryList != nil {
			grocery := models.MealPlanGrocery{
				MealPlanID: planID,
				Items:      datatypes.NewJSONType(*payload.GroceryList),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "meal_plan_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"items"}),
			}).Create(&grocery).Error; err != nil {
				return apperrors.Storage("Failed to save grocery list", err)
			}
		}

		if err := tx.Model(&models.MealPlan{}).Where("id = ?", planID).
			Update("status", models.MealPlanReady).Error; err != nil {
			return apperrors.Storage("Failed to update meal plan status", err)
		}
		return nil
	})
	if err != nil {
		metrics.Materializations.WithLabelValues(kind, "error").Inc()
		m.log.Error("materialization rolled back",
			zap.String("meal_plan_id", planID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.Materializations.WithLabelValues(kind, "ok").Inc()
	m.log.Info("meal plan materialized",
		zap.String("meal_plan_id", planID.String()),
		zap.String("kind", kind),
	)
	return LoadAggregate(ctx, m.db, planID)
}

// LoadAggregate loads a plan with its items, recipes and grocery list.
// Items are ordered by day and then by meal order within the day.
func LoadAggregate(ctx context.Context, db *gorm.DB, planID uuid.UUID) (*models.MealPlan, error) {
	var plan models.MealPlan
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Recipe").
		Preload("GroceryList").
		First(&plan, "id = ?", planID).Error
	if err != nil {
		return nil, apperrors.Storage("Meal plan not found", err)
	}
	sortItems(plan.Items)
	return &plan, nil
}

func sortItems(items []models.MealPlanItem) {
	order := make(map[string]int, len(types.MealTypes))
	for i, m := range types.MealTypes {
		order[m] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DayNumber != items[j].DayNumber {
			return items[i].DayNumber < items[j].DayNumber
		}
		return order[items[i].MealType] < order[items[j].MealType]
	})
}

func sortedDays(days []types.DayPlan) []types.DayPlan {
	out := append([]types.DayPlan(nil), days...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out
}
