package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// stripCodeFence removes a surrounding ```json ... ``` block, which the
// assistant adds despite being told not to.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseMealPlanPayload decodes and validates assistant output. With swap set
// the payload must contain exactly the selected slot; otherwise it must
// cover every (day, meal type) slot once and carry a grocery list.
func ParseMealPlanPayload(raw string, swap *types.SwapMeal) (*types.MealPlanPayload, error) {
	var payload types.MealPlanPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, apperrors.Parse("Generated meal plan is not valid JSON", err)
	}
	if len(payload.Days) == 0 {
		return nil, apperrors.Parse("Generated meal plan has no days", nil)
	}

	seen := make(map[string]bool)
	slots := 0
	for _, day := range payload.Days {
		if day.DayNumber < 1 || day.DayNumber > types.PlanDays {
			return nil, apperrors.Parse(fmt.Sprintf("Generated meal plan has invalid day number %d", day.DayNumber), nil)
		}
		for mealType, recipe := range day.Meals {
			if !types.IsMealType(mealType) {
				return nil, apperrors.Parse(fmt.Sprintf("Generated meal plan has unknown meal type %q", mealType), nil)
			}
			if recipe == nil {
				return nil, apperrors.Parse(fmt.Sprintf("Day %d %s has no recipe", day.DayNumber, mealType), nil)
			}
			key := slotKey(day.DayNumber, mealType)
			if seen[key] {
				return nil, apperrors.Parse(fmt.Sprintf("Day %d %s appears more than once", day.DayNumber, mealType), nil)
			}
			seen[key] = true
			slots++
			if err := validateRecipe(recipe); err != nil {
				return nil, apperrors.Parse(fmt.Sprintf("Day %d %s: %s", day.DayNumber, mealType, err.Error()), nil)
			}
		}
	}

	if swap != nil {
		if slots != 1 || !seen[slotKey(swap.Day, swap.MealType)] {
			return nil, apperrors.Parse(fmt.Sprintf("Generated swap must contain only Day %d %s", swap.Day, swap.MealType), nil)
		}
		return &payload, nil
	}

	for day := 1; day <= types.PlanDays; day++ {
		for _, mealType := range types.MealTypes {
			if !seen[slotKey(day, mealType)] {
				return nil, apperrors.Parse(fmt.Sprintf("Generated meal plan is missing Day %d %s", day, mealType), nil)
			}
		}
	}
	if payload.GroceryList == nil || len(payload.GroceryList.Categories) == 0 {
		return nil, apperrors.Parse("Generated meal plan has no grocery list", nil)
	}
	for _, category := range payload.GroceryList.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return nil, apperrors.Parse("Grocery list category has no name", nil)
		}
	}
	return &payload, nil
}

// ParseRecipePayload decodes and validates a single generated recipe.
func ParseRecipePayload(raw string) (*types.Recipe, error) {
	var recipe types.Recipe
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &recipe); err != nil {
		return nil, apperrors.Parse("Generated recipe is not valid JSON", err)
	}
	if err := validateRecipe(&recipe); err != nil {
		return nil, apperrors.Parse("Generated recipe "+err.Error(), nil)
	}
	return &recipe, nil
}

// validateRecipe checks the required recipe fields and normalizes difficulty.
func validateRecipe(r *types.Recipe) error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("is missing a title")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("has no ingredients")
	}
	for i, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("ingredient %d has no name", i+1)
		}
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("has no steps")
	}
	for i, step := range r.Steps {
		if step.Number != i+1 {
			return fmt.Errorf("step numbers must run 1..%d, got %d at position %d", len(r.Steps), step.Number, i+1)
		}
		if strings.TrimSpace(step.Instruction) == "" {
			return fmt.Errorf("step %d has no instruction", step.Number)
		}
	}
	if r.CookingTime == nil {
		return fmt.Errorf("is missing cookingTime")
	}
	switch {
	case strings.TrimSpace(string(r.CookingTime.Prep)) == "":
		return fmt.Errorf("is missing cookingTime.prep")
	case strings.TrimSpace(string(r.CookingTime.Cook)) == "":
		return fmt.Errorf("is missing cookingTime.cook")
	case strings.TrimSpace(string(r.CookingTime.Total)) == "":
		return fmt.Errorf("is missing cookingTime.total")
	}
	switch strings.ToLower(strings.TrimSpace(r.Difficulty)) {
	case "easy":
		r.Difficulty = types.DifficultyEasy
	case "medium":
		r.Difficulty = types.DifficultyMedium
	case "hard":
		r.Difficulty = types.DifficultyHard
	default:
		return fmt.Errorf("has invalid difficulty %q", r.Difficulty)
	}
	return nil
}

func slotKey(day int, mealType string) string {
	return fmt.Sprintf("%d:%s", day, mealType)
}
