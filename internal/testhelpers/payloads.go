package testhelpers

import (
	"encoding/json"
	"fmt"

	"github.com/pageza/mealbyme/backend/internal/types"
)

// Recipe returns a complete recipe titled title.
func Recipe(title string) map[string]interface{} {
	return map[string]interface{}{
		"title": title,
		"ingredients": []map[string]interface{}{
			{"name": "oats", "amount": "1", "unit": "cup"},
			{"name": "milk", "amount": 250, "unit": "ml"},
		},
		"steps": []map[string]interface{}{
			{"number": 1, "instruction": "Combine everything."},
			{"number": 2, "instruction": "Cook for five minutes."},
		},
		"cookingTime": map[string]string{"prep": "5 minutes", "cook": "5 minutes", "total": "10 minutes"},
		"servings":    "2 servings",
		"difficulty":  "easy",
		"dietaryInfo": map[string]interface{}{
			"calories":    "320 kcal",
			"protein":     "12g",
			"carbs":       "50g",
			"fats":        "8g",
			"fiber":       "6g",
			"sodium":      "90mg",
			"dietaryTags": []string{"vegetarian"},
			"allergens":   []string{"dairy"},
		},
	}
}

// RecipeJSON renders Recipe(title).
func RecipeJSON(title string) string {
	return mustJSON(Recipe(title))
}

// MealPlanJSON renders a full three-day plan with a grocery list. Recipe
// titles are "Day <n> <mealType>".
func MealPlanJSON() string {
	days := make([]map[string]interface{}, 0, types.PlanDays)
	for day := 1; day <= types.PlanDays; day++ {
		meals := map[string]interface{}{}
		for _, mealType := range types.MealTypes {
			meals[mealType] = Recipe(fmt.Sprintf("Day %d %s", day, mealType))
		}
		days = append(days, map[string]interface{}{"dayNumber": day, "meals": meals})
	}
	return mustJSON(map[string]interface{}{
		"days": days,
		"groceryList": map[string]interface{}{
			"categories": []map[string]interface{}{
				{
					"name": "Pantry",
					"items": []map[string]interface{}{
						{"name": "oats", "amount": "12", "unit": "cup", "usedIn": []string{"Day 1 Breakfast"}},
					},
				},
				{
					"name": "Dairy",
					"items": []map[string]interface{}{
						{"name": "milk", "amount": "3", "unit": "l", "usedIn": []string{"Day 1 Breakfast"}},
					},
				},
			},
		},
	})
}

// SwapJSON renders a payload holding only one meal.
func SwapJSON(day int, mealType, title string) string {
	return mustJSON(map[string]interface{}{
		"days": []map[string]interface{}{
			{"dayNumber": day, "meals": map[string]interface{}{mealType: Recipe(title)}},
		},
	})
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
