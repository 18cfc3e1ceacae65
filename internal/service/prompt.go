package service

import (
	"fmt"
	"strings"

	"github.com/pageza/mealbyme/backend/internal/types"
)

const recipeShape = `{
  "title": "Recipe name",
  "ingredients": [{"name": "ingredient", "amount": "amount", "unit": "unit"}],
  "steps": [{"number": 1, "instruction": "step instruction"}],
  "cookingTime": {"prep": "time", "cook": "time", "total": "time"},
  "servings": number,
  "difficulty": "Easy/Medium/Hard",
  "dietaryInfo": {
    "calories": number,
    "protein": "amount in grams",
    "carbs": "amount in grams",
    "fats": "amount in grams",
    "fiber": "amount in grams",
    "sodium": "amount in mg",
    "dietaryTags": [],
    "allergens": []
  }
}`

// MealPlanPrompt describes one meal plan generation.
type MealPlanPrompt struct {
	Servings            int
	DietaryNeeds        []string
	FitnessGoal         *string
	DislikedIngredients []string
	Swap                *types.SwapMeal
}

// BuildMealPlanPrompt renders the instruction sent to the meal plan assistant.
func BuildMealPlanPrompt(p MealPlanPrompt) string {
	var b strings.Builder

	if p.Swap != nil {
		b.WriteString("Replace a single meal of an existing meal plan with the following requirements:\n\n")
	} else {
		b.WriteString("Create a 3-day meal plan with the following requirements:\n\n")
	}
	b.WriteString("Preferences:\n")
	fmt.Fprintf(&b, "- Servings: %d\n", p.Servings)
	fmt.Fprintf(&b, "- Dietary needs: %s\n", joinOrNone(p.DietaryNeeds))
	goal := "none"
	if p.FitnessGoal != nil && *p.FitnessGoal != "" {
		goal = strings.ReplaceAll(*p.FitnessGoal, "_", " ")
	}
	fmt.Fprintf(&b, "- Fitness goal: %s\n", goal)
	fmt.Fprintf(&b, "- Disliked ingredients: %s\n", joinOrNone(p.DislikedIngredients))
	if p.Swap != nil {
		fmt.Fprintf(&b, "- Only generate a new recipe for Day %d %s\n", p.Swap.Day, p.Swap.MealType)
	}

	b.WriteString("\nRequirements:\n")
	if p.Swap != nil {
		fmt.Fprintf(&b, "- Return exactly one day (dayNumber %d) containing only the %s meal\n", p.Swap.Day, p.Swap.MealType)
		b.WriteString("- Do not include a grocery list\n")
	} else {
		b.WriteString("- Create meals for breakfast, lunch, dinner, and one snack for each day\n")
		b.WriteString("- Suggest meals that use overlapping ingredients to reduce food waste\n")
		b.WriteString("- Include detailed recipes for each meal\n")
		b.WriteString("- Include nutritional information and dietary tags\n")
		b.WriteString("- Generate a consolidated grocery list\n")
	}

	if p.Swap != nil {
		b.WriteString("\nPlease provide the meal in JSON format with the following structure:\n")
		fmt.Fprintf(&b, `{
  "days": [
    {
      "dayNumber": %d,
      "meals": {
        %q: %s
      }
    }
  ]
}
`, p.Swap.Day, p.Swap.MealType, indent(recipeShape, "        "))
	} else {
		b.WriteString("\nPlease provide the meal plan in JSON format with the following structure:\n")
		b.WriteString(`{
  "days": [
    {
      "dayNumber": 1,
      "meals": {
        "breakfast": `)
		b.WriteString(indent(recipeShape, "        "))
		b.WriteString(`,
        "lunch": { ... },
        "dinner": { ... },
        "snack": { ... }
      }
    }
  ],
  "groceryList": {
    "categories": [
      {
        "name": "Produce",
        "items": [
          {"name": "ingredient", "amount": "total amount", "unit": "unit", "usedIn": ["Day 1 Breakfast", "Day 2 Lunch"]}
        ]
      }
    ]
  }
}
`)
	}
	b.WriteString("\nInclude only the JSON response, no additional text.")
	return b.String()
}

// BuildRecipePrompt renders the instruction sent to the single-recipe assistant.
func BuildRecipePrompt(req types.GenerateRecipeRequest) string {
	servings := req.Servings
	if servings <= 0 {
		servings = 2
	}
	people := "people"
	if servings == 1 {
		people = "person"
	}

	var b strings.Builder
	b.WriteString("Create a recipe based on these preferences:\n")
	fmt.Fprintf(&b, "Desired dish: %s\n", strings.TrimSpace(req.Prompt))
	if len(req.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s\n", strings.Join(req.DietaryRestrictions, ", "))
	}
	fmt.Fprintf(&b, "Liked ingredients: %s\n", joinOrNone(req.FavoriteIngredients))
	fmt.Fprintf(&b, "Disliked ingredients: %s\n", joinOrNone(req.DislikedIngredients))
	fmt.Fprintf(&b, "Serving size: %d %s\n\n", servings, people)
	b.WriteString("Please provide a detailed recipe in JSON format with the following structure:\n")
	b.WriteString(strings.Replace(recipeShape, `"servings": number`, fmt.Sprintf(`"servings": %d`, servings), 1))
	b.WriteString("\n\nIMPORTANT:\n")
	fmt.Fprintf(&b, "- Adjust all ingredient amounts to exactly match the specified serving size of %d %s\n", servings, people)
	b.WriteString("- Respond with ONLY the JSON object, no additional text.\n")
	b.WriteString("- ALWAYS include detailed nutritional information in the dietaryInfo object.")
	return b.String()
}

func joinOrNone(items []string) string {
	var kept []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "none"
	}
	return strings.Join(kept, ", ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
