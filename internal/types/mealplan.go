package types

// Meal types, in the order they are listed in a day.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// MealTypes lists every meal slot of a day.
var MealTypes = []string{MealBreakfast, MealLunch, MealDinner, MealSnack}

// PlanDays is the fixed length of a meal plan.
const PlanDays = 3

// Fitness goals.
const (
	FitnessWeightLoss  = "weight_loss"
	FitnessMuscleGain  = "muscle_gain"
	FitnessMaintenance = "maintenance"
)

// IsMealType reports whether s names a meal slot.
func IsMealType(s string) bool {
	for _, m := range MealTypes {
		if m == s {
			return true
		}
	}
	return false
}

// IsFitnessGoal reports whether s is a supported fitness goal.
func IsFitnessGoal(s string) bool {
	switch s {
	case FitnessWeightLoss, FitnessMuscleGain, FitnessMaintenance:
		return true
	}
	return false
}

// DayPlan holds the meals generated for one day, keyed by meal type.
type DayPlan struct {
	DayNumber int                `json:"dayNumber"`
	Meals     map[string]*Recipe `json:"meals"`
}

// GroceryItem is one aggregated ingredient of a grocery list.
type GroceryItem struct {
	Name   string   `json:"name"`
	Amount Quantity `json:"amount"`
	Unit   string   `json:"unit"`
	UsedIn []string `json:"usedIn"`
}

// GroceryCategory groups grocery items, e.g. "Produce".
type GroceryCategory struct {
	Name  string        `json:"name"`
	Items []GroceryItem `json:"items"`
}

// GroceryList is the categorized shopping list for a meal plan.
type GroceryList struct {
	Categories []GroceryCategory `json:"categories"`
}

// MealPlanPayload is the JSON document the meal plan assistant returns.
type MealPlanPayload struct {
	Days        []DayPlan    `json:"days"`
	GroceryList *GroceryList `json:"groceryList"`
}

// SwapMeal selects the single (day, mealType) slot to regenerate.
type SwapMeal struct {
	Day      int    `json:"day"`
	MealType string `json:"mealType"`
}
