package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/types"
)

// Meal plan lifecycle. A plan is provisional (processing) from submission
// until its generation is materialized.
const (
	MealPlanProcessing = "processing"
	MealPlanReady      = "ready"
	MealPlanFailed     = "failed"
)

// DateLayout is the calendar date format used for plan windows.
const DateLayout = "2006-01-02"

type MealPlan struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID                   `gorm:"type:uuid;not null;index" json:"userId"`
	StartDate           string                      `gorm:"size:10;not null" json:"startDate"`
	EndDate             string                      `gorm:"size:10;not null" json:"endDate"`
	Servings            int                         `gorm:"not null" json:"servings"`
	DietaryNeeds        datatypes.JSONSlice[string] `json:"dietaryNeeds"`
	FitnessGoal         *string                     `gorm:"size:20" json:"fitnessGoal"`
	DislikedIngredients datatypes.JSONSlice[string] `json:"dislikedIngredients"`
	Status              string                      `gorm:"size:20;not null;default:'processing';index" json:"status"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`

	Items       []MealPlanItem   `gorm:"foreignKey:MealPlanID;constraint:OnDelete:CASCADE" json:"items"`
	GroceryList *MealPlanGrocery `gorm:"foreignKey:MealPlanID;constraint:OnDelete:CASCADE" json:"groceryList"`
}

func (p *MealPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlanWindow returns the start and end dates of the fixed three-day window
// beginning at start.
func PlanWindow(start time.Time) (string, string) {
	return start.Format(DateLayout), start.AddDate(0, 0, types.PlanDays-1).Format(DateLayout)
}

// MealPlanRecipe is a recipe generated as part of a meal plan. Rows are
// immutable once written.
type MealPlanRecipe struct {
	ID          uuid.UUID                                `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                                   `gorm:"size:255;not null" json:"title"`
	Ingredients datatypes.JSONSlice[types.Ingredient]    `gorm:"not null" json:"ingredients"`
	Steps       datatypes.JSONSlice[types.Step]          `gorm:"not null" json:"steps"`
	CookingTime datatypes.JSONType[types.CookingTime]    `json:"cookingTime"`
	Servings    int                                      `json:"servings"`
	Difficulty  string                                   `gorm:"size:10" json:"difficulty"`
	DietaryInfo *datatypes.JSONType[types.DietaryInfo]   `json:"dietaryInfo"`
	CreatedAt   time.Time                                `json:"createdAt"`
}

func (r *MealPlanRecipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MealPlanItem links one recipe into a (day, meal type) slot of a plan.
type MealPlanItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MealPlanID uuid.UUID       `gorm:"type:uuid;not null;index:idx_meal_plan_slot" json:"mealPlanId"`
	DayNumber  int             `gorm:"not null;index:idx_meal_plan_slot" json:"dayNumber"`
	MealType   string          `gorm:"size:20;not null;index:idx_meal_plan_slot" json:"mealType"`
	RecipeID   uuid.UUID       `gorm:"type:uuid;not null" json:"recipeId"`
	Recipe     *MealPlanRecipe `gorm:"foreignKey:RecipeID" json:"recipe"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (i *MealPlanItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// MealPlanGrocery stores the categorized grocery list of a plan.
type MealPlanGrocery struct {
	ID         uuid.UUID                             `gorm:"type:uuid;primaryKey" json:"id"`
	MealPlanID uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex" json:"mealPlanId"`
	Items      datatypes.JSONType[types.GroceryList] `json:"items"`
	CreatedAt  time.Time                             `json:"createdAt"`
}

func (g *MealPlanGrocery) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// NewMealPlanRecipe converts a validated recipe payload into a row.
func NewMealPlanRecipe(r *types.Recipe, defaultServings int) *MealPlanRecipe {
	row := &MealPlanRecipe{
		Title:       r.Title,
		Ingredients: datatypes.JSONSlice[types.Ingredient](r.Ingredients),
		Steps:       datatypes.JSONSlice[types.Step](r.Steps),
		Servings:    int(r.Servings),
		Difficulty:  r.Difficulty,
	}
	if r.CookingTime != nil {
		row.CookingTime = datatypes.NewJSONType(*r.CookingTime)
	}
	if row.Servings <= 0 {
		row.Servings = defaultServings
	}
	if r.DietaryInfo != nil {
		info := datatypes.NewJSONType(*r.DietaryInfo)
		row.DietaryInfo = &info
	}
	return row
}
