package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User mirrors an account held by the auth provider. Rows are created the
// first time a verified token is seen; the ID is the token subject.
type User struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string            `gorm:"size:255;not null;uniqueIndex" json:"email"`
	StripeCustomerID string            `gorm:"size:255;index" json:"stripeCustomerId,omitempty"`
	Metadata         datatypes.JSONMap `json:"userMetadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// UserPreference holds the food preferences used to pre-fill generation requests.
type UserPreference struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	DietaryRestrictions datatypes.JSONSlice[string] `json:"dietaryRestrictions"`
	FavoriteIngredients datatypes.JSONSlice[string] `json:"favoriteIngredients"`
	DislikedIngredients datatypes.JSONSlice[string] `json:"dislikedIngredients"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

// All lists every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserPreference{},
		&Subscription{},
		&MealPlan{},
		&MealPlanRecipe{},
		&MealPlanItem{},
		&MealPlanGrocery{},
		&SavedRecipe{},
		&RecipeGeneration{},
	}
}
