package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/types"
)

// SavedRecipe is a recipe the user kept from a single-recipe generation.
type SavedRecipe struct {
	ID          uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID                              `gorm:"type:uuid;not null;index" json:"userId"`
	Title       string                                 `gorm:"size:255;not null" json:"title"`
	Ingredients datatypes.JSONSlice[types.Ingredient]  `gorm:"not null" json:"ingredients"`
	Steps       datatypes.JSONSlice[types.Step]        `gorm:"not null" json:"steps"`
	CookingTime datatypes.JSONType[types.CookingTime]  `json:"cookingTime"`
	Servings    int                                    `json:"servings"`
	Difficulty  string                                 `gorm:"size:10" json:"difficulty"`
	DietaryInfo *datatypes.JSONType[types.DietaryInfo] `json:"dietaryInfo"`
	Embedding   *pgvector.Vector                       `gorm:"type:vector(3)" json:"-"`
	CreatedAt   time.Time                              `json:"createdAt"`
}

func (r *SavedRecipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Recipe converts the row back into the payload shape.
func (r *SavedRecipe) Recipe() types.Recipe {
	out := types.Recipe{
		Title:       r.Title,
		Ingredients: r.Ingredients,
		Steps:       r.Steps,
		Servings:    types.Servings(r.Servings),
		Difficulty:  r.Difficulty,
	}
	ct := r.CookingTime.Data()
	out.CookingTime = &ct
	if r.DietaryInfo != nil {
		info := r.DietaryInfo.Data()
		out.DietaryInfo = &info
	}
	return out
}

// RecipeGeneration counts single-recipe generations per user per UTC day.
type RecipeGeneration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_generations_user_date" json:"userId"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_recipe_generations_user_date" json:"date"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (g *RecipeGeneration) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
