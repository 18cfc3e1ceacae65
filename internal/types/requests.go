package types

import (
	"github.com/google/uuid"
)

// SubmitMealPlanRequest is the body of a meal plan generation request. A
// swap request names an existing plan and the slot to regenerate.
type SubmitMealPlanRequest struct {
	Servings            int        `json:"servings"`
	DietaryNeeds        []string   `json:"dietaryNeeds"`
	FitnessGoal         *string    `json:"fitnessGoal"`
	DislikedIngredients []string   `json:"dislikedIngredients"`
	StartDate           string     `json:"startDate"`
	SwapMeal            *SwapMeal  `json:"swapMeal,omitempty"`
	MealPlanID          *uuid.UUID `json:"mealPlanId,omitempty"`
}

// SubmitMealPlanResponse carries the job handle the browser polls with.
type SubmitMealPlanResponse struct {
	MealPlanID uuid.UUID `json:"mealPlanId"`
	ThreadID   string    `json:"threadId"`
	RunID      string    `json:"runId"`
	Status     string    `json:"status"`
}

// PollMealPlanRequest is recreated from query parameters on every poll.
// The swap slot is optional; when sent it must match the submitted one.
type PollMealPlanRequest struct {
	ThreadID   string    `form:"threadId"`
	RunID      string    `form:"runId"`
	MealPlanID uuid.UUID `form:"-"`
	SwapDay    int       `form:"swapDay"`
	SwapMeal   string    `form:"swapMealType"`
}

// Swap returns the swap slot named by the poll, if any.
func (r PollMealPlanRequest) Swap() *SwapMeal {
	if r.SwapDay == 0 && r.SwapMeal == "" {
		return nil
	}
	return &SwapMeal{Day: r.SwapDay, MealType: r.SwapMeal}
}

// GenerateRecipeRequest asks for a single recipe.
type GenerateRecipeRequest struct {
	Prompt               string   `json:"prompt"`
	DietaryRestrictions  []string `json:"dietaryRestrictions"`
	FavoriteIngredients  []string `json:"favoriteIngredients"`
	DislikedIngredients  []string `json:"dislikedIngredients"`
	Servings             int      `json:"servings"`
	UseStoredPreferences bool     `json:"useStoredPreferences"`
}

// SaveRecipeRequest stores a generated recipe in the user's collection.
type SaveRecipeRequest struct {
	Recipe Recipe `json:"recipe"`
}

// UpdatePreferencesRequest replaces the user's stored preferences.
type UpdatePreferencesRequest struct {
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	FavoriteIngredients []string `json:"favoriteIngredients"`
	DislikedIngredients []string `json:"dislikedIngredients"`
}

// CreateCustomerRequest is the body of the create-customer proxy.
type CreateCustomerRequest struct {
	Email string `json:"email"`
}

// CreateCustomerResponse reports the billing customer and whether it already existed.
type CreateCustomerResponse struct {
	CustomerID string `json:"customerId"`
	IsExisting bool   `json:"isExisting"`
}

// CheckoutSessionResponse is returned by the checkout-session proxy.
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PortalSessionRequest is the body of the portal-session proxy.
type PortalSessionRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// SubscriptionStatusResponse summarises the caller's plan and usage.
type SubscriptionStatusResponse struct {
	Status           string `json:"status"`
	IsSubscribed     bool   `json:"isSubscribed"`
	DailyGenerations int    `json:"dailyGenerations"`
	DailyLimit       int    `json:"dailyLimit"`
}
