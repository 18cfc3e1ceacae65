package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
	"github.com/pageza/mealbyme/backend/internal/types"
)

func TestIsFeatureAvailable(t *testing.T) {
	tests := []struct {
		feature    string
		subscribed bool
		want       bool
	}{
		{service.FeatureMealPlanning, false, false},
		{service.FeatureMealPlanning, true, true},
		{service.FeatureNutritionalInfo, false, false},
		{service.FeatureNutritionalInfo, true, true},
		{service.FeatureRecipeGeneration, false, true},
		{service.FeatureFavorites, false, true},
		{"unknown", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.IsFeatureAvailable(tt.feature, tt.subscribed), tt.feature)
	}
}

func TestSubscriptionDefaultsToInactive(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewSubscriptionService(db, 5, zap.NewNop())

	status, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, &types.SubscriptionStatusResponse{
		Status:           models.SubscriptionInactive,
		IsSubscribed:     false,
		DailyGenerations: 0,
		DailyLimit:       5,
	}, status)
}

func TestSubscriptionUpsertKeepsStripeIDs(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "buyer@example.com")
	svc := service.NewSubscriptionService(db, 5, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &models.Subscription{
		UserID: user.ID, Status: models.SubscriptionActive, StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
	}))
	require.NoError(t, svc.Upsert(ctx, &models.Subscription{UserID: user.ID, Status: models.SubscriptionInactive}))

	sub, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionInactive, sub.Status)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)

	active, err := svc.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestPreferencesRoundTrip(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "cook@example.com")
	svc := service.NewPreferencesService(db)
	ctx := context.Background()

	empty, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.DietaryRestrictions)

	_, err = svc.Update(ctx, user.ID, types.UpdatePreferencesRequest{
		DietaryRestrictions: []string{" vegetarian ", ""},
		FavoriteIngredients: []string{"basil"},
	})
	require.NoError(t, err)

	pref, err := svc.Update(ctx, user.ID, types.UpdatePreferencesRequest{
		DietaryRestrictions: []string{"vegan"},
		DislikedIngredients: []string{"olives"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, []string(pref.DietaryRestrictions))
	assert.Empty(t, pref.FavoriteIngredients)
	assert.Equal(t, []string{"olives"}, []string(pref.DislikedIngredients))
	assert.EqualValues(t, 1, testhelpers.Count(t, db, &models.UserPreference{}))
}
