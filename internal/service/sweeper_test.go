package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
)

func TestSweepOnceRemovesOnlyStaleProvisionalPlans(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "cook@example.com")
	old := time.Now().Add(-2 * time.Hour)

	stale := models.MealPlan{UserID: user.ID, StartDate: "2024-01-01", EndDate: "2024-01-03", Servings: 2,
		Status: models.MealPlanProcessing, CreatedAt: old}
	fresh := models.MealPlan{UserID: user.ID, StartDate: "2024-01-01", EndDate: "2024-01-03", Servings: 2,
		Status: models.MealPlanProcessing}
	ready := models.MealPlan{UserID: user.ID, StartDate: "2024-01-01", EndDate: "2024-01-03", Servings: 2,
		Status: models.MealPlanReady, CreatedAt: old}
	for _, p := range []*models.MealPlan{&stale, &fresh, &ready} {
		require.NoError(t, db.Create(p).Error)
	}

	removed, err := service.NewSweeper(db, time.Hour, zap.NewNop()).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var left []models.MealPlan
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 2)
	for _, p := range left {
		assert.NotEqual(t, stale.ID, p.ID)
	}
}

func TestSweepOnceKeepsPlansWithItems(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "cook@example.com")
	plan := seedProvisionalPlan(t, db, user.ID)
	materializeFull(t, db, plan.ID)

	// force the materialized plan back to a stale processing state
	require.NoError(t, db.Model(&models.MealPlan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
		"status":     models.MealPlanProcessing,
		"created_at": time.Now().Add(-2 * time.Hour),
	}).Error)

	removed, err := service.NewSweeper(db, time.Hour, zap.NewNop()).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed)
}
