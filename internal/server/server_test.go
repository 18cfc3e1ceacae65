package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/api"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	db := testhelpers.SetupSQLite(t)

	cfg := &config.Config{
		ServerHost:     "localhost",
		ServerPort:     "8080",
		AllowedOrigins: []string{"https://app.example.com"},
	}

	client := testhelpers.NewFakeGenerationClient("")
	auth := service.NewAuthService(db, "test-secret", log)
	subs := service.NewSubscriptionService(db, 5, log)
	prefs := service.NewPreferencesService(db)
	poller := service.NewPoller(client, service.PollerConfig{Interval: time.Millisecond, MaxAttempts: 3}, log)

	handlers := api.Handlers{
		Billing: api.NewBillingHandler(service.NewBillingService(&testhelpers.MockBillingProvider{}, auth,
			service.BillingConfig{PriceID: "price_1", AppURL: "https://app.example.com"}, log)),
		Webhook: api.NewWebhookHandler("whsec_test", service.NewReconciler(auth, subs, log), log),
		MealPlan: api.NewMealPlanHandler(service.NewMealPlanService(service.MealPlanDeps{
			DB:            db,
			Client:        client,
			Poller:        poller,
			Materializer:  service.NewMaterializer(db, log),
			Subscriptions: subs,
			Logger:        log,
		})),
		Recipe: api.NewRecipeHandler(service.NewRecipeService(db, client, poller, subs, prefs,
			service.RecipeConfig{FreeDailyLimit: 5, FreeSavedRecipes: 3}, log), subs),
		Account: api.NewAccountHandler(prefs, subs),
		Health:  api.NewHealthHandler(db, nil),
	}

	return New(cfg, handlers, auth, service.NewSweeper(db, time.Hour, log), log)
}

func TestNew(t *testing.T) {
	server := newTestServer(t)
	assert.NotNil(t, server)
	assert.Equal(t, "localhost:8080", server.http.Addr)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreflightAlwaysNoContent(t *testing.T) {
	server := newTestServer(t)

	for _, origin := range []string{"https://app.example.com", ""} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/api/v1/meal-plans", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
		server.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code, "origin %q", origin)
	}
}

func TestWrongMethodReturnsJSON(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/billing/customers", nil)
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":{"message":"Method not allowed","type":"invalid_request_error"}}`, w.Body.String())
}

func TestStopWithoutStart(t *testing.T) {
	server := newTestServer(t)
	assert.NoError(t, server.Stop(context.Background()))
}
