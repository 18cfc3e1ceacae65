package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/api"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "whsec_test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingReconciler remembers every event handed to it.
type recordingReconciler struct {
	mu     sync.Mutex
	events []service.BillingEvent
	err    error
}

func (r *recordingReconciler) Handle(_ context.Context, event service.BillingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingReconciler) Events() []service.BillingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.BillingEvent(nil), r.events...)
}

type testServer struct {
	router     *gin.Engine
	db         *gorm.DB
	auth       *service.AuthService
	client     *testhelpers.FakeGenerationClient
	billing    *testhelpers.MockBillingProvider
	reconciler *recordingReconciler
}

func newTestServer(t *testing.T, client *testhelpers.FakeGenerationClient) *testServer {
	t.Helper()
	log := zap.NewNop()
	db := testhelpers.SetupSQLite(t)

	auth := service.NewAuthService(db, testJWTSecret, log)
	subs := service.NewSubscriptionService(db, 5, log)
	prefs := service.NewPreferencesService(db)
	poller := service.NewPoller(client, service.PollerConfig{Interval: time.Millisecond, MaxAttempts: 30}, log)
	provider := &testhelpers.MockBillingProvider{}
	reconciler := &recordingReconciler{}

	plans := service.NewMealPlanService(service.MealPlanDeps{
		DB:            db,
		Client:        client,
		Poller:        poller,
		Materializer:  service.NewMaterializer(db, log),
		Ledger:        service.NewMemoryJobLedger(),
		Subscriptions: subs,
		AssistantID:   "asst_plan",
		Logger:        log,
	})
	recipes := service.NewRecipeService(db, client, poller, subs, prefs,
		service.RecipeConfig{AssistantID: "asst_recipe", FreeDailyLimit: 5, FreeSavedRecipes: 3}, log)

	router := gin.New()
	api.RegisterRoutes(router, api.Handlers{
		Billing:  api.NewBillingHandler(service.NewBillingService(provider, auth, service.BillingConfig{PriceID: "price_1", AppURL: "https://app.example.com"}, log)),
		Webhook:  api.NewWebhookHandler(testWebhookSecret, reconciler, log),
		MealPlan: api.NewMealPlanHandler(plans),
		Recipe:   api.NewRecipeHandler(recipes, subs),
		Account:  api.NewAccountHandler(prefs, subs),
		Health:   api.NewHealthHandler(db, nil),
	}, auth)

	return &testServer{
		router:     router,
		db:         db,
		auth:       auth,
		client:     client,
		billing:    provider,
		reconciler: reconciler,
	}
}

// token seeds a user and returns a bearer token for it.
func (s *testServer) token(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	user := testhelpers.SeedUser(t, s.db, email)
	token, err := s.auth.IssueToken(user.ID, email, time.Hour)
	require.NoError(t, err)
	return user.ID, token
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
