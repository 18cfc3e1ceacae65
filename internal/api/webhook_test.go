package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/api"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
)

func checkoutEvent(t *testing.T, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": "2024-06-20",
		"type":        service.EventCheckoutCompleted,
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func postWebhook(s *testServer, payload []byte, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
	if secret != "" {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    secret,
			Timestamp: time.Now(),
			Scheme:    "v1",
		})
		req.Header.Set("Stripe-Signature", signed.Header)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))
	payload := checkoutEvent(t, map[string]interface{}{"id": "cs_1", "customer": "cus_1"})

	w := postWebhook(s, payload, "whsec_wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body errorEnvelope
	decode(t, w, &body)
	assert.Equal(t, "signature_verification_error", body.Error.Type)
	assert.Empty(t, s.reconciler.Events())
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))

	w := postWebhook(s, checkoutEvent(t, map[string]interface{}{"id": "cs_1"}), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.reconciler.Events())
}

func TestWebhookDispatchesVerifiedEvent(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))
	payload := checkoutEvent(t, map[string]interface{}{"id": "cs_1", "customer": "cus_1", "subscription": "sub_1"})

	w := postWebhook(s, payload, testWebhookSecret)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, service.EventCheckoutCompleted, body["type"])

	events := s.reconciler.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "evt_test_1", events[0].ID)
	assert.Equal(t, service.EventCheckoutCompleted, events[0].Type)
	assert.JSONEq(t, `{"id":"cs_1","customer":"cus_1","subscription":"sub_1"}`, string(events[0].Raw))
}

func TestWebhookAcknowledgesEvenWhenReconcileFails(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))
	s.reconciler.err = errors.New("database unavailable")

	w := postWebhook(s, checkoutEvent(t, map[string]interface{}{"id": "cs_1"}), testWebhookSecret)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.reconciler.Events(), 1)
}

func TestWebhookRejectsOtherMethods(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))

	w := s.do(t, http.MethodGet, "/api/v1/billing/webhook", nil, "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	var body errorEnvelope
	decode(t, w, &body)
	assert.Equal(t, "Method not allowed", body.Error.Message)
	assert.Equal(t, "invalid_request_error", body.Error.Type)
}

// Replaying a signed checkout event through the real reconciler leaves one
// active subscription.
func TestWebhookReplayWithReconciler(t *testing.T) {
	s := newTestServer(t, testhelpers.NewFakeGenerationClient(""))
	userID, _ := s.token(t, "buyer@example.com")
	require.NoError(t, s.auth.UpdateStripeCustomerID(context.Background(), userID, "cus_9"))

	log := zap.NewNop()
	reconciler := service.NewReconciler(s.auth, service.NewSubscriptionService(s.db, 5, log), log)
	router := gin.New()
	api.NewWebhookHandler(testWebhookSecret, reconciler, log).RegisterRoutes(router.Group("/api/v1"))

	payload := checkoutEvent(t, map[string]interface{}{"id": "cs_1", "customer": "cus_9", "subscription": "sub_9"})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(payload))
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: payload, Secret: testWebhookSecret, Timestamp: time.Now(), Scheme: "v1",
		})
		req.Header.Set("Stripe-Signature", signed.Header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.EqualValues(t, 1, testhelpers.Count(t, s.db, &models.Subscription{}))
	var sub models.Subscription
	require.NoError(t, s.db.First(&sub, "user_id = ?", userID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}
