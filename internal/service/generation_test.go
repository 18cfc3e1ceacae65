package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/service"
)

func newAssistantServer(t *testing.T, handler http.HandlerFunc) *service.AssistantClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "assistants=v2", r.Header.Get("OpenAI-Beta"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return service.NewAssistantClient("sk-test", server.URL+"/", zap.NewNop())
}

func TestAssistantClientThreadRunLifecycle(t *testing.T) {
	var messageBody map[string]interface{}
	var runBody map[string]interface{}
	client := newAssistantServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads":
			w.Write([]byte(`{"id":"thread_abc"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_abc/messages":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&messageBody))
			w.Write([]byte(`{"id":"msg_1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_abc/runs":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&runBody))
			w.Write([]byte(`{"id":"run_1","thread_id":"thread_abc","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_abc/runs/run_1":
			w.Write([]byte(`{"id":"run_1","thread_id":"thread_abc","status":"completed"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_abc/messages":
			assert.Equal(t, "desc", r.URL.Query().Get("order"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"data":[{"role":"assistant","content":[{"type":"text","text":{"value":"{\"ok\":true}"}}]}]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	threadID, err := client.CreateThread(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", threadID)

	require.NoError(t, client.AddMessage(ctx, threadID, "make dinner"))
	assert.Equal(t, "user", messageBody["role"])
	assert.Equal(t, "make dinner", messageBody["content"])

	runID, err := client.StartRun(ctx, threadID, "asst_1")
	require.NoError(t, err)
	assert.Equal(t, "run_1", runID)
	assert.Equal(t, "asst_1", runBody["assistant_id"])

	run, err := client.GetRun(ctx, threadID, runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)

	text, err := client.LatestMessage(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
}

func TestAssistantClientNonSuccessIsUpstream(t *testing.T) {
	client := newAssistantServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})

	_, err := client.CreateThread(context.Background())

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindUpstream, appErr.Kind)
	assert.Contains(t, appErr.Error(), "Rate limit reached")
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode())
}

func TestAssistantClientFailedRunCarriesLastError(t *testing.T) {
	client := newAssistantServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"run_1","thread_id":"thread_abc","status":"failed","last_error":{"code":"server_error","message":"boom"}}`))
	})

	run, err := client.GetRun(context.Background(), "thread_abc", "run_1")

	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	require.NotNil(t, run.LastError)
	assert.Equal(t, "server_error", run.LastError.Code)
	assert.Equal(t, "boom", run.LastError.Message)
}

func TestAssistantClientUnreachableIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	client := service.NewAssistantClient("sk-test", url, zap.NewNop())

	_, err := client.StartRun(context.Background(), "thread_abc", "asst_1")

	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}

func TestAssistantClientEmptyThread(t *testing.T) {
	client := newAssistantServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.LatestMessage(context.Background(), "thread_abc")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}
