package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/types"
)

type stubAuthenticator struct {
	user  *types.AuthUser
	err   error
	token string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*types.AuthUser, error) {
	s.token = token
	return s.user, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	auth := &stubAuthenticator{user: &types.AuthUser{ID: userID, Email: "cook@example.com"}}

	router := gin.New()
	router.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "authentication_error", errorBody(t, w)["type"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "good-token", auth.token)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		router := gin.New()
		router.GET("/me", AuthMiddleware(&stubAuthenticator{err: apperrors.Auth("Invalid or expired token", nil)}), func(c *gin.Context) {
			t.Fatal("handler must not run")
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer expired")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid or expired token", errorBody(t, w)["message"])
	})
}

func TestCORSPreflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"*"}))
	router.POST("/api/v1/meal-plans", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/meal-plans", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// without an Origin header the preflight still ends with 204
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/meal-plans", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterWithoutRedisPassesThrough(t *testing.T) {
	limiter := NewSubmissionRateLimiter(nil, zap.NewNop())
	router := gin.New()
	router.POST("/submit", limiter.RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))
		require.Equal(t, http.StatusAccepted, w.Code)
	}
}
