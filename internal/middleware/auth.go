package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// Context keys set by AuthMiddleware.
const (
	UserKey   = "user"
	UserIDKey = "user_id"
)

// Authenticator verifies a bearer token and returns the user it names.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*types.AuthUser, error)
}

// AuthMiddleware creates a middleware that validates bearer tokens
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.Auth("Missing authorization header", nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortWithError(c, apperrors.Auth("Invalid authorization header format", nil))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*types.AuthUser, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.AuthUser)
	return user, ok && user != nil && user.ID != uuid.Nil
}

func abortWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	status := appErr.StatusCode()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": appErr.Message, "type": appErr.Type()},
	})
}
