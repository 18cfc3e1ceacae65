package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/middleware"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// respondError writes the {error: {message, type}} body for err.
// Unclassified errors become a generic 500.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": appErr.Message,
			"type":    appErr.Type(),
		},
	})
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
		"error": gin.H{
			"message": "Method not allowed",
			"type":    "invalid_request_error",
		},
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"error": gin.H{
			"message": "Not found",
			"type":    "invalid_request_error",
		},
	})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.Validation("Invalid request body"))
		return false
	}
	return true
}

func currentUser(c *gin.Context) (*types.AuthUser, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperrors.Auth("", nil))
		return nil, false
	}
	return user, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
