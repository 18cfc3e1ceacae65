package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
	"github.com/pageza/mealbyme/backend/internal/types"
)

func TestAuthenticateUpsertsUser(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewAuthService(db, "test-secret", zap.NewNop())
	userID := uuid.New()

	token, err := svc.IssueToken(userID, "Cook@Example.com", time.Hour)
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "cook@example.com", user.Email)

	// second sight of the same subject keeps one row
	_, err = svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, testhelpers.Count(t, db, &models.User{}))

	found, err := svc.FindByEmail(context.Background(), " COOK@example.com ")
	require.NoError(t, err)
	assert.Equal(t, userID, found.ID)
}

func TestVerifyTokenRejections(t *testing.T) {
	svc := service.NewAuthService(nil, "test-secret", zap.NewNop())
	other := service.NewAuthService(nil, "other-secret", zap.NewNop())

	wrongKey, err := other.IssueToken(uuid.New(), "a@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := svc.IssueToken(uuid.New(), "a@example.com", -time.Minute)
	require.NoError(t, err)
	noEmail, err := svc.IssueToken(uuid.New(), "", time.Hour)
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "a@example.com",
	})
	badSubjectToken, err := badSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong key", wrongKey},
		{"expired", expired},
		{"no email", noEmail},
		{"subject not a uuid", badSubjectToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyToken(tt.token)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindAuth))
		})
	}
}

func TestFindByIDMissingIsNoRows(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	svc := service.NewAuthService(db, "test-secret", zap.NewNop())

	_, err := svc.FindByID(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNoRows(err))
}
