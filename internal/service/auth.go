package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// AuthService verifies access tokens issued by the auth provider and keeps
// the local users mirror in step with them.
type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	log       *zap.Logger
}

func NewAuthService(db *gorm.DB, jwtSecret string, log *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// VerifyToken checks the HS256 signature and expiry of an access token.
func (s *AuthService) VerifyToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, apperrors.Auth("Invalid or expired token", err)
	}
	if !token.Valid {
		return nil, apperrors.Auth("Invalid token", nil)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperrors.Auth("Invalid token subject", err)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, apperrors.Auth("Token carries no email", nil)
	}
	return claims, nil
}

// Authenticate verifies the token and upserts the user it names.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*types.AuthUser, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user := models.User{
		ID:       userID,
		Email:    strings.ToLower(claims.Email),
		Metadata: datatypes.JSONMap(claims.UserMetadata),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "metadata", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, apperrors.Storage("Failed to sync user", err)
	}

	return &types.AuthUser{
		ID:       userID,
		Email:    user.Email,
		Metadata: claims.UserMetadata,
	}, nil
}

// IssueToken signs a token the way the auth provider does. Used by tests
// and local tooling.
func (s *AuthService) IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  "authenticated",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// FindByID returns the mirrored user.
func (s *AuthService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperrors.Storage("User not found", err)
	}
	return &user, nil
}

// FindByEmail looks a user up case-insensitively.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, apperrors.Storage("User not found", err)
	}
	return &user, nil
}

// FindByStripeCustomerID looks a user up by billing customer id.
func (s *AuthService) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, apperrors.Storage("User not found", err)
	}
	return &user, nil
}

// UpdateStripeCustomerID records the billing customer of a user.
func (s *AuthService) UpdateStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
	return apperrors.Storage("Failed to store billing customer", err)
}
