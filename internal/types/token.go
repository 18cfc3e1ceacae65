package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims represents the claims in an access token issued by the auth provider
type TokenClaims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	Role         string                 `json:"role,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AuthUser is the verified identity handlers work with.
type AuthUser struct {
	ID       uuid.UUID
	Email    string
	Metadata map[string]interface{}
}
