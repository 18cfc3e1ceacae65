package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses. Only an external "active" maps to active.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// Subscription mirrors the billing provider's view of one user, keyed by user.
type Subscription struct {
	UserID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	Status               string    `gorm:"size:20;not null;default:'inactive'" json:"status"`
	StripeCustomerID     string    `gorm:"size:255;index" json:"stripeCustomerId"`
	StripeSubscriptionID string    `gorm:"size:255" json:"stripeSubscriptionId"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// IsActive reports whether the subscription unlocks premium features.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionActive
}

// SubscriptionStatus maps an external subscription status to active/inactive.
func SubscriptionStatus(external string) string {
	if external == "active" {
		return SubscriptionActive
	}
	return SubscriptionInactive
}
