package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/retry"
)

// Billing event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// CheckoutSessionEvent is the subset of a checkout.session object the
// reconciler reads.
type CheckoutSessionEvent struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// SubscriptionEvent is the subset of a subscription object the reconciler reads.
type SubscriptionEvent struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// BillingEvent is a verified event as handed over by the webhook receiver.
type BillingEvent struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

// Reconciler mirrors billing events into the subscriptions table.
type Reconciler struct {
	users         *AuthService
	subscriptions *SubscriptionService
	policy        retry.Policy
	log           *zap.Logger
}

func NewReconciler(users *AuthService, subs *SubscriptionService, log *zap.Logger) *Reconciler {
	return &Reconciler{
		users:         users,
		subscriptions: subs,
		policy:        retry.DefaultPolicy(),
		log:           log,
	}
}

// Handle applies one event. Events whose user cannot be resolved are
// logged and dropped; unhandled types are ignored.
func (r *Reconciler) Handle(ctx context.Context, event BillingEvent) error {
	result := "ok"
	defer func() {
		metrics.ReconcileResults.WithLabelValues(event.Type, result).Inc()
	}()

	var (
		sub  *models.Subscription
		refs userRefs
	)
	switch event.Type {
	case EventCheckoutCompleted:
		var session CheckoutSessionEvent
		if err := json.Unmarshal(event.Raw, &session); err != nil {
			result = "error"
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		email := session.CustomerDetails.Email
		if email == "" {
			email = session.CustomerEmail
		}
		refs = userRefs{
			customerID: session.Customer,
			email:      email,
			userID:     firstNonEmpty(session.ClientReferenceID, session.Metadata["user_id"]),
		}
		sub = &models.Subscription{
			Status:               models.SubscriptionActive,
			StripeCustomerID:     session.Customer,
			StripeSubscriptionID: session.Subscription,
		}

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s SubscriptionEvent
		if err := json.Unmarshal(event.Raw, &s); err != nil {
			result = "error"
			return fmt.Errorf("decode subscription: %w", err)
		}
		status := s.Status
		if event.Type == EventSubscriptionDeleted {
			status = "canceled"
		}
		refs = userRefs{customerID: s.Customer, userID: s.Metadata["user_id"]}
		sub = &models.Subscription{
			Status:               models.SubscriptionStatus(status),
			StripeCustomerID:     s.Customer,
			StripeSubscriptionID: s.ID,
		}

	default:
		result = "ignored"
		r.log.Info("billing event ignored", zap.String("type", event.Type), zap.String("event_id", event.ID))
		return nil
	}

	userID, ok := r.resolveUser(ctx, refs)
	if !ok {
		result = "unresolved"
		r.log.Warn("billing event has no matching user",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID),
			zap.String("customer_id", refs.customerID),
		)
		return nil
	}
	sub.UserID = userID

	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		return r.subscriptions.Upsert(ctx, sub)
	}, func(attempt int, err error, wait time.Duration) {
		r.log.Warn("retrying subscription sync",
			zap.String("event_id", event.ID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		result = "error"
		return err
	}

	r.log.Info("subscription synced",
		zap.String("type", event.Type),
		zap.String("user_id", userID.String()),
		zap.String("status", sub.Status),
	)
	return nil
}

type userRefs struct {
	customerID string
	email      string
	userID     string
}

// resolveUser tries the billing customer id, then the checkout email, then
// the user id the checkout was tagged with.
func (r *Reconciler) resolveUser(ctx context.Context, refs userRefs) (uuid.UUID, bool) {
	if id := strings.TrimSpace(refs.customerID); id != "" {
		if user, err := r.users.FindByStripeCustomerID(ctx, id); err == nil {
			return user.ID, true
		} else if !apperrors.IsNoRows(err) {
			r.log.Warn("customer lookup failed", zap.Error(err))
		}
	}
	if email := strings.TrimSpace(refs.email); email != "" {
		if user, err := r.users.FindByEmail(ctx, email); err == nil {
			if refs.customerID != "" && user.StripeCustomerID == "" {
				if err := r.users.UpdateStripeCustomerID(ctx, user.ID, refs.customerID); err != nil {
					r.log.Warn("failed to store billing customer", zap.Error(err))
				}
			}
			return user.ID, true
		} else if !apperrors.IsNoRows(err) {
			r.log.Warn("email lookup failed", zap.Error(err))
		}
	}
	if raw := strings.TrimSpace(refs.userID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, false
		}
		if _, err := r.users.FindByID(ctx, id); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
