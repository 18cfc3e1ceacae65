package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// CheckoutParams describes a subscription checkout for one user.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the hosted checkout a browser is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// BillingProvider is the external billing service.
type BillingProvider interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, bool, error)
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// StripeBilling implements BillingProvider on the Stripe API.
type StripeBilling struct {
	listCustomers         func(params *stripe.CustomerListParams) *customer.Iter
	createCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// NewStripeBilling sets the process-wide Stripe key and returns a provider.
func NewStripeBilling(secretKey string) *StripeBilling {
	stripe.Key = strings.TrimSpace(secretKey)
	return &StripeBilling{
		listCustomers:         customer.List,
		createCustomer:        customer.New,
		createCheckoutSession: stripesession.New,
		createPortalSession:   portalsession.New,
	}
}

func (b *StripeBilling) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	iter := b.listCustomers(params)
	if iter.Next() {
		return iter.Customer().ID, true, nil
	}
	if err := iter.Err(); err != nil {
		return "", false, apperrors.Upstream("Failed to look up billing customer", err)
	}
	return "", false, nil
}

func (b *StripeBilling) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	c, err := b.createCustomer(params)
	if err != nil {
		return "", apperrors.Upstream("Failed to create billing customer", err)
	}
	return c.ID, nil
}

func (b *StripeBilling) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.UserID),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": p.UserID},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", p.UserID)

	s, err := b.createCheckoutSession(params)
	if err != nil {
		return nil, apperrors.Upstream("Failed to create checkout session", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (b *StripeBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := b.createPortalSession(params)
	if err != nil {
		return "", apperrors.Upstream("Failed to create portal session", err)
	}
	return s.URL, nil
}

// BillingConfig carries the price and the public URL used to build
// redirect targets.
type BillingConfig struct {
	PriceID string
	AppURL  string
}

// BillingService implements the privileged billing operations.
type BillingService struct {
	provider BillingProvider
	users    *AuthService
	cfg      BillingConfig
	now      func() time.Time
	log      *zap.Logger
}

func NewBillingService(provider BillingProvider, users *AuthService, cfg BillingConfig, log *zap.Logger) *BillingService {
	return &BillingService{
		provider: provider,
		users:    users,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// EnsureCustomer returns the billing customer for email, creating one only
// when none exists. Repeated calls return the same customer.
func (s *BillingService) EnsureCustomer(ctx context.Context, email string) (*types.CreateCustomerResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.Validation("Email is required")
	}

	id, found, err := s.provider.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return &types.CreateCustomerResponse{CustomerID: id, IsExisting: true}, nil
	}

	id, err = s.provider.CreateCustomer(ctx, email, map[string]string{
		"source":     "mealbyme",
		"created_at": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("billing customer created", zap.String("customer_id", id))
	return &types.CreateCustomerResponse{CustomerID: id, IsExisting: false}, nil
}

// CreateCheckout resolves or creates the user's billing customer, stores it
// on the user record and opens a subscription checkout.
func (s *BillingService) CreateCheckout(ctx context.Context, user *types.AuthUser, origin string) (*types.CheckoutSessionResponse, error) {
	record, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	customerID := record.StripeCustomerID
	if customerID == "" {
		resolved, err := s.EnsureCustomer(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		customerID = resolved.CustomerID
		if err := s.users.UpdateStripeCustomerID(ctx, user.ID, customerID); err != nil {
			return nil, err
		}
	}

	base := s.baseURL(origin)
	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.cfg.PriceID,
		UserID:     user.ID.String(),
		SuccessURL: base + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/subscription/cancel",
	})
	if err != nil {
		return nil, err
	}
	return &types.CheckoutSessionResponse{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortal opens a self-service billing session. It never creates a
// billing customer.
func (s *BillingService) CreatePortal(ctx context.Context, userID uuid.UUID, returnURL, origin string) (string, error) {
	record, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if record.StripeCustomerID == "" {
		return "", apperrors.NotFound("No billing customer on record")
	}
	if strings.TrimSpace(returnURL) == "" {
		returnURL = s.baseURL(origin) + "/profile"
	}
	return s.provider.CreatePortalSession(ctx, record.StripeCustomerID, returnURL)
}

// baseURL prefers the configured app URL; the request origin is used only
// when none is configured.
func (s *BillingService) baseURL(origin string) string {
	if app := strings.TrimSpace(s.cfg.AppURL); app != "" {
		return strings.TrimRight(app, "/")
	}
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}
