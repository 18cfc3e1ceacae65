package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
)

func TestStripeCheckoutSessionParams(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	b := &StripeBilling{
		createCheckoutSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			captured = params
			return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
		},
	}

	session, err := b.CreateCheckoutSession(context.Background(), CheckoutParams{
		CustomerID: "cus_1",
		PriceID:    "price_1",
		UserID:     "user-1",
		SuccessURL: "https://app.example.com/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://app.example.com/subscription/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, session)

	require.NotNil(t, captured)
	assert.Equal(t, "subscription", *captured.Mode)
	assert.Equal(t, "cus_1", *captured.Customer)
	assert.Equal(t, "user-1", *captured.ClientReferenceID)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, "price_1", *captured.LineItems[0].Price)
	assert.EqualValues(t, 1, *captured.LineItems[0].Quantity)
	assert.Equal(t, "user-1", captured.SubscriptionData.Metadata["user_id"])
	assert.Equal(t, "user-1", captured.Metadata["user_id"])
	assert.NotNil(t, captured.Context)
}

func TestStripeErrorsAreUpstream(t *testing.T) {
	b := &StripeBilling{
		createCustomer: func(*stripe.CustomerParams) (*stripe.Customer, error) {
			return nil, errors.New("card_declined")
		},
		createPortalSession: func(*stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
			return nil, errors.New("no such customer")
		},
	}

	_, err := b.CreateCustomer(context.Background(), "a@example.com", map[string]string{"source": "mealbyme"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))

	_, err = b.CreatePortalSession(context.Background(), "cus_1", "https://app.example.com/profile")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}

func TestStripePortalSessionParams(t *testing.T) {
	var captured *stripe.BillingPortalSessionParams
	b := &StripeBilling{
		createPortalSession: func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
			captured = params
			return &stripe.BillingPortalSession{URL: "https://billing.example.com/p"}, nil
		},
	}

	url, err := b.CreatePortalSession(context.Background(), "cus_1", "https://app.example.com/profile")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.com/p", url)
	assert.Equal(t, "cus_1", *captured.Customer)
	assert.Equal(t, "https://app.example.com/profile", *captured.ReturnURL)
}
