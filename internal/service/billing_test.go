package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/testhelpers"
	"github.com/pageza/mealbyme/backend/internal/types"
)

func TestEnsureCustomerIsIdempotent(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	provider := &testhelpers.MockBillingProvider{}
	provider.On("FindCustomerByEmail", mock.Anything, "buyer@example.com").Return("", false, nil).Once()
	provider.On("CreateCustomer", mock.Anything, "buyer@example.com", mock.MatchedBy(func(m map[string]string) bool {
		return m["source"] == "mealbyme" && m["created_at"] != ""
	})).Return("cus_123", nil).Once()
	provider.On("FindCustomerByEmail", mock.Anything, "buyer@example.com").Return("cus_123", true, nil).Once()

	svc := service.NewBillingService(provider, service.NewAuthService(db, "secret", zap.NewNop()), service.BillingConfig{}, zap.NewNop())

	first, err := svc.EnsureCustomer(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, &types.CreateCustomerResponse{CustomerID: "cus_123", IsExisting: false}, first)

	second, err := svc.EnsureCustomer(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, &types.CreateCustomerResponse{CustomerID: "cus_123", IsExisting: true}, second)

	provider.AssertExpectations(t)
}

func TestEnsureCustomerRequiresEmail(t *testing.T) {
	provider := &testhelpers.MockBillingProvider{}
	svc := service.NewBillingService(provider, nil, service.BillingConfig{}, zap.NewNop())

	_, err := svc.EnsureCustomer(context.Background(), " ")

	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Email is required", appErr.Message)
	assert.Equal(t, "invalid_request_error", appErr.Type())
	provider.AssertNotCalled(t, "FindCustomerByEmail", mock.Anything, mock.Anything)
}

func TestEnsureCustomerSurfacesUpstreamErrors(t *testing.T) {
	provider := &testhelpers.MockBillingProvider{}
	provider.On("FindCustomerByEmail", mock.Anything, "buyer@example.com").
		Return("", false, apperrors.Upstream("Failed to look up billing customer", errors.New("connection reset")))
	svc := service.NewBillingService(provider, nil, service.BillingConfig{}, zap.NewNop())

	_, err := svc.EnsureCustomer(context.Background(), "buyer@example.com")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}

func TestCreateCheckoutStoresCustomerAndTagsUser(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "buyer@example.com")
	provider := &testhelpers.MockBillingProvider{}
	provider.On("FindCustomerByEmail", mock.Anything, "buyer@example.com").Return("", false, nil)
	provider.On("CreateCustomer", mock.Anything, "buyer@example.com", mock.Anything).Return("cus_new", nil)
	provider.On("CreateCheckoutSession", mock.Anything, service.CheckoutParams{
		CustomerID: "cus_new",
		PriceID:    "price_premium",
		UserID:     user.ID.String(),
		SuccessURL: "https://app.example.com/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://app.example.com/subscription/cancel",
	}).Return(&service.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil)

	svc := service.NewBillingService(provider, service.NewAuthService(db, "secret", zap.NewNop()),
		service.BillingConfig{PriceID: "price_premium", AppURL: "https://app.example.com/"}, zap.NewNop())

	resp, err := svc.CreateCheckout(context.Background(), &types.AuthUser{ID: user.ID, Email: user.Email}, "https://evil.example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, "https://checkout.example.com/cs_1", resp.URL)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "cus_new", stored.StripeCustomerID)
	provider.AssertExpectations(t)
}

func TestCreatePortalFailsClosedWithoutCustomer(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.SeedUser(t, db, "buyer@example.com")
	provider := &testhelpers.MockBillingProvider{}
	svc := service.NewBillingService(provider, service.NewAuthService(db, "secret", zap.NewNop()),
		service.BillingConfig{AppURL: "https://app.example.com"}, zap.NewNop())

	_, err := svc.CreatePortal(context.Background(), user.ID, "", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("stripe_customer_id", "cus_9").Error)
	provider.On("CreatePortalSession", mock.Anything, "cus_9", "https://app.example.com/profile").Return("https://billing.example.com/p", nil)

	url, err := svc.CreatePortal(context.Background(), user.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.com/p", url)
}
