package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// BillingHandler exposes the billing proxies.
type BillingHandler struct {
	billing *service.BillingService
}

func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// RegisterPublicRoutes mounts the unauthenticated customer proxy.
func (h *BillingHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/billing/customers", h.CreateCustomer)
}

func (h *BillingHandler) RegisterRoutes(router *gin.RouterGroup) {
	billing := router.Group("/billing")
	{
		billing.POST("/checkout-session", h.CreateCheckoutSession)
		billing.POST("/portal-session", h.CreatePortalSession)
	}
}

// CreateCustomer returns the billing customer for an email, creating it if needed.
func (h *BillingHandler) CreateCustomer(c *gin.Context) {
	var req types.CreateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.billing.EnsureCustomer(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	resp, err := h.billing.CreateCheckout(c.Request.Context(), user, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	// the body is optional
	var req types.PortalSessionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	url, err := h.billing.CreatePortal(c.Request.Context(), user.ID, req.ReturnURL, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
