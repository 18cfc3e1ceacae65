package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// AccountHandler serves the caller's preferences and subscription status.
type AccountHandler struct {
	preferences   *service.PreferencesService
	subscriptions *service.SubscriptionService
}

func NewAccountHandler(prefs *service.PreferencesService, subs *service.SubscriptionService) *AccountHandler {
	return &AccountHandler{preferences: prefs, subscriptions: subs}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/preferences", h.GetPreferences)
	router.PUT("/preferences", h.UpdatePreferences)
	router.GET("/subscription", h.GetSubscription)
}

func (h *AccountHandler) GetPreferences(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	pref, err := h.preferences.Get(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *AccountHandler) UpdatePreferences(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.UpdatePreferencesRequest
	if !bindJSON(c, &req) {
		return
	}
	pref, err := h.preferences.Update(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *AccountHandler) GetSubscription(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	status, err := h.subscriptions.Status(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
