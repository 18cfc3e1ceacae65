package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

type MealPlanHandler struct {
	plans            *service.MealPlanService
	submitMiddleware []gin.HandlerFunc
}

// NewMealPlanHandler creates the handler. Extra middleware, such as a rate
// limiter, runs in front of submissions only.
func NewMealPlanHandler(plans *service.MealPlanService, submitMiddleware ...gin.HandlerFunc) *MealPlanHandler {
	return &MealPlanHandler{plans: plans, submitMiddleware: submitMiddleware}
}

func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/meal-plans")
	{
		plans.POST("", append(append([]gin.HandlerFunc{}, h.submitMiddleware...), h.Submit)...)
		plans.GET("", h.List)
		plans.GET("/poll", h.Poll)
		plans.GET("/:id", h.Get)
	}
}

// Submit starts a meal plan generation (or a single-meal swap) and returns
// the job handle.
func (h *MealPlanHandler) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.SubmitMealPlanRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.plans.Submit(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Poll checks a generation once. 202 while the run is in flight, 200 with
// the plan once it is materialized.
func (h *MealPlanHandler) Poll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.PollMealPlanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apperrors.Validation("Invalid poll parameters"))
		return
	}
	if raw := c.Query("mealPlanId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, apperrors.Validation("Invalid mealPlanId"))
			return
		}
		req.MealPlanID = id
	}

	outcome, err := h.plans.Poll(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if outcome.Status != service.OutcomeReady {
		c.JSON(http.StatusAccepted, gin.H{"status": outcome.Status, "mealPlanId": outcome.MealPlanID})
		return
	}
	c.JSON(http.StatusOK, outcome.MealPlan)
}

func (h *MealPlanHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	plans, err := h.plans.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mealPlans": plans})
}

func (h *MealPlanHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
