package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

// RecipeHandler handles single-recipe generation and saved recipes.
type RecipeHandler struct {
	recipes       *service.RecipeService
	subscriptions *service.SubscriptionService
}

func NewRecipeHandler(recipes *service.RecipeService, subs *service.SubscriptionService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, subscriptions: subs}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.POST("/generate", h.Generate)
		recipes.GET("/saved", h.ListSaved)
		recipes.POST("/saved", h.Save)
		recipes.DELETE("/saved/:id", h.DeleteSaved)
	}
}

// Generate produces one recipe and reports the caller's usage for the day.
func (h *RecipeHandler) Generate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.GenerateRecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe, err := h.recipes.Generate(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status, err := h.subscriptions.Status(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipe":           recipe,
		"dailyGenerations": status.DailyGenerations,
	})
}

func (h *RecipeHandler) ListSaved(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	recipes, err := h.recipes.ListSaved(c.Request.Context(), user.ID, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Save(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.SaveRecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	saved, err := h.recipes.SaveRecipe(c.Request.Context(), user.ID, req.Recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *RecipeHandler) DeleteSaved(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.DeleteSaved(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
