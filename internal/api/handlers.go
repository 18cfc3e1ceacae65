package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/mealbyme/backend/internal/database"
	"github.com/pageza/mealbyme/backend/internal/middleware"
)

// Handlers groups every route handler the server mounts.
type Handlers struct {
	Billing  *BillingHandler
	Webhook  *WebhookHandler
	MealPlan *MealPlanHandler
	Recipe   *RecipeHandler
	Account  *AccountHandler
	Health   *HealthHandler
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, h Handlers, auth middleware.Authenticator) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(MethodNotAllowed)
	router.NoRoute(NotFound)

	// Health check and metrics (no auth required)
	router.GET("/health", h.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	h.Billing.RegisterPublicRoutes(v1)
	h.Webhook.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(auth))
	{
		h.Billing.RegisterRoutes(protected)
		h.MealPlan.RegisterRoutes(protected)
		h.Recipe.RegisterRoutes(protected)
		h.Account.RegisterRoutes(protected)
	}
}

// HealthHandler reports database and Redis reachability.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Check returns the health status of the API
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	healthy := true
	if err := database.HealthCheck(ctx, h.db); err != nil {
		checks["database"] = "unreachable"
		healthy = false
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
