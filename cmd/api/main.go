package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/api"
	"github.com/pageza/mealbyme/backend/internal/database"
	"github.com/pageza/mealbyme/backend/internal/logger"
	"github.com/pageza/mealbyme/backend/internal/middleware"
	"github.com/pageza/mealbyme/backend/internal/server"
	"github.com/pageza/mealbyme/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// Initialize database
	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	var ledger service.JobLedger = service.NewMemoryJobLedger()
	if redisClient != nil {
		ledger = service.NewRedisJobLedger(redisClient)
	} else {
		zl.Warn("Redis not configured; job state is kept in process memory")
	}

	var archive service.PayloadArchive = service.NopArchive{}
	s3cfg, err := config.NewS3Config(context.Background(), cfg)
	if err != nil {
		zl.Fatal("Failed to initialize S3", zap.Error(err))
	}
	if s3cfg != nil {
		archive = service.NewS3PayloadArchive(s3cfg.Client, s3cfg.BucketName, zl)
	}

	// Initialize services
	client := service.NewAssistantClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, zl)
	poller := service.NewPoller(client, service.PollerConfig{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	}, zl)
	authService := service.NewAuthService(db, cfg.JWTSecret, zl)
	subscriptions := service.NewSubscriptionService(db, cfg.FreeDailyGenerations, zl)
	preferences := service.NewPreferencesService(db)

	mealPlans := service.NewMealPlanService(service.MealPlanDeps{
		DB:            db,
		Client:        client,
		Poller:        poller,
		Materializer:  service.NewMaterializer(db, zl),
		Ledger:        ledger,
		Archive:       archive,
		Subscriptions: subscriptions,
		AssistantID:   cfg.MealPlanAssistantID,
		Logger:        zl,
	})
	recipes := service.NewRecipeService(db, client, poller, subscriptions, preferences, service.RecipeConfig{
		AssistantID:      cfg.RecipeAssistantID,
		FreeDailyLimit:   cfg.FreeDailyGenerations,
		FreeSavedRecipes: cfg.FreeSavedRecipes,
	}, zl)
	billing := service.NewBillingService(service.NewStripeBilling(cfg.StripeSecretKey), authService, service.BillingConfig{
		PriceID: cfg.StripePriceID,
		AppURL:  cfg.AppURL,
	}, zl)
	reconciler := service.NewReconciler(authService, subscriptions, zl)

	submitLimiter := middleware.NewSubmissionRateLimiter(redisClient, zl)

	handlers := api.Handlers{
		Billing:  api.NewBillingHandler(billing),
		Webhook:  api.NewWebhookHandler(cfg.StripeWebhookSecret, reconciler, zl),
		MealPlan: api.NewMealPlanHandler(mealPlans, submitLimiter.RateLimitMiddleware()),
		Recipe:   api.NewRecipeHandler(recipes, subscriptions),
		Account:  api.NewAccountHandler(preferences, subscriptions),
		Health:   api.NewHealthHandler(db, redisClient),
	}

	// Create and start server
	srv := server.New(cfg, handlers, authService, service.NewSweeper(db, cfg.ProvisionalPlanTTL, zl), zl)
	if err := srv.Start(); err != nil {
		zl.Fatal("Server error", zap.Error(err))
	}
	zl.Info("Server stopped")
}
