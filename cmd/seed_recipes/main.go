package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/database"
	"github.com/pageza/mealbyme/backend/internal/logger"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

var recipePrompts = []string{
	"A traditional Italian pasta with a unique twist",
	"A healthy vegan salad with seasonal ingredients",
	"A quick breakfast smoothie with protein",
	"A spicy Indian curry with a modern twist",
	"A gluten-free bread with alternative flours",
	"A Mediterranean seafood dish with fresh herbs",
	"A vegetarian stir-fry with Asian flavors",
	"A Thai soup with bold flavors",
	"A Korean BBQ dish with a homemade marinade",
	"A Moroccan stew with aromatic spices",
	"Something quick and easy for busy weeknights",
	"A dish that is good for meal prep and batch cooking",
	"A recipe using only pantry staples",
	"A kid-friendly and nutritious dinner",
	"A budget-friendly lunch",
}

func main() {
	email := flag.String("email", "premium.user@example.com", "User that receives the saved recipes")
	count := flag.Int("count", 5, "Number of recipes to generate")
	delay := flag.Duration("delay", 2*time.Second, "Pause between generations")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize services
	client := service.NewAssistantClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, zl)
	poller := service.NewPoller(client, service.PollerConfig{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	}, zl)
	auth := service.NewAuthService(db, cfg.JWTSecret, zl)
	subs := service.NewSubscriptionService(db, cfg.FreeDailyGenerations, zl)
	recipes := service.NewRecipeService(db, client, poller, subs, service.NewPreferencesService(db), service.RecipeConfig{
		AssistantID:      cfg.RecipeAssistantID,
		FreeDailyLimit:   cfg.FreeDailyGenerations,
		FreeSavedRecipes: cfg.FreeSavedRecipes,
	}, zl)

	ctx := context.Background()
	user, err := auth.FindByEmail(ctx, *email)
	if err != nil {
		zl.Fatal("Seed user not found; run seed_test_users first", zap.String("email", *email), zap.Error(err))
	}

	saved := 0
	for i := 0; i < *count; i++ {
		prompt := recipePrompts[i%len(recipePrompts)]
		recipe, err := recipes.Generate(ctx, user.ID, types.GenerateRecipeRequest{
			Prompt:               prompt,
			Servings:             2,
			UseStoredPreferences: true,
		})
		if err != nil {
			zl.Warn("Failed to generate recipe", zap.String("prompt", prompt), zap.Error(err))
			continue
		}

		if _, err := recipes.SaveRecipe(ctx, user.ID, *recipe); err != nil {
			zl.Warn("Failed to save recipe", zap.String("title", recipe.Title), zap.Error(err))
			continue
		}
		saved++
		zl.Info("Saved recipe", zap.String("title", recipe.Title))

		if i < *count-1 {
			time.Sleep(*delay)
		}
	}

	zl.Info("Seeding finished", zap.Int("saved", saved), zap.Int("requested", *count))
}
