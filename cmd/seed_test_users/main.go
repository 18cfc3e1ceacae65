package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/database"
	"github.com/pageza/mealbyme/backend/internal/models"
	"github.com/pageza/mealbyme/backend/internal/service"
	"github.com/pageza/mealbyme/backend/internal/types"
)

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed bearer tokens")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := zap.NewNop()
	db, err := database.New(cfg, zl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	auth := service.NewAuthService(db, cfg.JWTSecret, zl)
	subs := service.NewSubscriptionService(db, cfg.FreeDailyGenerations, zl)
	prefs := service.NewPreferencesService(db)
	ctx := context.Background()

	// Free and subscribed users, some with stored preferences
	testUsers := []struct {
		email       string
		subscribed  bool
		preferences *types.UpdatePreferencesRequest
	}{
		{email: "free.user@example.com"},
		{
			email: "free.vegetarian@example.com",
			preferences: &types.UpdatePreferencesRequest{
				DietaryRestrictions: []string{"vegetarian"},
				DislikedIngredients: []string{"olives"},
			},
		},
		{email: "premium.user@example.com", subscribed: true},
		{
			email:      "premium.athlete@example.com",
			subscribed: true,
			preferences: &types.UpdatePreferencesRequest{
				FavoriteIngredients: []string{"chicken", "quinoa"},
				DislikedIngredients: []string{"cilantro"},
			},
		},
	}

	log.Println("Creating test users...")

	for _, u := range testUsers {
		user := models.User{ID: uuid.New(), Email: u.email}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&user).Error
		if err != nil {
			log.Printf("Failed to create user %s: %v", u.email, err)
			continue
		}
		existing, err := auth.FindByEmail(ctx, u.email)
		if err != nil {
			log.Printf("Failed to load user %s: %v", u.email, err)
			continue
		}

		if u.subscribed {
			if err := subs.Upsert(ctx, &models.Subscription{UserID: existing.ID, Status: models.SubscriptionActive}); err != nil {
				log.Printf("Failed to activate subscription for %s: %v", u.email, err)
				continue
			}
		}
		if u.preferences != nil {
			if _, err := prefs.Update(ctx, existing.ID, *u.preferences); err != nil {
				log.Printf("Failed to store preferences for %s: %v", u.email, err)
			}
		}

		token, err := auth.IssueToken(existing.ID, existing.Email, *tokenTTL)
		if err != nil {
			log.Printf("Failed to issue token for %s: %v", u.email, err)
			continue
		}

		plan := "free"
		if u.subscribed {
			plan = "premium"
		}
		log.Printf("✅ %s (%s)\n   Authorization: Bearer %s", u.email, plan, token)
	}

	var total, active int64
	db.Model(&models.User{}).Count(&total)
	db.Model(&models.Subscription{}).Where("status = ?", models.SubscriptionActive).Count(&active)

	log.Printf("📧 Total users: %d", total)
	log.Printf("💳 Active subscriptions: %d", active)
}
