package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/config"
	"github.com/pageza/mealbyme/backend/internal/database"
	"github.com/pageza/mealbyme/backend/internal/logger"
)

func main() {
	// Parse command line flags
	dir := flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dir != "" {
		cfg.MigrationsDir = *dir
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

	if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
		zl.Fatal("Migration failed", zap.Error(err))
	}
	zl.Info("All migrations applied", zap.String("dir", cfg.MigrationsDir))
}
