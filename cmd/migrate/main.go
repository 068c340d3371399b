package main

import (
	"context"
	"os"
	"time"

	"github.com/bl8ckfz/futures-alert-bot/internal/config"
	"github.com/bl8ckfz/futures-alert-bot/pkg/database"
	"github.com/bl8ckfz/futures-alert-bot/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	logger := observability.NewLogger("migrate", observability.LevelInfo)
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}
	if cfg.Infra.PostgresURL == "" {
		logger.Error("POSTGRES_URL is required", nil)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Infra.PostgresURL, 1, logger.Zerolog())
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer database.Close(pool)

	logger.Info("Connected to database, running migrations...")

	migrations := []string{
		database.AlertHistoryDDL,
		database.AlertHistoryIndex,
	}

	failed := 0
	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			logger.Error("Migration failed", err)
			failed++
			continue
		}
		logger.Info("✓ Success")
	}

	if failed > 0 {
		logger.Warn("Some migrations failed")
		database.Close(pool)
		os.Exit(1)
	}
	logger.Info("All migrations completed")
}
