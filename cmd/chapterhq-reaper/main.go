// Command chapterhq-reaper performs a single reaping pass: it deletes every
// organization whose canceled subscription has passed the end of its grace
// period. Run it on a schedule (cron, systemd timer); it exits after one pass.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/chapterhq/chapterhq/internal/config"
	"github.com/chapterhq/chapterhq/pkg/billing"
	"github.com/chapterhq/chapterhq/pkg/lifecycle"
	"github.com/chapterhq/chapterhq/pkg/repository"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orgsRepo := repository.NewOrganizationsRepository(db)
	subsRepo := repository.NewSubscriptionsRepository(db)

	var payments billing.Provider
	if cfg.HasStripe() {
		payments = billing.NewStripeProvider(cfg.StripeAPIKey)
	} else {
		logger.Warn("stripe not configured, billing cancellation is a no-op")
		payments = billing.NewMockProvider()
	}

	workflow := lifecycle.NewDeletionWorkflow(subsRepo, payments, orgsRepo, logger)
	reaper := lifecycle.NewReaper(subsRepo, workflow, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	deleted, err := reaper.Run(ctx)
	if err != nil {
		logger.Error("reaper pass failed", "error", err)
		os.Exit(1)
	}

	logger.Info("reaper finished", "deleted", deleted)
}
