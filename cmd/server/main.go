package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/socialclone/server/internal/config"
	"github.com/socialclone/server/internal/domain"
	"github.com/socialclone/server/internal/httpserver"
	"github.com/socialclone/server/internal/jira"
	"github.com/socialclone/server/internal/metrics"
	"github.com/socialclone/server/internal/postgres"
	"github.com/socialclone/server/internal/slack"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to database")

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	if err := repo.Init(initCtx); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	logger.Info("database initialized")

	// Integration clients are optional capabilities: constructed only when
	// their configuration is present, nil otherwise.
	var notifier domain.Notifier
	if cfg.SlackEnabled() {
		notifier = slack.NewClient(cfg.SlackWebhookURL)
	}
	var tracker domain.IssueTracker
	if cfg.JiraEnabled() {
		tracker = jira.NewClient(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken)
	}
	logger.Info("integrations resolved",
		"slack", cfg.SlackEnabled(),
		"jira", cfg.JiraEnabled(),
	)

	m := metrics.New()

	posts := domain.NewPostService(repo, notifier, tracker, m, logger, domain.PostServiceConfig{
		ProjectKey:         cfg.JiraProjectKey,
		NotifyNewPosts:     cfg.NotifyNewPosts,
		NotifyIssueCreated: cfg.NotifyIssueCreated,
	})

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	server := httpserver.NewServer(cfg, posts, m, logger)
	go server.TrackActiveUsers(ctx, time.Minute)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "environment", cfg.Environment)

	if notifier != nil && cfg.Environment == "development" {
		go func() {
			// Give the rest of the stack a moment before announcing.
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			if err := notifier.SendSimpleMessage(ctx, "SocialClone backend started successfully"); err != nil {
				logger.Error("startup notification failed", "error", err)
			}
		}()
	}

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
