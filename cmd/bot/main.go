// Command bot is the gacha event timer daemon: notification delivery worker,
// reconciliation cron, dashboard refresh timers, and the admin HTTP API.
//
// Usage:
//
//	gachatimer-bot
//	API_PORT=8080 gachatimer-bot

// @title Gacha Timer Admin API
// @version 1.0.0
// @description Admin and health endpoints for the game-event notification scheduler.
// @host localhost:8000
// @BasePath /
// @schemes http https
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/kanamidev/gachatimer/internal/api"
	"github.com/kanamidev/gachatimer/internal/config"
	"github.com/kanamidev/gachatimer/internal/db"
	"github.com/kanamidev/gachatimer/internal/discord"
	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
	"github.com/kanamidev/gachatimer/internal/notify"
	"github.com/kanamidev/gachatimer/internal/timers"

	_ "github.com/kanamidev/gachatimer/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Bootstrap(ctx); err != nil {
		logger.Error("Failed to bootstrap schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Wire the scheduling core
	games := game.Default()
	eventStore := event.NewStore(pool)
	notifStore := notify.NewStore(pool)
	taskStore := timers.NewTaskStore(pool)

	registry := timers.NewRegistry(taskStore, nil, logger, func(ctx context.Context, profile string) error {
		// Dashboard rendering lives with the Discord frontend; the
		// timer's job ends at firing on time.
		logger.Info("dashboard refresh due", "profile", profile)
		return nil
	})
	planner := timers.NewPlanner(registry, games, eventStore, nil, logger)

	scheduler := notify.NewScheduler(games, notifStore, nil, logger, planner.PlanProfile)
	reconciler := notify.NewReconciler(games, eventStore, notifStore, scheduler, nil, logger)
	eventSvc := event.NewService(eventStore, games, scheduler, notify.NewCascade(notifStore), nil, logger)

	// Rebuild persisted refresh timers, then plan from the live events
	if err := registry.Start(ctx); err != nil {
		logger.Error("Failed to rebuild timer registry", "error", err)
		os.Exit(1)
	}
	if err := planner.PlanAll(ctx); err != nil {
		logger.Warn("Initial timer planning failed", "error", err)
	}

	// Startup reconciliation pass
	if res, err := reconciler.Run(ctx); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
	} else {
		logger.Info("Startup reconciliation done",
			"ghosts", res.Ghosts, "fixed", res.Fixed)
	}

	// Delivery worker
	var sender notify.Sender
	if ws := discord.NewWebhookSender(cfg.WebhookURL, cfg.WebhookRateLimit, logger); ws != nil {
		sender = ws
	} else {
		sender = discord.NewLogSender(logger)
		logger.Info("No DISCORD_WEBHOOK_URL set, using log sender")
	}
	dispatcher := notify.NewDispatcher(notifStore, sender, logger, notify.DispatcherOptions{
		Interval:  cfg.DispatchInterval,
		Lookahead: cfg.DispatchLookahead,
		BatchSize: cfg.DispatchBatchSize,
		Roles:     cfg.MentionRoles,
	})
	go dispatcher.Run(ctx)

	// Periodic reconciliation and purge of elapsed events
	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileCron, func() {
		if _, err := reconciler.Run(ctx); err != nil {
			logger.Error("Scheduled reconciliation failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid RECONCILE_CRON", "cron", cfg.ReconcileCron, "error", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc("45 4 * * *", func() {
		if n, err := eventSvc.PurgeEnded(ctx); err != nil {
			logger.Error("Event purge failed", "error", err)
		} else if n > 0 {
			logger.Info("Purged elapsed events", "count", n)
		}
	}); err != nil {
		logger.Error("Failed to register purge job", "error", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// Admin API
	router := api.NewRouter(pool, games, eventStore, notifStore, reconciler, cfg, logger)
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting admin API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
