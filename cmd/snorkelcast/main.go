package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/snorkelcast/snorkelcast/internal/api/http"
	"github.com/snorkelcast/snorkelcast/internal/cache"
	"github.com/snorkelcast/snorkelcast/internal/config"
	"github.com/snorkelcast/snorkelcast/internal/forecast"
	"github.com/snorkelcast/snorkelcast/internal/forecast/openmeteo"
	"github.com/snorkelcast/snorkelcast/internal/history"
	"github.com/snorkelcast/snorkelcast/internal/scheduler"
)

func main() {
	// Load configuration (reads .env if present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// History store; a failure here degrades the fallback chain but does
	// not stop the service.
	var hist forecast.History
	var saver scheduler.Saver
	if cfg.HistoryDBPath != "" {
		store, err := history.Open(cfg.HistoryDBPath)
		if err != nil {
			log.Printf("history store unavailable, fallback disabled: %v", err)
		} else {
			defer store.Close()
			hist = store
			saver = store
		}
	}

	// Core engine: Open-Meteo adapter behind the tiered cache, history as
	// the last resort.
	source := openmeteo.NewClient(httpClient)
	store := cache.New[[]forecast.HourlyRecord]()
	engine := forecast.NewEngine(source, hist, store, forecast.DefaultThresholds(), forecast.Config{
		FreshTTL:    cfg.FreshTTL,
		StaleTTL:    cfg.StaleTTL,
		NegativeTTL: cfg.NegativeTTL,
	})

	// Scheduler that periodically sweeps the spot catalogue and builds
	// history.
	if cfg.SchedulerEnabled {
		sched := scheduler.New(cfg.Spots, cfg.SchedulerInterval, engine, saver)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	} else {
		log.Println("scheduler disabled via ENABLE_SCHEDULER")
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "snorkelcast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "snorkelcast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, engine)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
