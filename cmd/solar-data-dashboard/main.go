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

	httpapi "github.com/dagim-a/solar-data-dashboard/internal/api/http"
	"github.com/dagim-a/solar-data-dashboard/internal/catalog"
	"github.com/dagim-a/solar-data-dashboard/internal/config"
	"github.com/dagim-a/solar-data-dashboard/internal/geo"
	"github.com/dagim-a/solar-data-dashboard/internal/remote"
	"github.com/dagim-a/solar-data-dashboard/internal/scheduler"
	"github.com/dagim-a/solar-data-dashboard/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dataset catalog over the data directory, kept current by a watcher
	// plus a periodic rescan.
	cat, err := catalog.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open data directory: %v", err)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := cat.Watch(watchCtx); err != nil {
			log.Printf("catalog watcher stopped: %v", err)
		}
	}()

	sched := scheduler.New(cat, cfg.RescanInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// In-memory session store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxSessions, cfg.StoreMaxAge)

	// Shared HTTP client for outbound dataset downloads.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	fetcher := remote.NewFetcher(httpClient, cfg.DataDir)

	locator := geo.NewLocator(cfg.GeocoderAPIKey)
	if !locator.Enabled() {
		log.Printf("INFO: site geocoding disabled (GEOCODER_API_KEY not set)")
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "solar-data-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
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
			"service": "solar-data-dashboard",
		})
	})

	// Dashboard and API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Catalog: cat,
		Store:   memStore,
		Fetcher: fetcher,
		Locator: locator,
		Defaults: httpapi.Defaults{
			MissingThreshold:     cfg.MissingThreshold,
			ZScoreThreshold:      cfg.ZScoreThreshold,
			CorrelationThreshold: cfg.CorrelationThreshold,
			HistogramBins:        cfg.HistogramBins,
		},
	})

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
