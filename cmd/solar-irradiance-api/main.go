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

	httpapi "github.com/pvlabs/solar-irradiance-api/internal/api/http"
	"github.com/pvlabs/solar-irradiance-api/internal/climate"
	"github.com/pvlabs/solar-irradiance-api/internal/config"
	"github.com/pvlabs/solar-irradiance-api/internal/forecast"
	"github.com/pvlabs/solar-irradiance-api/internal/health"
	"github.com/pvlabs/solar-irradiance-api/internal/openmeteo"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// The regression model is loaded once and shared read-only across requests.
	model, err := forecast.LoadXGBRegressor(cfg.ModelPath)
	if err != nil {
		log.Fatalf("failed to load forecast model: %v", err)
	}

	// Upstream clients.
	climateClient := climate.NewClient(httpClient, cfg.NASAPowerBaseURL, cfg.UpstreamMaxRetries)
	weatherClient := openmeteo.NewClient(httpClient, cfg.OpenMeteoBaseURL, cfg.UpstreamMaxRetries)

	// Forecast pipeline.
	forecastService := forecast.NewService(weatherClient, model, cfg.ForecastMaxHorizon)

	// Periodic upstream reachability probes for /health.
	probeStore := health.NewStore()
	prober := health.NewProber(httpClient, []health.Target{
		{Name: "nasa-power", URL: cfg.NASAPowerBaseURL},
		{Name: "open-meteo", URL: cfg.OpenMeteoBaseURL},
	}, cfg.HealthProbeInterval, probeStore)
	if err := prober.Start(); err != nil {
		log.Fatalf("failed to start health prober: %v", err)
	}
	defer prober.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "solar-irradiance-api",
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
				"detail": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "solar-irradiance-api",
			"upstreams": probeStore.All(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, climateClient, forecastService, cfg.DefaultCommunity)

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
