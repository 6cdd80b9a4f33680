package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// HTTPTimeout bounds every outbound call to an upstream provider.
	HTTPTimeout time.Duration

	// ForecastMaxHorizon is the longest span a forecast request may cover,
	// measured from start to end.
	ForecastMaxHorizon time.Duration

	// ModelPath points at the serialized regression model artifact.
	ModelPath string

	NASAPowerBaseURL string
	OpenMeteoBaseURL string

	// DefaultCommunity is the NASA POWER community tag used when the
	// caller does not supply one.
	DefaultCommunity string

	// HealthProbeInterval controls how often upstream reachability is probed.
	HealthProbeInterval time.Duration

	// UpstreamMaxRetries controls retry attempts on outbound calls.
	// The service is a per-request passthrough, so the default is 0.
	UpstreamMaxRetries int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.ModelPath = getenvDefault("MODEL_PATH", "models/irradiance_forecast_model.bin")
	cfg.NASAPowerBaseURL = getenvDefault("NASA_POWER_BASE_URL", "https://power.larc.nasa.gov")
	cfg.OpenMeteoBaseURL = getenvDefault("OPEN_METEO_BASE_URL", "https://api.open-meteo.com")
	cfg.DefaultCommunity = getenvDefault("NASA_POWER_COMMUNITY", "RE")
	cfg.UpstreamMaxRetries = getenvInt("UPSTREAM_MAX_RETRIES", 0)

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Maximum forecast horizon: default 10 days.
	horizonStr := getenvDefault("FORECAST_MAX_HORIZON", "240h")
	horizon, err := time.ParseDuration(horizonStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_MAX_HORIZON: %w", err)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("FORECAST_MAX_HORIZON must be positive, got %s", horizon)
	}
	cfg.ForecastMaxHorizon = horizon

	probeStr := getenvDefault("HEALTH_PROBE_INTERVAL", "5m")
	probe, err := time.ParseDuration(probeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HEALTH_PROBE_INTERVAL: %w", err)
	}
	cfg.HealthProbeInterval = probe

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
