package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime configuration for the dashboard.
type AppConfig struct {
	// DataDir is the directory scanned for measurement CSV files.
	DataDir string

	// Default analysis thresholds. Each can be overridden per request.
	MissingThreshold     float64 // percent of missing values that flags a column
	ZScoreThreshold      float64 // |z| above which a row counts as an outlier
	CorrelationThreshold float64 // |r| above which a pair counts as strong
	HistogramBins        int

	// RescanInterval controls how often the dataset catalog is rescanned.
	RescanInterval time.Duration

	// Session store retention.
	StoreMaxSessions int           // max number of analysis sessions (0 = unlimited)
	StoreMaxAge      time.Duration // max age of a session (0 = unlimited)

	// HTTPTimeout applies to outbound requests (remote dataset fetch).
	HTTPTimeout time.Duration

	// GeocoderAPIKey enables the site-location card when set.
	GeocoderAPIKey string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DataDir = getenvDefault("DATA_DIR", "data")

	var err error
	if cfg.MissingThreshold, err = getenvFloat("MISSING_THRESHOLD", 5.0); err != nil {
		return nil, err
	}
	if cfg.ZScoreThreshold, err = getenvFloat("ZSCORE_THRESHOLD", 3.0); err != nil {
		return nil, err
	}
	if cfg.CorrelationThreshold, err = getenvFloat("CORRELATION_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	cfg.HistogramBins = getenvInt("HISTOGRAM_BINS", 50)
	if cfg.HistogramBins <= 0 {
		return nil, fmt.Errorf("HISTOGRAM_BINS must be positive")
	}

	// Catalog rescan interval: default 15 minutes.
	intervalStr := getenvDefault("RESCAN_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RESCAN_INTERVAL: %w", err)
	}
	cfg.RescanInterval = interval

	// Session retention.
	cfg.StoreMaxSessions = getenvInt("STORE_MAX_SESSIONS", 16)

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Port = getenvDefault("PORT", "8080")

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

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
