package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the table agent's settings.
type Config struct {
	DatabaseURL string
	ServerPort  int
	DataDir     string
	DeviceName  string
	CORSOrigin  string

	PointerPoll    time.Duration
	MatchPoll      time.Duration
	LivePoll       time.Duration
	LiveStaleAfter time.Duration
}

// Load reads configuration from the environment, optionally seeded
// from a .env file (handy for local development, never required).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	deviceName := os.Getenv("DEVICE_NAME")
	if deviceName == "" {
		deviceName, _ = os.Hostname()
	}

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	cfg := &Config{
		DatabaseURL: dbURL,
		ServerPort:  port,
		DataDir:     dataDir,
		DeviceName:  deviceName,
		CORSOrigin:  corsOrigin,
	}

	if cfg.PointerPoll, err = durationEnv("POINTER_POLL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MatchPoll, err = durationEnv("MATCH_POLL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LivePoll, err = durationEnv("LIVE_POLL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.LiveStaleAfter, err = durationEnv("LIVE_STALE_AFTER", 2*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return d, nil
}
