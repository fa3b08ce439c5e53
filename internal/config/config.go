// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// SecretKey is the 32-byte AES-256 key for credential encryption, or nil
	// when CLOUDLENS_SECRET_KEY is unset and credential storage is disabled.
	SecretKey []byte

	ListenAddr    string
	DBPath        string
	CacheTTL      time.Duration
	RefreshHour   int
	SweepInterval time.Duration

	// Defaults for anonymous cloud resolution. Each may be empty, in which
	// case the provider SDK's own discovery applies.
	AWSRegion           string
	AzureSubscriptionID string
	GCPProjectID        string
}

// HasSecretKey returns true when credential storage is enabled.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// Load reads configuration from the environment (and a .env file when one is
// present) and returns a validated Config.
// CLOUDLENS_SECRET_KEY is optional; if absent, the app starts but credential
// storage is disabled and every request uses the default credential chains.
// Optional variables with defaults: CLOUDLENS_LISTEN_ADDR (127.0.0.1:8080),
// CLOUDLENS_DB_PATH (cloudlens.db), CLOUDLENS_CACHE_TTL (24h),
// CLOUDLENS_REFRESH_HOUR (8), CLOUDLENS_SWEEP_INTERVAL (1h).
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a complete source.
	_ = godotenv.Load()

	var secretKey []byte
	if v, ok := os.LookupEnv("CLOUDLENS_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("CLOUDLENS_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("CLOUDLENS_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CLOUDLENS_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "cloudlens.db"
	if v, ok := os.LookupEnv("CLOUDLENS_DB_PATH"); ok {
		dbPath = v
	}

	cacheTTL := 24 * time.Hour
	if v, ok := os.LookupEnv("CLOUDLENS_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CLOUDLENS_CACHE_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("CLOUDLENS_CACHE_TTL must be positive, got %q", v)
		}
		cacheTTL = parsed
	}

	refreshHour := 8
	if v, ok := os.LookupEnv("CLOUDLENS_REFRESH_HOUR"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CLOUDLENS_REFRESH_HOUR has invalid value %q: %w", v, err)
		}
		if parsed < 0 || parsed > 23 {
			return nil, fmt.Errorf("CLOUDLENS_REFRESH_HOUR must be 0-23, got %d", parsed)
		}
		refreshHour = parsed
	}

	sweepInterval := time.Hour
	if v, ok := os.LookupEnv("CLOUDLENS_SWEEP_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CLOUDLENS_SWEEP_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("CLOUDLENS_SWEEP_INTERVAL must be positive, got %q", v)
		}
		sweepInterval = parsed
	}

	return &Config{
		SecretKey:           secretKey,
		ListenAddr:          listenAddr,
		DBPath:              dbPath,
		CacheTTL:            cacheTTL,
		RefreshHour:         refreshHour,
		SweepInterval:       sweepInterval,
		AWSRegion:           os.Getenv("AWS_REGION"),
		AzureSubscriptionID: os.Getenv("AZURE_SUBSCRIPTION_ID"),
		GCPProjectID:        os.Getenv("GCP_PROJECT_ID"),
	}, nil
}
