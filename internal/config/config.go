// Package config loads the service configuration from an optional JSON file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Duration is a time.Duration written as a Go duration string in JSON.
type Duration time.Duration

// UnmarshalJSON parses values such as "168h".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the application configuration.
type Config struct {
	ListenAddr        string   `json:"listen_addr"`
	DatabaseDriver    string   `json:"database_driver"`
	DatabaseURL       string   `json:"DATABASE_URL"`
	JWTSecret         string   `json:"jwt_secret"`
	SessionTTL        Duration `json:"session_ttl"`
	GeminiAPIKey      string   `json:"gemini_api_key"`
	NutritionixAppID  string   `json:"nutritionix_app_id"`
	NutritionixAppKey string   `json:"nutritionix_app_key"`
	AllowedOrigins    []string `json:"allowed_origins"`
	RandomSeed        int64    `json:"random_seed"`
	LogLevel          string   `json:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DatabaseDriver: "postgres",
		SessionTTL:     Duration(168 * time.Hour),
		AllowedOrigins: []string{"http://localhost:8081"},
		LogLevel:       "info",
	}
}

// Load reads path (skipped when empty), then .env from the working directory
// when it exists, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.ListenAddr, "NUTRIFLOW_LISTEN_ADDR")
	setString(&c.DatabaseDriver, "NUTRIFLOW_DATABASE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.JWTSecret, "NUTRIFLOW_JWT_SECRET")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.NutritionixAppID, "NUTRITIONIX_APP_ID")
	setString(&c.NutritionixAppKey, "NUTRITIONIX_APP_KEY")
	setString(&c.LogLevel, "NUTRIFLOW_LOG_LEVEL")

	if v := os.Getenv("NUTRIFLOW_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid NUTRIFLOW_SESSION_TTL: %w", err)
		}
		c.SessionTTL = Duration(d)
	}
	if v := os.Getenv("NUTRIFLOW_RANDOM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid NUTRIFLOW_RANDOM_SEED: %w", err)
		}
		c.RandomSeed = seed
	}
	if v := os.Getenv("NUTRIFLOW_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
	return nil
}

// RequireDatabase checks the settings needed to reach the database.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported NUTRIFLOW_DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

// Validate checks everything the HTTP server needs.
func (c *Config) Validate() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("NUTRIFLOW_JWT_SECRET not set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	return nil
}

// Logger builds a production zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
