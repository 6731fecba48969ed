package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"seedkeeper/internal/models"

	"github.com/joho/godotenv"
)

type Config struct {
	APIAddr        string
	OpsAddr        string
	PrivateKeyFile string
	SeedStore      string
	SeedFile       string
	SeedDB         string
	KeyCacheTTL    time.Duration
	CodeLogFile    string
	LogLevel       string
	LogFormat      string
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are used when not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	keyCacheTTL, err := time.ParseDuration(getEnv("KEY_CACHE_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("%w: KEY_CACHE_TTL: %v", models.ErrConfiguration, err)
	}

	cfg := &Config{
		APIAddr:        getEnv("API_ADDR", ":8080"),
		OpsAddr:        getEnv("OPS_ADDR", "localhost:8081"),
		PrivateKeyFile: getEnv("PRIVATE_KEY_FILE", "student_private.pem"),
		SeedStore:      strings.ToLower(getEnv("SEED_STORE", "file")),
		SeedFile:       getEnv("SEED_FILE", "data/seed.txt"),
		SeedDB:         getEnv("SEED_DB", "data/seed.db"),
		KeyCacheTTL:    keyCacheTTL,
		CodeLogFile:    getEnv("CODE_LOG_FILE", "cron/last_code.txt"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PrivateKeyFile == "" {
		return fmt.Errorf("%w: PRIVATE_KEY_FILE is required", models.ErrConfiguration)
	}

	switch c.SeedStore {
	case "file":
		if c.SeedFile == "" {
			return fmt.Errorf("%w: SEED_FILE is required for the file store", models.ErrConfiguration)
		}
	case "bbolt":
		if c.SeedDB == "" {
			return fmt.Errorf("%w: SEED_DB is required for the bbolt store", models.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: SEED_STORE must be file or bbolt, got %q", models.ErrConfiguration, c.SeedStore)
	}

	if c.KeyCacheTTL < 0 {
		return fmt.Errorf("%w: KEY_CACHE_TTL must not be negative", models.ErrConfiguration)
	}

	if _, err := c.level(); err != nil {
		return err
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: LOG_FORMAT must be text or json, got %q", models.ErrConfiguration, c.LogFormat)
	}

	return nil
}

// Logger builds the process logger described by LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *Config) level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown LOG_LEVEL %q", models.ErrConfiguration, c.LogLevel)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
