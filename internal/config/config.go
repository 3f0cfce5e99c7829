// Package config loads server configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	// RedisAddr empty disables the conversation cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdleThreshold    time.Duration
	OfflineThreshold time.Duration

	// RateLimit is requests per second per client IP for the plugin
	// sync endpoint; RateBurst is the bucket size.
	RateLimit float64
	RateBurst int

	CORSOrigins []string
	LogLevel    string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             envInt("PORT", 8080),
		DBPath:           envStr("DB_PATH", "data/codepulse.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		IdleThreshold:    envDuration("PRESENCE_IDLE_THRESHOLD", 2*time.Minute),
		OfflineThreshold: envDuration("PRESENCE_OFFLINE_THRESHOLD", 5*time.Minute),
		RateLimit:        envFloat("SYNC_RATE_LIMIT", 5),
		RateBurst:        envInt("SYNC_RATE_BURST", 10),
		LogLevel:         envStr("LOG_LEVEL", "info"),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	if cfg.OfflineThreshold <= cfg.IdleThreshold {
		return Config{}, fmt.Errorf("config: offline threshold (%s) must exceed idle threshold (%s)",
			cfg.OfflineThreshold, cfg.IdleThreshold)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog level, defaulting
// to info for unknown values.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
