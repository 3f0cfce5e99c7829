package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars!!")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.IdleThreshold != 2*time.Minute || cfg.OfflineThreshold != 5*time.Minute {
		t.Errorf("thresholds = %v/%v, want 2m/5m", cfg.IdleThreshold, cfg.OfflineThreshold)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty by default", cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PRESENCE_IDLE_THRESHOLD", "90s")
	t.Setenv("PRESENCE_OFFLINE_THRESHOLD", "10m")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.IdleThreshold != 90*time.Second || cfg.OfflineThreshold != 10*time.Minute {
		t.Errorf("thresholds = %v/%v", cfg.IdleThreshold, cfg.OfflineThreshold)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Errorf("SlogLevel = %v, want DEBUG", cfg.SlogLevel())
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		if _, err := Load(); err == nil {
			t.Error("Load() accepted a missing JWT_SECRET")
		}
	})

	t.Run("inverted thresholds", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("PRESENCE_IDLE_THRESHOLD", "10m")
		t.Setenv("PRESENCE_OFFLINE_THRESHOLD", "1m")
		if _, err := Load(); err == nil {
			t.Error("Load() accepted offline <= idle")
		}
	})
}
