package service

import (
	"testing"
	"time"
)

func TestPresenceClassify(t *testing.T) {
	resolver := NewPresenceResolver(DefaultIdleThreshold, DefaultOfflineThreshold)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want Status
	}{
		{"just now", 0, StatusOnline},
		{"119 seconds ago", 119 * time.Second, StatusOnline},
		{"exactly at idle threshold", 120 * time.Second, StatusIdle},
		{"121 seconds ago", 121 * time.Second, StatusIdle},
		{"299 seconds ago", 299 * time.Second, StatusIdle},
		{"exactly at offline threshold", 300 * time.Second, StatusOffline},
		{"301 seconds ago", 301 * time.Second, StatusOffline},
		{"hours ago", 3 * time.Hour, StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Classify(now.Add(-tt.ago), now)
			if got != tt.want {
				t.Errorf("Classify(now-%v) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}

func TestPresenceClassifyZeroTime(t *testing.T) {
	resolver := NewPresenceResolver(DefaultIdleThreshold, DefaultOfflineThreshold)
	now := time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

	if got := resolver.Classify(time.Time{}, now); got != StatusOffline {
		t.Errorf("Classify(zero) = %q, want %q", got, StatusOffline)
	}
}

func TestPresenceResolverFallbacks(t *testing.T) {
	// Invalid thresholds must not produce a resolver where idle >= offline.
	tests := []struct {
		name          string
		idle, offline time.Duration
	}{
		{"both zero", 0, 0},
		{"negative idle", -time.Minute, 5 * time.Minute},
		{"offline below idle", 10 * time.Minute, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPresenceResolver(tt.idle, tt.offline)
			if r.idle <= 0 || r.offline <= r.idle {
				t.Errorf("got idle=%v offline=%v, want 0 < idle < offline", r.idle, r.offline)
			}
		})
	}
}

func TestPresenceStatusRank(t *testing.T) {
	if !(StatusOnline.Rank() < StatusIdle.Rank() && StatusIdle.Rank() < StatusOffline.Rank()) {
		t.Errorf("rank order broken: online=%d idle=%d offline=%d",
			StatusOnline.Rank(), StatusIdle.Rank(), StatusOffline.Rank())
	}
}
