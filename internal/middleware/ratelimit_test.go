package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiterStoreAllowsWithinBudget(t *testing.T) {
	store := NewLimiterStore(rate.Limit(1), 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !store.Allow("10.0.0.1") {
			t.Fatalf("request %d inside burst was denied", i+1)
		}
	}
	if store.Allow("10.0.0.1") {
		t.Error("request over burst was allowed")
	}
	// Independent buckets per IP.
	if !store.Allow("10.0.0.2") {
		t.Error("fresh client was denied")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	store := NewLimiterStore(rate.Limit(1), 1, time.Minute)
	handler := RateLimit(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/plugin/sync", nil)
	req.RemoteAddr = "10.0.0.1:51234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}
