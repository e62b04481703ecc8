package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchPublicSeedFromBeacon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"value": "block-abc123", "timestamp": int64(1700000000000)})
	}))
	defer srv.Close()

	seed := New(srv.URL).FetchPublicSeed(context.Background())
	if seed.Fallback {
		t.Fatalf("expected beacon seed, got fallback")
	}
	if seed.Value != "block-abc123" {
		t.Fatalf("seed value = %q", seed.Value)
	}
}

func TestFetchPublicSeedFallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	srv.Close() // beacon fora do ar

	seed := New(srv.URL).FetchPublicSeed(context.Background())
	if !seed.Fallback {
		t.Fatalf("expected fallback when beacon is unreachable")
	}
	if !strings.HasPrefix(seed.Value, "local:") || len(seed.Value) <= len("local:") {
		t.Fatalf("fallback value malformed: %q", seed.Value)
	}

	// dois fallbacks não repetem valor
	other := New(srv.URL).FetchPublicSeed(context.Background())
	if other.Value == seed.Value {
		t.Fatalf("fallback seeds collided")
	}
}

func TestFetchPublicSeedFallbackOnBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	seed := New(srv.URL).FetchPublicSeed(context.Background())
	if !seed.Fallback {
		t.Fatalf("expected fallback on malformed beacon payload")
	}
}
