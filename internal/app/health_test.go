package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"todaytasks/api/internal/config"
	"todaytasks/api/internal/store"
)

// pingFailStore is a memory backend whose health check can be made to fail.
type pingFailStore struct {
	*store.MemoryStore
	pingFn func(context.Context) error
}

func (f *pingFailStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(New(config.Default(), store.NewMemoryStore(), nil, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	docs := &pingFailStore{MemoryStore: store.NewMemoryStore()}
	server := NewHTTPServer(New(config.Default(), docs, nil, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["status"] != "ready" {
		t.Errorf("expected status=ready, got %v", response["status"])
	}
}

func TestReadyEndpoint_StorageDown(t *testing.T) {
	docs := &pingFailStore{
		MemoryStore: store.NewMemoryStore(),
		pingFn: func(context.Context) error {
			return errors.New("connection refused")
		},
	}
	server := NewHTTPServer(New(config.Default(), docs, nil, nil), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["ok"] != false {
		t.Errorf("expected ok=false, got %v", response["ok"])
	}
	checks, ok := response["checks"].(map[string]any)
	if !ok {
		t.Fatalf("expected checks object, got %T", response["checks"])
	}
	storage, ok := checks["storage"].(map[string]any)
	if !ok {
		t.Fatalf("expected storage check, got %T", checks["storage"])
	}
	if storage["error"] != "connection refused" {
		t.Errorf("expected storage error, got %v", storage["error"])
	}
}

func TestOptionsPreflight(t *testing.T) {
	server := NewHTTPServer(New(config.Default(), store.NewMemoryStore(), nil, nil), "https://tasks.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://tasks.example.com" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST,OPTIONS" {
		t.Errorf("unexpected allow-methods %q", got)
	}
}

func TestUnknownRoutes(t *testing.T) {
	server := NewHTTPServer(New(config.Default(), store.NewMemoryStore(), nil, nil), "*")

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusNotFound},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/api/todos/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/todos", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/settings", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/visitors/stats", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != tt.status {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.status, rr.Code)
		}
	}
}
