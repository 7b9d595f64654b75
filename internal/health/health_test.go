package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_AllHealthy(t *testing.T) {
	handler := NewHandler("test-version")
	handler.RegisterChecker("store", NewSimpleChecker("store", func() error { return nil }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version test-version, got %s", resp.Version)
	}
	if _, ok := resp.Checks["store"]; !ok {
		t.Error("expected store check in response")
	}
}

func TestHandler_UnhealthyComponent(t *testing.T) {
	handler := NewHandler("test-version")
	handler.RegisterChecker("store", NewSimpleChecker("store", func() error { return nil }))
	handler.RegisterChecker("broker", NewSimpleChecker("broker", func() error {
		return errors.New("broker unreachable")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", resp.Status)
	}
	if resp.Checks["broker"].Message != "broker unreachable" {
		t.Errorf("expected failure message, got %q", resp.Checks["broker"].Message)
	}
	if resp.Checks["store"].Status != StatusHealthy {
		t.Errorf("expected store to stay healthy, got %s", resp.Checks["store"].Status)
	}
}

func TestHandler_NoCheckers(t *testing.T) {
	handler := NewHandler("test-version")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with no checkers, got %d", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body ok, got %q", rec.Body.String())
	}
}
