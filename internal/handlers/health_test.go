package handlers

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"almmr/internal/ai"
	"almmr/internal/db"
	"almmr/internal/material"
	"almmr/internal/store"
)

func checkHealth(t *testing.T) healthResponse {
	t.Helper()
	before := time.Now().UTC()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.Time.Before(before.Add(-time.Second)) {
		t.Fatalf("expected a current timestamp, got %v", resp.Time)
	}
	return resp
}

func TestHealthWithNothingConfigured(t *testing.T) {
	Configure(Dependencies{})

	resp := checkHealth(t)
	want := map[string]bool{
		"materials":     false,
		"formulas":      false,
		"manufacturers": false,
		"perfumes":      false,
		"backup":        false,
		"suggestions":   false,
	}
	if !maps.Equal(resp.Services, want) {
		t.Fatalf("unexpected services %v", resp.Services)
	}
}

func TestHealthReportsPartialWiring(t *testing.T) {
	database, err := db.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	s, err := store.New(database)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	Configure(Dependencies{Materials: material.NewService(s), Suggester: ai.KeywordSuggester{}})
	t.Cleanup(func() {
		Configure(Dependencies{})
		_ = s.Close()
	})

	resp := checkHealth(t)
	want := map[string]bool{
		"materials":     true,
		"formulas":      false,
		"manufacturers": false,
		"perfumes":      false,
		"backup":        false,
		"suggestions":   true,
	}
	if !maps.Equal(resp.Services, want) {
		t.Fatalf("unexpected services %v", resp.Services)
	}
}

func TestHealthReportsFullWiring(t *testing.T) {
	newTestAPI(t)

	resp := checkHealth(t)
	if len(resp.Services) != 6 {
		t.Fatalf("expected 6 services, got %v", resp.Services)
	}
	for name, wired := range resp.Services {
		if !wired {
			t.Fatalf("expected %s to be reported as configured", name)
		}
	}
}
