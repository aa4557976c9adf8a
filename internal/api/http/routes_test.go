package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/parking-data-aggregation/internal/analysis"
	"github.com/i474232898/parking-data-aggregation/internal/config"
	"github.com/i474232898/parking-data-aggregation/internal/report"
)

func testApp(t *testing.T) (*fiber.App, *config.AppConfig) {
	t.Helper()
	app := fiber.New()
	cfg := &config.AppConfig{
		OutputDir: t.TempDir(),
		Analysis:  analysis.DefaultConfig(),
	}
	RegisterRoutes(app, cfg)
	return app, cfg
}

func TestCorrelationsDaysValidation(t *testing.T) {
	app, _ := testApp(t)

	// Missing days parameter should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/correlations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// A window outside the configured set should also return 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/correlations?days=13", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestCorrelationsServesArtifact(t *testing.T) {
	app, cfg := testApp(t)

	// Not generated yet: 404.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/correlations?days=7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	art := report.BuildCorrelation("run-1", cfg.Analysis, analysis.CorrelationResult{LookbackDays: 7})
	if err := report.WriteJSON(report.CorrelationPath(cfg.OutputDir, 7), art); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/correlations?days=7", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var decoded struct {
		LookbackDays int `json:"lookback_days"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if decoded.LookbackDays != 7 {
		t.Fatalf("unexpected artifact served: %s", body)
	}
}

func TestSaturationAndSnapshotRoutes(t *testing.T) {
	app, cfg := testApp(t)

	if err := report.WriteJSON(report.SaturationPath(cfg.OutputDir, 7), map[string]int{"lookback_days": 7}); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := report.WriteJSON(filepath.Join(cfg.OutputDir, "latest_snapshot.json"), map[string]string{"timezone": "Europe/Paris"}); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	for _, path := range []string{"/api/v1/saturation", "/api/v1/snapshot"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("unexpected error on %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on %s, got %d", path, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metadata", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unpublished metadata, got %d", resp.StatusCode)
	}
}
