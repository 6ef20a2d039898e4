package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckReadinessAllHealthy(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("proposals", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("bundles", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("Status = %q, want %q", status.Status, "ready")
	}
	if len(status.Checks) != 2 {
		t.Errorf("len(Checks) = %d, want 2", len(status.Checks))
	}
	for name, result := range status.Checks {
		if result.Status != "ok" {
			t.Errorf("check %s status = %q, want %q", name, result.Status, "ok")
		}
	}
}

func TestCheckReadinessDegraded(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("proposals", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("settings", func(ctx context.Context) error {
		return errors.New("database is locked")
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("Status = %q, want %q", status.Status, "degraded")
	}
	if got := status.Checks["settings"].Message; got != "database is locked" {
		t.Errorf("settings message = %q, want %q", got, "database is locked")
	}
}

func TestCheckReadinessTimeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("Status = %q, want %q", status.Status, "degraded")
	}
}

func TestCheckReadinessNoChecks(t *testing.T) {
	status := New(0).CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("Status = %q, want %q", status.Status, "ready")
	}
}

func TestReadinessHandlerStatusCodes(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("ok", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status code = %d, want %d", rec.Code, http.StatusOK)
	}

	checker.RegisterCheck("broken", func(ctx context.Context) error {
		return errors.New("down")
	})
	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status code = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestLivenessHandlerRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	New(0).LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("0.3.0", "abc123", "2026-08-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if info.Version != "0.3.0" || info.Commit != "abc123" {
		t.Errorf("VersionInfo = %+v, want version 0.3.0 commit abc123", info)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
