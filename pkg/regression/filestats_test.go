package regression

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileMetricsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.json")
	content := `{
  "baseline": {"samples": 200, "quality": 95.0, "latency_p95_ms": 900, "cost_cents": 1.1},
  "canary": {"samples": 80, "quality": 93.5, "latency_p95_ms": 1100, "cost_cents": 1.4}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing stats file: %v", err)
	}

	stats, err := NewFileMetricsStore(path).WindowStats(context.Background(), 100)
	if err != nil {
		t.Fatalf("WindowStats() error = %v", err)
	}
	if stats.Baseline.Samples != 200 {
		t.Errorf("Baseline.Samples = %d, want 200", stats.Baseline.Samples)
	}
	if stats.Canary.Quality != 93.5 {
		t.Errorf("Canary.Quality = %v, want 93.5", stats.Canary.Quality)
	}
}

func TestFileMetricsStoreMissingFile(t *testing.T) {
	store := NewFileMetricsStore(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := store.WindowStats(context.Background(), 100); err == nil {
		t.Error("WindowStats() with missing file did not fail")
	}
}

func TestFileMetricsStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing stats file: %v", err)
	}
	if _, err := NewFileMetricsStore(path).WindowStats(context.Background(), 100); err == nil {
		t.Error("WindowStats() with malformed file did not fail")
	}
}
