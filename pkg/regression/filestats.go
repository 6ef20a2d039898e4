package regression

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileMetricsStore reads comparison windows from a JSON file. Offline
// evaluation jobs write the file; the detector re-reads it on every
// pass so updated windows are picked up without a restart.
type FileMetricsStore struct {
	path string
}

// NewFileMetricsStore creates a store reading from the given path.
func NewFileMetricsStore(path string) *FileMetricsStore {
	return &FileMetricsStore{path: path}
}

// WindowStats loads the current baseline and canary windows.
func (s *FileMetricsStore) WindowStats(ctx context.Context, windowRuns int) (*WindowStats, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading window stats %q: %w", s.path, err)
	}

	var stats WindowStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parsing window stats %q: %w", s.path, err)
	}

	return &stats, nil
}
