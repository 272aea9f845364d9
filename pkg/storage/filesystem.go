package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportStore keeps generated report artifacts on the local filesystem, flat
// under a single directory so the retention pass can scan it cheaply.
type ReportStore struct {
	dir string
}

// NewReportStore ensures the directory exists and returns a handle to it.
func NewReportStore(dir string) (*ReportStore, error) {
	if dir == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &ReportStore{dir: dir}, nil
}

// Save writes one artifact and returns its full path.
func (s *ReportStore) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", name, err)
	}
	return path, nil
}

// Prune removes artifacts whose modification time predates maxAge and returns
// the removed names. Subdirectories are left alone.
func (s *ReportStore) Prune(maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat report %s: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove report %s: %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}
