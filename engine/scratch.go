package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// ScratchStore manages short-lived files under a single temp directory.
// Concurrent requests share the directory but never collide: every
// request scope gets a ULID prefix for its files.
type ScratchStore struct {
	Root string
}

// NewScratchStore creates the store and ensures the root directory exists
func NewScratchStore(root string) (*ScratchStore, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create scratch directory %s: %w", root, err)
	}
	return &ScratchStore{Root: root}, nil
}

// NewScope starts a request-scoped view of the store. Every file the
// scope creates is tracked and removed by Cleanup.
func (store *ScratchStore) NewScope() *ScratchScope {
	return &ScratchScope{
		store: store,
		id:    ulid.Make().String(),
	}
}

// Sweep removes scratch files older than the retention window. This is
// the crash-leak backstop, not part of per-request cleanup, so it is
// best-effort: files deleted under it by a racing request are ignored.
// The current time is a parameter so tests can drive the clock.
func (store *ScratchStore) Sweep(now time.Time, retention time.Duration) (removed int) {
	cutoff := now.Add(-retention)
	entries, err := os.ReadDir(store.Root)
	if err != nil {
		Logger.Error("Unable to read scratch directory for sweep", "root", store.Root, "error", err)
		return 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(store.Root, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			Logger.Warn("Sweep unable to remove stale scratch file", "path", path, "error", err)
			continue
		}
		Logger.Debug("Sweep removed stale scratch file", "path", path)
		removed++
	}
	return removed
}

// ScratchScope tracks the scratch files belonging to one request
type ScratchScope struct {
	store *ScratchStore
	id    string
	files []string
}

// WritePDF persists the uploaded PDF buffer and returns its path
func (scope *ScratchScope) WritePDF(buf []byte) (string, error) {
	path := filepath.Join(scope.store.Root, scope.id+".pdf")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("unable to write scratch PDF: %w", err)
	}
	scope.files = append(scope.files, path)
	return path, nil
}

// PageFilePath returns the scratch location for a rendered page. The
// zero-padded page index keeps lexical order equal to page order.
func (scope *ScratchScope) PageFilePath(page int) string {
	return filepath.Join(scope.store.Root, fmt.Sprintf("%s-page-%04d.jpg", scope.id, page))
}

// Track registers a file the scope created so Cleanup removes it
func (scope *ScratchScope) Track(path string) {
	scope.files = append(scope.files, path)
}

// PageFiles enumerates this scope's rendered page files in page order.
// Ordering comes from the zero-padded name, not directory listing order.
func (scope *ScratchScope) PageFiles() ([]string, error) {
	pattern := filepath.Join(scope.store.Root, scope.id+"-page-*.jpg")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("unable to list page files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Read loads a scratch file back into memory
func (scope *ScratchScope) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Cleanup removes every file the scope created. Idempotent, and safe on
// partial failure paths where only some page files exist.
func (scope *ScratchScope) Cleanup() {
	for _, path := range scope.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			Logger.Error("Unable to remove scratch file", "path", path, "error", err)
		}
	}
	scope.files = nil
}
