// Package file persists the key/value profile as a single JSON document on
// disk. Writes go to a temporary file that is renamed into place.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"famtree/internal/infra/kv/memory"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "famtree-state.json"

// Store caches the document in memory and rewrites it on every change.
type Store struct {
	*memory.Store
	mu   sync.Mutex
	path string
}

// NewStore loads path if it exists. A missing file starts empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{Store: memory.NewStore(), path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	s.Import(entries)
	return s, nil
}

// Set stores value under key and flushes the document.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.Export()
	entries[key] = value
	if err := s.flush(entries); err != nil {
		return err
	}
	return s.Store.Set(ctx, key, value)
}

// Delete removes key and flushes the document.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.Export()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if err := s.flush(entries); err != nil {
		return err
	}
	return s.Store.Delete(ctx, key)
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Close is a no-op; every change is already on disk.
func (s *Store) Close() error { return nil }

func (s *Store) flush(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".famtree-state-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
