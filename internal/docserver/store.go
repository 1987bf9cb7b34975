// Package docserver is the reference document server: it keeps one board
// document in a JSON file and serves it over /api/health and /api/data.
//
// Writes replace the file atomically. Edits made to the file by other
// programs are picked up by a file watcher and served from then on.
package docserver

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Store holds the served document and its backing file.
type Store struct {
	path   string
	mu     sync.RWMutex
	data   []byte
	logger *log.Logger
}

// OpenStore loads path, creating it with the untitled document if it does
// not exist. If logger is nil, a default logger writing to stderr is used.
func OpenStore(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[docserver] ", log.LstdFlags)
	}
	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		initial, err := schema.Untitled().Encode()
		if err != nil {
			return nil, err
		}
		if err := s.Put(initial); err != nil {
			return nil, err
		}
		logger.Printf("Initialised %s with an empty board", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := schema.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	s.data = data
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current document bytes.
func (s *Store) Get() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Put validates data as a board document and persists it.
func (s *Store) Put(data []byte) error {
	if _, err := schema.Decode(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}
	s.data = data
	return nil
}

// Reload re-reads the backing file. It reports whether the served document
// changed. An unreadable or invalid file is logged and the previous document
// is kept.
func (s *Store) Reload() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Printf("WARNING: Failed to reload %s: %v", s.path, err)
		return false
	}
	if _, err := schema.Decode(data); err != nil {
		s.logger.Printf("WARNING: Ignoring invalid edit to %s: %v", s.path, err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes.Equal(data, s.data) {
		return false
	}
	s.data = data
	return true
}

// writeAtomic writes to a temp file in the same directory and renames it
// over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
