// Package catalog reads and rewrites the product catalog file. The file is
// loaded once at startup and rewritten after every stock mutation; the
// database keeps the authoritative stock counts in between.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Entry struct {
	Name  string `json:"name"`
	Link  string `json:"link"`
	Stock int    `json:"stock"`
}

type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load() ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", f.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", f.path, err)
	}
	return entries, nil
}

// Write replaces the catalog file atomically (temp file + rename) so a crash
// mid-write never leaves a truncated catalog behind.
func (f *File) Write(entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".catalog-*")
	if err != nil {
		return fmt.Errorf("write catalog %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write catalog %s: %w", f.path, err)
	}
	return os.Rename(tmp.Name(), f.path)
}
