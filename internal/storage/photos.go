package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReviewStore writes review screenshots to disk, one file per order.
type ReviewStore struct {
	dir string
}

func NewReviewStore(dir string) *ReviewStore {
	return &ReviewStore{dir: dir}
}

func (s *ReviewStore) Save(userID int64, orderID uint, r io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create review dir: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("review_%d_%d.jpg", userID, orderID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save review screenshot: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("save review screenshot: %w", err)
	}
	return f.Close()
}
