// Package filestore persists the link collection as a JSON file, the on-disk
// equivalent of a single browser profile's local storage.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// Store reads and writes the whole collection at path.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	return &Store{path: path}, nil
}

// Path returns the file the collection is stored in.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(ctx context.Context) ([]shortener.Link, error) {
	const op = "filestore.Load"

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return []shortener.Link{}, nil
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	links, err := shortener.DecodeLinks(data)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the previous file, so readers see either the old or the new collection.
func (s *Store) Save(ctx context.Context, links []shortener.Link) error {
	const op = "filestore.Save"

	data, err := shortener.EncodeLinks(links)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
