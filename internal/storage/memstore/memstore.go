// Package memstore keeps the serialized collection in process memory.
package memstore

import (
	"context"
	"sync"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// Store is an in-memory shortener.Store. It stores the encoded blob rather
// than the slice so callers never share state with it.
type Store struct {
	mu   sync.Mutex
	blob []byte
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(ctx context.Context) ([]shortener.Link, error) {
	const op = "memstore.Load"

	s.mu.Lock()
	blob := s.blob
	s.mu.Unlock()

	links, err := shortener.DecodeLinks(blob)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *Store) Save(ctx context.Context, links []shortener.Link) error {
	const op = "memstore.Save"

	blob, err := shortener.EncodeLinks(links)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
	return nil
}

// Blob returns a copy of the raw serialized collection.
func (s *Store) Blob() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.blob...)
}

// SetBlob replaces the raw serialized collection, bypassing encoding.
func (s *Store) SetBlob(blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte(nil), blob...)
}
