package resource

import (
	"context"
	"sync"

	"github.com/jchantrell/resgrab/internal/container"
)

// Session owns the catalog of the most recent successful load
type Session struct {
	loader *Loader

	mu      sync.Mutex
	catalog *Catalog
}

func NewSession(loader *Loader) *Session {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &Session{loader: loader}
}

// Load classifies src and replaces the current catalog. The previous
// catalog is disposed only when the new load succeeds; on failure it stays
// current.
func (s *Session) Load(ctx context.Context, src container.Source) (*Catalog, error) {
	cat, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.catalog
	s.catalog = cat
	s.mu.Unlock()

	old.Close()
	return cat, nil
}

// Catalog returns the current catalog, or nil before the first load
func (s *Session) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Close disposes the current catalog
func (s *Session) Close() {
	s.mu.Lock()
	old := s.catalog
	s.catalog = nil
	s.mu.Unlock()

	old.Close()
}
