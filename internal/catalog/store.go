package catalog

import (
	"context"
	"sync"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

// Store loads the catalog on first use and serves the cached copy after a
// successful load. A failed load is retried on the next call.
type Store struct {
	loader *Loader
	src    Source

	mu     sync.Mutex
	ops    []domain.Opportunity
	loaded bool
}

func NewStore(loader *Loader, src Source) *Store {
	return &Store{loader: loader, src: src}
}

func (s *Store) Opportunities(ctx context.Context) ([]domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return append([]domain.Opportunity(nil), s.ops...), nil
	}
	ops, err := s.loader.Load(ctx, s.src)
	if err != nil {
		return nil, err
	}
	s.ops = ops
	s.loaded = true
	return append([]domain.Opportunity(nil), ops...), nil
}

// Reload replaces the cached catalog wholesale.
func (s *Store) Reload(ctx context.Context) ([]domain.Opportunity, error) {
	ops, err := s.loader.Load(ctx, s.src)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ops = ops
	s.loaded = true
	s.mu.Unlock()
	return append([]domain.Opportunity(nil), ops...), nil
}

func (s *Store) Source() string {
	return s.src.Name()
}
