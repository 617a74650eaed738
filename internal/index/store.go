package index

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	ErrIndexNotFound = errors.New("index: index not found")
	ErrIndexExists   = errors.New("index: index already exists")
	ErrIndexBadName  = errors.New("index: invalid index name")
)

// NormalizeName is the canonical form under which indexes are registered.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store is the registry of unique indexes by normalized name. The registry
// map is locked; the indexes it hands out are not.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*UniqueIndex
}

func NewStore() *Store {
	return &Store{indexes: make(map[string]*UniqueIndex)}
}

// Create registers a new empty index.
func (s *Store) Create(name string) (*UniqueIndex, error) {
	n := NormalizeName(name)
	if n == "" {
		return nil, ErrIndexBadName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[n]; ok {
		return nil, ErrIndexExists
	}
	ix := NewUniqueIndex(n)
	s.indexes[n] = ix
	return ix, nil
}

func (s *Store) Get(name string) (*UniqueIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ix, ok := s.indexes[NormalizeName(name)]
	if !ok {
		return nil, ErrIndexNotFound
	}
	return ix, nil
}

func (s *Store) Drop(name string) error {
	n := NormalizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[n]; !ok {
		return ErrIndexNotFound
	}
	delete(s.indexes, n)
	return nil
}

// Names lists registered index names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.indexes))
	for n := range s.indexes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
