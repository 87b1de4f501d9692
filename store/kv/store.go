package kv

import (
	"sync"

	"github.com/gasparian/smallcodes-go/store"
	guuid "github.com/google/uuid"
)

// Store keeps feature vectors in memory
type Store struct {
	mx sync.RWMutex
	m  map[string][]float64
}

// NewStore creates empty vectors store
func NewStore() *Store {
	return &Store{
		m: make(map[string][]float64),
	}
}

// SetVector stores a copy of vec under id
func (s *Store) SetVector(id string, vec []float64) {
	cp := make([]float64, len(vec))
	copy(cp, vec)
	s.mx.Lock()
	defer s.mx.Unlock()
	s.m[id] = cp
}

// Put stores vec under a new random uid and returns it
func (s *Store) Put(vec []float64) string {
	id := guuid.NewString()
	s.SetVector(id, vec)
	return id
}

// Fetch returns element by id
func (s *Store) Fetch(id string) (store.Element, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	vec, ok := s.m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := make([]float64, len(vec))
	copy(cp, vec)
	return &store.Descriptor{ID: id, Vec: cp}, nil
}

// FetchAll returns lazy iterator over ids
func (s *Store) FetchAll(ids []string) store.ElementIterator {
	return store.NewFetchIterator(s.Fetch, ids)
}

// IDs returns all stored identifiers in arbitrary order
func (s *Store) IDs() []string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	return ids
}

// Len returns number of stored vectors
func (s *Store) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.m)
}

// Clear drops all vectors
func (s *Store) Clear() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.m = make(map[string][]float64)
}
