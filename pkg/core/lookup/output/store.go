package output

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// Store keeps one Region per browser client. When more than maxClients
// clients are tracked the least recently used region is dropped.
type Store struct {
	mu      sync.Mutex
	regions *lru.Cache
}

func NewStore(maxClients int) *Store {
	if maxClients <= 0 {
		maxClients = 1
	}
	return &Store{regions: lru.New(maxClients)}
}

// Region returns the client's region, creating it on first use.
// An empty client id gets a throwaway region that nobody else can read.
func (s *Store) Region(client string) *Region {
	if client == "" {
		return NewRegion()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.regions.Get(client); ok {
		return r.(*Region)
	}
	r := NewRegion()
	s.regions.Add(client, r)
	return r
}

// Text returns what the client's region shows without creating one.
func (s *Store) Text(client string) string {
	if client == "" {
		return ""
	}
	s.mu.Lock()
	r, ok := s.regions.Get(client)
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return r.(*Region).Text()
}

// Forget drops the client's region.
func (s *Store) Forget(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions.Remove(client)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions.Len()
}
