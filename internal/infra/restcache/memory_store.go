package restcache

import (
	"context"
	"sync"
	"time"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

type searchEntry struct {
	payload   []restaurant.Restaurant
	expiresAt time.Time
}

type recommendationEntry struct {
	payload   recommend.Response
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the caches for tests/dev.
type MemoryStore struct {
	mu              sync.RWMutex
	searches        map[string]searchEntry
	recommendations map[string]recommendationEntry
	now             func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		searches:        make(map[string]searchEntry),
		recommendations: make(map[string]recommendationEntry),
		now:             time.Now,
	}
}

// GetSearch implements restaurant.Cache.
func (s *MemoryStore) GetSearch(_ context.Context, key string) ([]restaurant.Restaurant, bool, error) {
	s.mu.RLock()
	entry, ok := s.searches[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.hasExpired(entry.expiresAt) {
		s.mu.Lock()
		delete(s.searches, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	out := make([]restaurant.Restaurant, len(entry.payload))
	copy(out, entry.payload)
	return out, true, nil
}

// SaveSearch caches a restaurant list with optional TTL.
func (s *MemoryStore) SaveSearch(_ context.Context, key string, list []restaurant.Restaurant, ttl time.Duration) error {
	stored := make([]restaurant.Restaurant, len(list))
	copy(stored, list)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[key] = searchEntry{payload: stored, expiresAt: s.expiry(ttl)}
	return nil
}

// GetRecommendation implements recommend.Cache.
func (s *MemoryStore) GetRecommendation(_ context.Context, key string) (recommend.Response, bool, error) {
	s.mu.RLock()
	entry, ok := s.recommendations[key]
	s.mu.RUnlock()
	if !ok {
		return recommend.Response{}, false, nil
	}
	if s.hasExpired(entry.expiresAt) {
		s.mu.Lock()
		delete(s.recommendations, key)
		s.mu.Unlock()
		return recommend.Response{}, false, nil
	}
	return entry.payload, true, nil
}

// SaveRecommendation caches a recommendation response with optional TTL.
func (s *MemoryStore) SaveRecommendation(_ context.Context, key string, res recommend.Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations[key] = recommendationEntry{payload: res, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var _ restaurant.Cache = (*MemoryStore)(nil)
var _ recommend.Cache = (*MemoryStore)(nil)
