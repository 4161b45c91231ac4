package restaurantrepo

import (
	"context"
	"sync"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

// MemoryRepository provides an in-memory restaurant store for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]restaurant.Restaurant
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]restaurant.Restaurant)}
}

// Upsert writes or refreshes a restaurant.
func (r *MemoryRepository) Upsert(_ context.Context, res restaurant.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Distance is query-relative and must never be persisted.
	res.DistanceMeters = nil
	r.entries[res.PlaceID] = res
	return nil
}

// GetByPlaceID fetches one restaurant by its place ID.
func (r *MemoryRepository) GetByPlaceID(_ context.Context, placeID string) (restaurant.Restaurant, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.entries[placeID]
	return res, ok, nil
}

// ListAll returns every stored restaurant.
func (r *MemoryRepository) ListAll(_ context.Context) ([]restaurant.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]restaurant.Restaurant, 0, len(r.entries))
	for _, res := range r.entries {
		out = append(out, res)
	}
	return out, nil
}

var _ restaurant.Repository = (*MemoryRepository)(nil)
