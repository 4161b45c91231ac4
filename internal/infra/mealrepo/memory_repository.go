package mealrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
)

// MemoryRepository provides an in-memory preference and meal store for
// tests/dev.
type MemoryRepository struct {
	mu    sync.RWMutex
	prefs map[string][]byte
	meals map[string][]profile.MealRecord
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		prefs: make(map[string][]byte),
		meals: make(map[string][]profile.MealRecord),
	}
}

// GetPreferencesBlob returns the raw stored preferences for a user.
func (r *MemoryRepository) GetPreferencesBlob(_ context.Context, userID string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.prefs[userID]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true, nil
}

// SavePreferences stores encoded preferences for a user.
func (r *MemoryRepository) SavePreferences(_ context.Context, userID string, prefs profile.UserPreferences) error {
	blob, err := profile.EncodePreferences(prefs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = blob
	return nil
}

// InsertMeal records a logged meal.
func (r *MemoryRepository) InsertMeal(_ context.Context, meal profile.MealRecord) (profile.MealRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meals[meal.UserID] = append(r.meals[meal.UserID], meal)
	return meal, nil
}

// MealsInRange lists a user's meals with EatenAt in [start, end), newest
// first.
func (r *MemoryRepository) MealsInRange(_ context.Context, userID string, start, end time.Time) ([]profile.MealRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []profile.MealRecord
	for _, meal := range r.meals[userID] {
		if meal.EatenAt.Before(start) || !meal.EatenAt.Before(end) {
			continue
		}
		out = append(out, meal)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EatenAt.After(out[j].EatenAt)
	})
	return out, nil
}

var _ profile.Repository = (*MemoryRepository)(nil)
