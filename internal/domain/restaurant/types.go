package restaurant

import (
	"context"
	"time"
)

// Restaurant is the scoring-relevant view of a place. Optional fields are
// pointers: absence is expected and every consumer defines its own default.
type Restaurant struct {
	PlaceID                      string             `json:"placeId"`
	Name                         string             `json:"name"`
	Latitude                     float64            `json:"latitude"`
	Longitude                    float64            `json:"longitude"`
	Rating                       *float64           `json:"rating,omitempty"`
	PriceLevel                   *int               `json:"priceLevel,omitempty"`
	AverageMealCost              *float64           `json:"averageMealCost,omitempty"`
	ValueScore                   float64            `json:"valueScore,omitempty"`
	SupportedDietaryRestrictions []string           `json:"supportedDietaryRestrictions,omitempty"`
	AllergenInfo                 []string           `json:"allergenInfo,omitempty"`
	DietaryCompatibilityScores   map[string]float64 `json:"dietaryCompatibilityScores,omitempty"`
	HasVerifiedDietaryInfo       bool               `json:"hasVerifiedDietaryInfo"`
	IsOpenNow                    *bool              `json:"isOpenNow,omitempty"`
	IsChain                      bool               `json:"isChain,omitempty"`
	// DistanceMeters is derived per query, never persisted.
	DistanceMeters *float64  `json:"distanceMeters,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

// WithDistanceFrom returns a copy annotated with the haversine distance from
// the given point. The receiver is left untouched; cached entities are shared.
func (r Restaurant) WithDistanceFrom(lat, lng float64) Restaurant {
	d := DistanceMetersBetween(lat, lng, r.Latitude, r.Longitude)
	r.DistanceMeters = &d
	return r
}

// SupportsRestriction reports whether the place explicitly lists support for
// a dietary restriction.
func (r Restaurant) SupportsRestriction(restriction string) bool {
	for _, s := range r.SupportedDietaryRestrictions {
		if s == restriction {
			return true
		}
	}
	return false
}

// ContainsAllergen reports whether the place lists an allergen.
func (r Restaurant) ContainsAllergen(allergen string) bool {
	for _, a := range r.AllergenInfo {
		if a == allergen {
			return true
		}
	}
	return false
}

// Repository persists restaurant entities keyed by place ID.
type Repository interface {
	GetByPlaceID(ctx context.Context, placeID string) (Restaurant, bool, error)
	Upsert(ctx context.Context, r Restaurant) error
	ListAll(ctx context.Context) ([]Restaurant, error)
}

// Cache holds short-lived search results keyed by an opaque string.
type Cache interface {
	GetSearch(ctx context.Context, key string) ([]Restaurant, bool, error)
	SaveSearch(ctx context.Context, key string, list []Restaurant, ttl time.Duration) error
}
