// Package discovery applies hard constraints to raw restaurant search results
// for the browse experience. It is independent of the soft compatibility
// score; a restaurant either passes every constraint or is dropped.
package discovery

import (
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/scoring"
)

const metersPerKilometer = 1000.0

// Options tune filtering beyond the stored user preferences.
type Options struct {
	// RequireDietaryVerification drops unverified restaurants whose dietary
	// fit for the user's restrictions falls below the verification threshold.
	RequireDietaryVerification bool
}

// Filter returns the candidates that violate none of the hard constraints.
// Missing optional fields never reject a candidate: an unknown distance,
// rating, or price level passes its constraint. An empty input yields an
// empty output, not an error.
func Filter(candidates []restaurant.Restaurant, prefs profile.UserPreferences, opts Options) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, 0, len(candidates))
	for _, r := range candidates {
		if passes(r, prefs, opts) {
			out = append(out, r)
		}
	}
	return out
}

func passes(r restaurant.Restaurant, prefs profile.UserPreferences, opts Options) bool {
	if r.DistanceMeters != nil && prefs.MaxTravelDistanceKm > 0 &&
		*r.DistanceMeters > prefs.MaxTravelDistanceKm*metersPerKilometer {
		return false
	}
	if r.Rating != nil && prefs.MinimumRating > 0 && *r.Rating < prefs.MinimumRating {
		return false
	}
	if r.PriceLevel != nil && prefs.BudgetLevel > 0 && *r.PriceLevel > prefs.BudgetLevel {
		return false
	}
	if opts.RequireDietaryVerification && !r.HasVerifiedDietaryInfo &&
		scoring.DietaryScore(prefs.DietaryRestrictions, r) < scoring.VerificationThreshold {
		return false
	}
	if !prefs.IncludeChains && IsLikelyChain(r.Name) {
		return false
	}
	// Allergen warnings deliberately do not filter: the restaurant stays
	// visible and the caller flags it via ClassifySafety.
	return true
}

// Annotated pairs a restaurant with its safety classification for responses.
type Annotated struct {
	Restaurant  restaurant.Restaurant `json:"restaurant"`
	SafetyLevel SafetyLevel           `json:"safetyLevel"`
}

// FilterAndAnnotate filters and attaches the safety classification each
// surviving restaurant carries for this user.
func FilterAndAnnotate(candidates []restaurant.Restaurant, prefs profile.UserPreferences, opts Options) []Annotated {
	kept := Filter(candidates, prefs, opts)
	out := make([]Annotated, 0, len(kept))
	for _, r := range kept {
		out = append(out, Annotated{Restaurant: r, SafetyLevel: ClassifySafety(r, prefs)})
	}
	return out
}
