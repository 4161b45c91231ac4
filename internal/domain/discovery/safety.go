package discovery

import (
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/scoring"
)

// SafetyLevel is a qualitative allergen-risk classification.
type SafetyLevel string

const (
	// SafetyWarning means a declared user allergen appears in the
	// restaurant's allergen info.
	SafetyWarning SafetyLevel = "warning"
	// SafetyVerified means the restaurant has verified dietary info covering
	// the user's restrictions.
	SafetyVerified SafetyLevel = "verified"
	// SafetyCaution means the user has restrictions the restaurant cannot be
	// confirmed to handle.
	SafetyCaution SafetyLevel = "caution"
	// SafetySafe means nothing risky was detected.
	SafetySafe SafetyLevel = "safe"
)

// ClassifySafety derives the allergen-risk level of a restaurant for a user.
// A "warning" never removes a restaurant from results; it only obliges the
// consuming layer to flag it so the user can make an informed choice.
func ClassifySafety(r restaurant.Restaurant, prefs profile.UserPreferences) SafetyLevel {
	for _, allergen := range prefs.AllergenNames() {
		if r.ContainsAllergen(allergen) {
			return SafetyWarning
		}
	}
	if len(prefs.DietaryRestrictions) == 0 {
		return SafetySafe
	}
	dietary := scoring.DietaryScore(prefs.DietaryRestrictions, r)
	if r.HasVerifiedDietaryInfo && dietary >= scoring.VerificationThreshold {
		return SafetyVerified
	}
	return SafetyCaution
}
