package profile

import (
	"context"
	"time"
)

// Severity classifies how dangerous an allergen is for the user.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Allergen is a user declared allergen with its severity.
type Allergen struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
}

// UserPreferences is the typed form of the persisted preference blob.
// It is decoded exactly once at the aggregation boundary and passed around
// as a value afterwards, never as an untyped map.
type UserPreferences struct {
	SchemaVersion       int        `json:"schemaVersion"`
	DietaryRestrictions []string   `json:"dietaryRestrictions"`
	Allergens           []Allergen `json:"allergens"`
	BudgetLevel         int        `json:"budgetLevel"`
	MaxTravelDistanceKm float64    `json:"maxTravelDistanceKm"`
	MinimumRating       float64    `json:"minimumRating"`
	IncludeChains       bool       `json:"includeChains"`
	WeeklyBudget        float64    `json:"weeklyBudget"`
	TransportMode       string     `json:"transportMode"`
}

// AllergenNames lists declared allergen names in declaration order.
func (p UserPreferences) AllergenNames() []string {
	names := make([]string, 0, len(p.Allergens))
	for _, a := range p.Allergens {
		names = append(names, a.Name)
	}
	return names
}

// MealRecord is a single logged meal. Cuisine is structurally present but the
// current write path never records it; preferredCuisines stays empty until a
// writer starts setting it.
type MealRecord struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	MealType string    `json:"mealType"`
	Cost     float64   `json:"cost"`
	Cuisine  *string   `json:"cuisine,omitempty"`
	EatenAt  time.Time `json:"eatenAt"`
}

// Repository persists user preferences and meal history.
type Repository interface {
	GetPreferencesBlob(ctx context.Context, userID string) ([]byte, bool, error)
	SavePreferences(ctx context.Context, userID string, prefs UserPreferences) error
	InsertMeal(ctx context.Context, meal MealRecord) (MealRecord, error)
	MealsInRange(ctx context.Context, userID string, start, end time.Time) ([]MealRecord, error)
}
