package profile

import "encoding/json"

const (
	// CurrentSchemaVersion is stamped onto newly saved preference blobs.
	CurrentSchemaVersion = 1

	defaultWeeklyBudget        = 200.0
	defaultBudgetLevel         = 2
	defaultMaxTravelDistanceKm = 10.0
)

// DefaultPreferences returns the preferences used for users who have never
// saved any, and the base onto which partial blobs are layered.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		SchemaVersion:       CurrentSchemaVersion,
		BudgetLevel:         defaultBudgetLevel,
		MaxTravelDistanceKm: defaultMaxTravelDistanceKm,
		IncludeChains:       true,
		WeeklyBudget:        defaultWeeklyBudget,
	}
}

// preferencesWire mirrors UserPreferences with optional fields so that absent
// keys fall back to defaults instead of zero values.
type preferencesWire struct {
	SchemaVersion       *int       `json:"schemaVersion"`
	DietaryRestrictions []string   `json:"dietaryRestrictions"`
	Allergens           []Allergen `json:"allergens"`
	BudgetLevel         *int       `json:"budgetLevel"`
	MaxTravelDistanceKm *float64   `json:"maxTravelDistanceKm"`
	MinimumRating       *float64   `json:"minimumRating"`
	IncludeChains       *bool      `json:"includeChains"`
	WeeklyBudget        *float64   `json:"weeklyBudget"`
	TransportMode       *string    `json:"transportMode"`
}

// DecodePreferences turns a persisted JSON blob into typed preferences.
// An empty or malformed blob degrades to defaults rather than failing:
// corrupt local state must never block the user from getting recommendations.
func DecodePreferences(raw []byte) UserPreferences {
	prefs := DefaultPreferences()
	if len(raw) == 0 {
		return prefs
	}
	var wire preferencesWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return prefs
	}
	if wire.SchemaVersion != nil && *wire.SchemaVersion > 0 {
		prefs.SchemaVersion = *wire.SchemaVersion
	}
	if len(wire.DietaryRestrictions) > 0 {
		prefs.DietaryRestrictions = dedupeNonEmpty(wire.DietaryRestrictions)
	}
	if len(wire.Allergens) > 0 {
		prefs.Allergens = sanitizeAllergens(wire.Allergens)
	}
	if wire.BudgetLevel != nil {
		prefs.BudgetLevel = clampBudgetLevel(*wire.BudgetLevel)
	}
	if wire.MaxTravelDistanceKm != nil && *wire.MaxTravelDistanceKm > 0 {
		prefs.MaxTravelDistanceKm = *wire.MaxTravelDistanceKm
	}
	if wire.MinimumRating != nil && *wire.MinimumRating > 0 {
		prefs.MinimumRating = *wire.MinimumRating
	}
	if wire.IncludeChains != nil {
		prefs.IncludeChains = *wire.IncludeChains
	}
	if wire.WeeklyBudget != nil && *wire.WeeklyBudget > 0 {
		prefs.WeeklyBudget = *wire.WeeklyBudget
	}
	if wire.TransportMode != nil && *wire.TransportMode != "" {
		prefs.TransportMode = *wire.TransportMode
	}
	return prefs
}

// EncodePreferences serializes typed preferences for persistence, stamping the
// current schema version.
func EncodePreferences(prefs UserPreferences) ([]byte, error) {
	prefs.SchemaVersion = CurrentSchemaVersion
	prefs.BudgetLevel = clampBudgetLevel(prefs.BudgetLevel)
	return json.Marshal(prefs)
}

func clampBudgetLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 4 {
		return 4
	}
	return level
}

func dedupeNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func sanitizeAllergens(items []Allergen) []Allergen {
	out := make([]Allergen, 0, len(items))
	for _, a := range items {
		if a.Name == "" {
			continue
		}
		switch a.Severity {
		case SeverityMild, SeverityModerate, SeveritySevere:
		default:
			a.Severity = SeverityModerate
		}
		out = append(out, a)
	}
	return out
}
