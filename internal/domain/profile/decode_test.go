package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePreferencesEmptyBlob(t *testing.T) {
	prefs := DecodePreferences(nil)
	require.Equal(t, DefaultPreferences(), prefs)
	require.Equal(t, 200.0, prefs.WeeklyBudget)
	require.Equal(t, 2, prefs.BudgetLevel)
	require.True(t, prefs.IncludeChains)
}

func TestDecodePreferencesMalformedBlobDegradesToDefaults(t *testing.T) {
	prefs := DecodePreferences([]byte(`{"budgetLevel": "not a number"`))
	require.Equal(t, DefaultPreferences(), prefs)
}

func TestDecodePreferencesPartialBlob(t *testing.T) {
	raw := []byte(`{
		"schemaVersion": 1,
		"dietaryRestrictions": ["vegetarian", "", "vegetarian", "halal"],
		"allergens": [{"name":"peanut","severity":"severe"},{"name":"","severity":"mild"},{"name":"shellfish","severity":"bogus"}],
		"budgetLevel": 9,
		"weeklyBudget": 150,
		"includeChains": false
	}`)
	prefs := DecodePreferences(raw)

	require.Equal(t, []string{"vegetarian", "halal"}, prefs.DietaryRestrictions)
	require.Equal(t, []Allergen{
		{Name: "peanut", Severity: SeveritySevere},
		{Name: "shellfish", Severity: SeverityModerate},
	}, prefs.Allergens)
	require.Equal(t, 4, prefs.BudgetLevel, "budget level clamps into [1,4]")
	require.Equal(t, 150.0, prefs.WeeklyBudget)
	require.False(t, prefs.IncludeChains)
	require.Equal(t, 10.0, prefs.MaxTravelDistanceKm, "absent fields keep defaults")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.DietaryRestrictions = []string{"vegan"}
	prefs.BudgetLevel = 3
	prefs.WeeklyBudget = 120

	raw, err := EncodePreferences(prefs)
	require.NoError(t, err)

	got := DecodePreferences(raw)
	require.Equal(t, prefs, got)
}

func TestAllergenNames(t *testing.T) {
	prefs := UserPreferences{Allergens: []Allergen{
		{Name: "peanut", Severity: SeveritySevere},
		{Name: "dairy", Severity: SeverityMild},
	}}
	require.Equal(t, []string{"peanut", "dairy"}, prefs.AllergenNames())
}
