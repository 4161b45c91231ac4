package recctx

import (
	"time"
)

// ContextFreshness is how long a generated context stays usable. Stale
// contexts must be regenerated before scoring against them.
const ContextFreshness = 30 * time.Minute

// MealTime buckets the wall clock into the app's meal periods.
type MealTime string

const (
	MealTimeBreakfast MealTime = "breakfast"
	MealTimeLunch     MealTime = "lunch"
	MealTimeAfternoon MealTime = "afternoon"
	MealTimeDinner    MealTime = "dinner"
	MealTimeLateNight MealTime = "late_night"
)

// DietaryContext captures explicit dietary settings plus signals mined from
// recent meal history.
type DietaryContext struct {
	Restrictions       []string `json:"restrictions"`
	Allergies          []string `json:"allergies"`
	PreferredCuisines  []string `json:"preferredCuisines"`
	PreferredMealTypes []string `json:"preferredMealTypes"`
}

// BudgetContext is derived from the declared weekly budget and meal history.
type BudgetContext struct {
	WeeklyBudget          float64 `json:"weeklyBudget"`
	CurrentWeekSpent      float64 `json:"currentWeekSpent"`
	RemainingWeeklyBudget float64 `json:"remainingWeeklyBudget"`
	AvgMealCost           float64 `json:"avgMealCost"`
	MaxMealCost           float64 `json:"maxMealCost"`
	// Min <= Preferred <= Max is a soft target, not enforced.
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Preferred float64 `json:"preferred"`
}

// LocationContext is either a live position with recommendation thresholds or
// a "no location" marker carrying only the search radius.
type LocationContext struct {
	HasLocation bool    `json:"hasLocation"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	// SearchRadiusMeters bounds candidate search, not scoring.
	SearchRadiusMeters float64 `json:"searchRadius"`
	// Preferred/Max distance thresholds are fixed scoring constants, distinct
	// from the user's own max travel distance preference used by discovery.
	PreferredDistanceMeters float64 `json:"preferredDistanceThreshold,omitempty"`
	MaxDistanceMeters       float64 `json:"maxDistanceThreshold,omitempty"`
	TransportMode           string  `json:"transportMode,omitempty"`
}

// TemporalContext is derived purely from the wall clock at generation time.
type TemporalContext struct {
	Hour                 int      `json:"hour"`
	DayOfWeek            int      `json:"dayOfWeek"` // ISO: Monday=1 .. Sunday=7
	MealTime             MealTime `json:"mealTime"`
	AppropriateMealTypes []string `json:"appropriateMealTypes"`
	IsWeekend            bool     `json:"isWeekend"`
	IsBusinessHours      bool     `json:"isBusinessHours"`
	IsRushHour           bool     `json:"isRushHour"`
}

// PreferenceScores are learned behavioral weights, each in [0,1].
type PreferenceScores struct {
	QualityOverPrice        float64 `json:"quality_over_price"`
	ConvenienceOverDistance float64 `json:"convenience_over_distance"`
	FamiliarityOverNovelty  float64 `json:"familiarity_over_novelty"`
	HealthConsciousness     float64 `json:"health_consciousness"`
	PriceSensitivity        float64 `json:"price_sensitivity"`
	VarietySeeking          float64 `json:"variety_seeking"`
	TimeSensitivity         float64 `json:"time_sensitivity"`
}

// Context is an immutable snapshot of everything scoring needs to know about
// a user. Built on demand per request, discarded after use; only its source
// data is persisted.
type Context struct {
	UserID      string           `json:"userId"`
	Dietary     DietaryContext   `json:"dietaryPreferences"`
	Budget      BudgetContext    `json:"budgetConstraints"`
	Location    LocationContext  `json:"locationContext"`
	RecentMeals []string         `json:"recentMealHistory"`
	Temporal    TemporalContext  `json:"temporalContext"`
	Scores      PreferenceScores `json:"preferenceScores"`
	GeneratedAt time.Time        `json:"contextGeneratedAt"`
}

// Fresh reports whether the context may still be used at the given time.
func (c Context) Fresh(now time.Time) bool {
	return now.Sub(c.GeneratedAt) < ContextFreshness
}

// Position is a live device location supplied by the caller.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}
