// Package scoring computes compatibility between a user context and candidate
// restaurants. Everything here is pure and deterministic: identical inputs
// always produce the identical float, and nothing mutates shared state, so
// the functions are safe to call from any number of concurrent requests.
package scoring

import (
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

// Sub-score weights. Must sum to 1.0.
const (
	WeightBudget     = 0.25
	WeightDietary    = 0.25
	WeightLocation   = 0.20
	WeightQuality    = 0.15
	WeightTemporal   = 0.10
	WeightPriceLevel = 0.05
)

// Distance thresholds used when the context carries none.
const (
	PreferredDistanceMeters = 2000.0
	MaxDistanceMeters       = 10000.0
)

// Defaults for absent optional restaurant fields.
const (
	DefaultRating     = 3.0
	DefaultMealCost   = 20.0
	DefaultPriceLevel = 2

	// tooCheapScore is the fixed penalty for a meal cost under the budget
	// floor: suspiciously cheap can signal lower quality.
	tooCheapScore = 0.7
	// overBudgetCap caps the score when cost exceeds the budget ceiling,
	// even when only slightly over.
	overBudgetCap = 0.5

	// neutralLocationScore applies when either side has no usable location.
	neutralLocationScore = 0.5

	// VerificationThreshold is the dietary sub-score below which an
	// unverified restaurant fails strict dietary filtering.
	VerificationThreshold = 0.8
)

// priceLevelAnchors maps a 1-4 price level to an expected meal cost.
var priceLevelAnchors = map[int]float64{
	1: 10.0,
	2: 20.0,
	3: 40.0,
	4: 70.0,
}

// Breakdown exposes the individual sub-scores behind a compatibility score.
type Breakdown struct {
	Budget     float64 `json:"budget"`
	Dietary    float64 `json:"dietary"`
	Location   float64 `json:"location"`
	Quality    float64 `json:"quality"`
	Temporal   float64 `json:"temporal"`
	PriceLevel float64 `json:"priceLevel"`
}

// Total folds the sub-scores into the weighted compatibility score.
func (b Breakdown) Total() float64 {
	return WeightBudget*b.Budget +
		WeightDietary*b.Dietary +
		WeightLocation*b.Location +
		WeightQuality*b.Quality +
		WeightTemporal*b.Temporal +
		WeightPriceLevel*b.PriceLevel
}

// Score returns the weighted [0,1] compatibility of a restaurant for a user
// context.
func Score(ctx recctx.Context, r restaurant.Restaurant) float64 {
	return Compute(ctx, r).Total()
}

// Compute evaluates all six sub-scores.
func Compute(ctx recctx.Context, r restaurant.Restaurant) Breakdown {
	return Breakdown{
		Budget:     BudgetScore(ctx.Budget, r),
		Dietary:    DietaryScore(ctx.Dietary.Restrictions, r),
		Location:   LocationScore(ctx.Location, r),
		Quality:    QualityScore(r),
		Temporal:   TemporalScore(r),
		PriceLevel: PriceLevelScore(ctx.Budget, r),
	}
}

// BudgetScore rates how well the expected meal cost fits the budget window.
// Within the window, closeness to the preferred cost wins; under the floor a
// fixed penalty applies; over the ceiling the score decays and is capped.
func BudgetScore(budget recctx.BudgetContext, r restaurant.Restaurant) float64 {
	preferred := budget.Preferred
	if preferred <= 0 {
		preferred = DefaultMealCost
	}
	cost := preferred
	if r.AverageMealCost != nil && *r.AverageMealCost > 0 {
		cost = *r.AverageMealCost
	}

	switch {
	case cost < budget.Min:
		return tooCheapScore
	case budget.Max > 0 && cost > budget.Max:
		return clamp(1-(cost-budget.Max)/budget.Max, 0, overBudgetCap)
	default:
		return clamp(1-abs(cost-preferred)/preferred, 0, 1)
	}
}

// DietaryScore averages per-restriction fit. No declared restrictions means a
// perfect score regardless of what the restaurant reports about itself.
func DietaryScore(restrictions []string, r restaurant.Restaurant) float64 {
	if len(restrictions) == 0 {
		return 1.0
	}
	var total float64
	for _, restriction := range restrictions {
		switch {
		case r.SupportsRestriction(restriction):
			total += 1.0
		default:
			if s, ok := r.DietaryCompatibilityScores[restriction]; ok {
				total += clamp(s, 0, 1)
			}
		}
	}
	return total / float64(len(restrictions))
}

// LocationScore is neutral without a live location or computed distance, full
// within the preferred threshold, then decays linearly to zero at the max.
func LocationScore(loc recctx.LocationContext, r restaurant.Restaurant) float64 {
	if !loc.HasLocation || r.DistanceMeters == nil {
		return neutralLocationScore
	}
	preferred := loc.PreferredDistanceMeters
	if preferred <= 0 {
		preferred = PreferredDistanceMeters
	}
	max := loc.MaxDistanceMeters
	if max <= preferred {
		max = MaxDistanceMeters
	}

	d := *r.DistanceMeters
	switch {
	case d <= preferred:
		return 1.0
	case d >= max:
		return 0.0
	default:
		return 1 - (d-preferred)/(max-preferred)
	}
}

// QualityScore maps the star rating onto [0,1].
func QualityScore(r restaurant.Restaurant) float64 {
	rating := DefaultRating
	if r.Rating != nil {
		rating = *r.Rating
	}
	return clamp(rating/5.0, 0, 1)
}

// TemporalScore is binary on open-now. Unknown open status counts as open:
// missing optional fields must never act as a hard penalty.
func TemporalScore(r restaurant.Restaurant) float64 {
	if r.IsOpenNow != nil && !*r.IsOpenNow {
		return 0.0
	}
	return 1.0
}

// PriceLevelScore compares the price-level cost anchor against the preferred
// meal cost.
func PriceLevelScore(budget recctx.BudgetContext, r restaurant.Restaurant) float64 {
	preferred := budget.Preferred
	if preferred <= 0 {
		preferred = DefaultMealCost
	}
	level := DefaultPriceLevel
	if r.PriceLevel != nil {
		level = *r.PriceLevel
	}
	anchor, ok := priceLevelAnchors[level]
	if !ok {
		anchor = priceLevelAnchors[DefaultPriceLevel]
	}
	return clamp(1-abs(anchor-preferred)/preferred, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
