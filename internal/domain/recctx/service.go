package recctx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/util"
)

// History windows feeding the derived context.
const (
	recentHistoryWindow = 7 * 24 * time.Hour
	mealStatsWindowDays = 30
	behaviorWindowDays  = 90
)

// Location constants. The preferred/max thresholds are deliberately fixed and
// not user-configurable; the user's own travel preference drives discovery
// filtering instead.
const (
	defaultSearchRadiusMeters      = 5000.0
	preferredDistanceMeters        = 2000.0
	maxRecommendedDistanceMeters   = 10000.0
	defaultAvgMealCost             = 20.0
	defaultMaxMealCost             = 50.0
	budgetFloorMin, budgetFloorMax = 5.0, 100.0
	weeklyBudgetMealShare          = 0.4
	varietyMealTypeCeiling         = 8
)

// defaultScores apply to users with no meal history in the behavior window.
var defaultScores = PreferenceScores{
	QualityOverPrice:        0.7,
	ConvenienceOverDistance: 0.6,
	FamiliarityOverNovelty:  0.5,
	HealthConsciousness:     0.6,
	PriceSensitivity:        0.7,
	VarietySeeking:          0.5,
	TimeSensitivity:         0.6,
}

// Service builds user recommendation contexts on demand.
type Service interface {
	Generate(ctx context.Context, userID string, pos *Position) (Context, error)
}

type service struct {
	repo   profile.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the context aggregator.
func NewService(repo profile.Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With("component", "recctx.service"),
		now:    util.NowUTC,
	}
}

// Generate assembles a fresh context snapshot from persisted preferences and
// meal history plus an optional live position. Any persistence read failure is
// fatal for the enclosing request: defaults cannot substitute for real data
// without biasing recommendations.
func (s *service) Generate(ctx context.Context, userID string, pos *Position) (Context, error) {
	if userID == "" {
		return Context{}, apperrors.Wrap("invalid_input", "user id cannot be empty", nil)
	}
	now := s.now()

	var (
		blob                              []byte
		hasBlob                           bool
		weekMeals, monthMeals, quarterMeals []profile.MealRecord
	)

	// The four reads are independent of each other; issue them concurrently.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		blob, hasBlob, err = s.repo.GetPreferencesBlob(groupCtx, userID)
		return err
	})
	group.Go(func() error {
		var err error
		weekMeals, err = s.repo.MealsInRange(groupCtx, userID, util.StartOfWeek(now), now)
		return err
	})
	group.Go(func() error {
		var err error
		monthMeals, err = s.repo.MealsInRange(groupCtx, userID, now.AddDate(0, 0, -mealStatsWindowDays), now)
		return err
	})
	group.Go(func() error {
		var err error
		quarterMeals, err = s.repo.MealsInRange(groupCtx, userID, now.AddDate(0, 0, -behaviorWindowDays), now)
		return err
	})
	if err := group.Wait(); err != nil {
		return Context{}, apperrors.Wrap("context_error", "failed to load recommendation inputs", err)
	}

	if hasBlob && len(blob) > 0 && !json.Valid(blob) {
		s.logger.Warn("preference blob malformed, using defaults", "user_id", userID)
	}
	prefs := profile.DecodePreferences(blob)

	return Context{
		UserID:      userID,
		Dietary:     buildDietary(prefs, monthMeals),
		Budget:      buildBudget(prefs.WeeklyBudget, weekMeals, monthMeals),
		Location:    buildLocation(pos, prefs.TransportMode),
		RecentMeals: formatRecentMeals(monthMeals, now),
		Temporal:    buildTemporal(now),
		Scores:      deriveScores(quarterMeals),
		GeneratedAt: now,
	}, nil
}

func buildDietary(prefs profile.UserPreferences, meals []profile.MealRecord) DietaryContext {
	mealTypes := make(map[string]int)
	cuisines := make(map[string]int)
	for _, m := range meals {
		if m.MealType != "" {
			mealTypes[m.MealType]++
		}
		if m.Cuisine != nil && *m.Cuisine != "" {
			cuisines[*m.Cuisine]++
		}
	}
	return DietaryContext{
		Restrictions:       prefs.DietaryRestrictions,
		Allergies:          prefs.AllergenNames(),
		PreferredCuisines:  sortByFrequency(cuisines),
		PreferredMealTypes: sortByFrequency(mealTypes),
	}
}

// sortByFrequency orders keys by descending count, name ascending on ties, so
// the derived lists are deterministic.
func sortByFrequency(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func buildBudget(weeklyBudget float64, weekMeals, monthMeals []profile.MealRecord) BudgetContext {
	var weekSpent float64
	for _, m := range weekMeals {
		weekSpent += m.Cost
	}

	avg, maxCost := defaultAvgMealCost, defaultMaxMealCost
	if len(monthMeals) > 0 {
		var total float64
		maxCost = 0
		for _, m := range monthMeals {
			total += m.Cost
			if m.Cost > maxCost {
				maxCost = m.Cost
			}
		}
		avg = total / float64(len(monthMeals))
	}

	return BudgetContext{
		WeeklyBudget:          weeklyBudget,
		CurrentWeekSpent:      weekSpent,
		RemainingWeeklyBudget: weeklyBudget - weekSpent,
		AvgMealCost:           avg,
		MaxMealCost:           maxCost,
		Min:                   clamp(avg*0.5, budgetFloorMin, budgetFloorMax),
		Max:                   clamp(weeklyBudget*weeklyBudgetMealShare, avg, budgetFloorMax),
		Preferred:             avg,
	}
}

func buildLocation(pos *Position, transportMode string) LocationContext {
	if pos == nil {
		return LocationContext{
			HasLocation:        false,
			SearchRadiusMeters: defaultSearchRadiusMeters,
			TransportMode:      transportMode,
		}
	}
	return LocationContext{
		HasLocation:             true,
		Latitude:                pos.Latitude,
		Longitude:               pos.Longitude,
		Accuracy:                pos.Accuracy,
		SearchRadiusMeters:      defaultSearchRadiusMeters,
		PreferredDistanceMeters: preferredDistanceMeters,
		MaxDistanceMeters:       maxRecommendedDistanceMeters,
		TransportMode:           transportMode,
	}
}

// formatRecentMeals renders the last week of meals as display strings, newest
// first. Informational only; scoring never reads these.
func formatRecentMeals(meals []profile.MealRecord, now time.Time) []string {
	cutoff := now.Add(-recentHistoryWindow)
	recent := make([]profile.MealRecord, 0, len(meals))
	for _, m := range meals {
		if !m.EatenAt.Before(cutoff) {
			recent = append(recent, m)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].EatenAt.After(recent[j].EatenAt)
	})

	out := make([]string, 0, len(recent))
	for _, m := range recent {
		out = append(out, fmt.Sprintf("%s ($%.2f) - %s", m.MealType, m.Cost, relativeDays(m.EatenAt, now)))
	}
	return out
}

func relativeDays(at, now time.Time) string {
	days := int(now.Sub(at).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

// deriveScores mines behavioral weights from the trailing 90 days of meals.
func deriveScores(meals []profile.MealRecord) PreferenceScores {
	if len(meals) == 0 {
		return defaultScores
	}

	var total, maxCost float64
	types := make(map[string]struct{})
	var rushMeals int
	for _, m := range meals {
		total += m.Cost
		if m.Cost > maxCost {
			maxCost = m.Cost
		}
		if m.MealType != "" {
			types[m.MealType] = struct{}{}
		}
		if IsRushHour(m.EatenAt.Hour()) {
			rushMeals++
		}
	}
	avg := total / float64(len(meals))

	var priceSensitivity float64
	if maxCost > 0 {
		priceSensitivity = clamp((maxCost-avg)/maxCost, 0, 1)
	}
	rushFraction := float64(rushMeals) / float64(len(meals))

	return PreferenceScores{
		QualityOverPrice:        1 - priceSensitivity,
		ConvenienceOverDistance: rushFraction,
		FamiliarityOverNovelty:  0.6,
		HealthConsciousness:     0.6,
		PriceSensitivity:        priceSensitivity,
		VarietySeeking:          clamp(float64(len(types))/varietyMealTypeCeiling, 0, 1),
		TimeSensitivity:         rushFraction,
	}
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
