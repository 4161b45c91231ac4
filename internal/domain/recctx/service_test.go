package recctx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
)

// Tuesday 12:00 UTC; week starts Monday 2024-07-01.
var testNow = time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC)

type stubRepo struct {
	blob     []byte
	hasBlob  bool
	blobErr  error
	meals    []profile.MealRecord
	mealsErr error
}

func (s *stubRepo) GetPreferencesBlob(context.Context, string) ([]byte, bool, error) {
	return s.blob, s.hasBlob, s.blobErr
}

func (s *stubRepo) SavePreferences(context.Context, string, profile.UserPreferences) error {
	return nil
}

func (s *stubRepo) InsertMeal(_ context.Context, m profile.MealRecord) (profile.MealRecord, error) {
	return m, nil
}

func (s *stubRepo) MealsInRange(_ context.Context, _ string, start, end time.Time) ([]profile.MealRecord, error) {
	if s.mealsErr != nil {
		return nil, s.mealsErr
	}
	var out []profile.MealRecord
	for _, m := range s.meals {
		if !m.EatenAt.Before(start) && !m.EatenAt.After(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

func newServiceUnderTest(repo profile.Repository) *service {
	return &service{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return testNow },
	}
}

func meal(mealType string, cost float64, at time.Time) profile.MealRecord {
	return profile.MealRecord{UserID: "u1", MealType: mealType, Cost: cost, EatenAt: at}
}

func TestGenerateZeroHistoryDefaults(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{})

	ctx, err := svc.Generate(context.Background(), "u1", nil)
	require.NoError(t, err)

	require.Equal(t, "u1", ctx.UserID)
	require.Equal(t, defaultScores, ctx.Scores, "zero history yields the documented literal defaults")
	require.Equal(t, 0.7, ctx.Scores.QualityOverPrice)
	require.Equal(t, 0.7, ctx.Scores.PriceSensitivity)
	require.Equal(t, 0.5, ctx.Scores.VarietySeeking)

	require.Equal(t, 200.0, ctx.Budget.WeeklyBudget)
	require.Equal(t, 0.0, ctx.Budget.CurrentWeekSpent)
	require.Equal(t, 200.0, ctx.Budget.RemainingWeeklyBudget)
	require.Equal(t, 20.0, ctx.Budget.AvgMealCost)
	require.Equal(t, 50.0, ctx.Budget.MaxMealCost)
	require.Equal(t, 10.0, ctx.Budget.Min)    // clamp(20*0.5, 5, 100)
	require.Equal(t, 80.0, ctx.Budget.Max)    // clamp(200*0.4, 20, 100)
	require.Equal(t, 20.0, ctx.Budget.Preferred)

	require.False(t, ctx.Location.HasLocation)
	require.Equal(t, 5000.0, ctx.Location.SearchRadiusMeters)
	require.Empty(t, ctx.RecentMeals)
	require.Equal(t, testNow, ctx.GeneratedAt)
}

func TestGenerateBudgetFromHistory(t *testing.T) {
	repo := &stubRepo{
		blob:    []byte(`{"weeklyBudget": 100}`),
		hasBlob: true,
		meals: []profile.MealRecord{
			meal("lunch", 10, testNow.Add(-2*time.Hour)),         // this week
			meal("dinner", 30, testNow.Add(-26*time.Hour)),       // this week (Monday)
			meal("lunch", 20, testNow.AddDate(0, 0, -10)),        // 30d window only
			meal("dinner", 60, testNow.AddDate(0, 0, -40)),       // 90d window only
		},
	}
	svc := newServiceUnderTest(repo)

	ctx, err := svc.Generate(context.Background(), "u1", nil)
	require.NoError(t, err)

	require.Equal(t, 100.0, ctx.Budget.WeeklyBudget)
	require.Equal(t, 40.0, ctx.Budget.CurrentWeekSpent)
	require.Equal(t, 60.0, ctx.Budget.RemainingWeeklyBudget)
	require.Equal(t, 20.0, ctx.Budget.AvgMealCost) // (10+30+20)/3
	require.Equal(t, 30.0, ctx.Budget.MaxMealCost)
	require.Equal(t, 10.0, ctx.Budget.Min)
	require.Equal(t, 40.0, ctx.Budget.Max) // clamp(100*0.4, 20, 100)
	require.Equal(t, 20.0, ctx.Budget.Preferred)
}

func TestGenerateDerivedScores(t *testing.T) {
	// Four meals in the 90-day window: avg 25, max 40.
	repo := &stubRepo{
		meals: []profile.MealRecord{
			meal("lunch", 10, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),   // rush hour
			meal("lunch", 20, time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)),  // not rush
			meal("dinner", 30, time.Date(2024, 6, 3, 18, 30, 0, 0, time.UTC)), // rush hour
			meal("snack", 40, time.Date(2024, 6, 4, 15, 0, 0, 0, time.UTC)),  // not rush
		},
	}
	svc := newServiceUnderTest(repo)

	ctx, err := svc.Generate(context.Background(), "u1", nil)
	require.NoError(t, err)

	require.InDelta(t, 0.375, ctx.Scores.PriceSensitivity, 1e-9) // (40-25)/40
	require.InDelta(t, 0.625, ctx.Scores.QualityOverPrice, 1e-9)
	require.InDelta(t, 0.375, ctx.Scores.VarietySeeking, 1e-9) // 3 types / 8
	require.InDelta(t, 0.5, ctx.Scores.TimeSensitivity, 1e-9)  // 2 of 4 during rush
	require.InDelta(t, 0.5, ctx.Scores.ConvenienceOverDistance, 1e-9)
	require.Equal(t, 0.6, ctx.Scores.FamiliarityOverNovelty)
	require.Equal(t, 0.6, ctx.Scores.HealthConsciousness)
}

func TestGenerateDietaryAndHistory(t *testing.T) {
	repo := &stubRepo{
		blob:    []byte(`{"dietaryRestrictions":["vegetarian"],"allergens":[{"name":"peanut","severity":"severe"}]}`),
		hasBlob: true,
		meals: []profile.MealRecord{
			meal("lunch", 12.5, testNow.Add(-48*time.Hour)),
			meal("lunch", 11, testNow.AddDate(0, 0, -9)),
			meal("dinner", 25, testNow.Add(-20*time.Hour)),
			meal("dinner", 28, testNow.AddDate(0, 0, -12)),
			meal("lunch", 9, testNow.AddDate(0, 0, -14)),
		},
	}
	svc := newServiceUnderTest(repo)

	ctx, err := svc.Generate(context.Background(), "u1", nil)
	require.NoError(t, err)

	require.Equal(t, []string{"vegetarian"}, ctx.Dietary.Restrictions)
	require.Equal(t, []string{"peanut"}, ctx.Dietary.Allergies)
	require.Equal(t, []string{"lunch", "dinner"}, ctx.Dietary.PreferredMealTypes)
	require.Empty(t, ctx.Dietary.PreferredCuisines, "no cuisine is ever recorded on meals")

	// Only the two meals within the last 7 days appear, newest first.
	require.Equal(t, []string{
		"dinner ($25.00) - today",
		"lunch ($12.50) - 2 days ago",
	}, ctx.RecentMeals)
}

func TestGenerateWithPosition(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{})

	ctx, err := svc.Generate(context.Background(), "u1", &Position{Latitude: 1.3521, Longitude: 103.8198, Accuracy: 12})
	require.NoError(t, err)

	require.True(t, ctx.Location.HasLocation)
	require.Equal(t, 1.3521, ctx.Location.Latitude)
	require.Equal(t, 2000.0, ctx.Location.PreferredDistanceMeters)
	require.Equal(t, 10000.0, ctx.Location.MaxDistanceMeters)
	require.Equal(t, 5000.0, ctx.Location.SearchRadiusMeters)
}

func TestGenerateMalformedPreferencesDegradesToDefaults(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{blob: []byte(`{"weeklyBudget":`), hasBlob: true})

	ctx, err := svc.Generate(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Equal(t, 200.0, ctx.Budget.WeeklyBudget)
}

func TestGenerateRepoFailureIsFatal(t *testing.T) {
	svc := newServiceUnderTest(&stubRepo{mealsErr: errors.New("connection reset")})

	_, err := svc.Generate(context.Background(), "u1", nil)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "context_error"))
}

func TestContextFreshness(t *testing.T) {
	ctx := Context{GeneratedAt: testNow}
	require.True(t, ctx.Fresh(testNow.Add(29*time.Minute)))
	require.False(t, ctx.Fresh(testNow.Add(31*time.Minute)))
}
