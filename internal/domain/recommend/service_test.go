package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/discovery"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/llm/gemini"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/places"
	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
)

type stubContextService struct {
	generate func(ctx context.Context, userID string, pos *recctx.Position) (recctx.Context, error)
}

func (s *stubContextService) Generate(ctx context.Context, userID string, pos *recctx.Position) (recctx.Context, error) {
	return s.generate(ctx, userID, pos)
}

type stubProfileRepo struct {
	getBlob func(ctx context.Context, userID string) ([]byte, bool, error)
}

func (s *stubProfileRepo) GetPreferencesBlob(ctx context.Context, userID string) ([]byte, bool, error) {
	if s.getBlob == nil {
		return nil, false, nil
	}
	return s.getBlob(ctx, userID)
}

func (s *stubProfileRepo) SavePreferences(context.Context, string, profile.UserPreferences) error {
	return nil
}

func (s *stubProfileRepo) InsertMeal(_ context.Context, meal profile.MealRecord) (profile.MealRecord, error) {
	return meal, nil
}

func (s *stubProfileRepo) MealsInRange(context.Context, string, time.Time, time.Time) ([]profile.MealRecord, error) {
	return nil, nil
}

type stubRestaurantRepo struct {
	getByPlaceID func(ctx context.Context, placeID string) (restaurant.Restaurant, bool, error)
	upsert       func(ctx context.Context, r restaurant.Restaurant) error
	listAll      func(ctx context.Context) ([]restaurant.Restaurant, error)
}

func (s *stubRestaurantRepo) GetByPlaceID(ctx context.Context, placeID string) (restaurant.Restaurant, bool, error) {
	if s.getByPlaceID == nil {
		return restaurant.Restaurant{}, false, nil
	}
	return s.getByPlaceID(ctx, placeID)
}

func (s *stubRestaurantRepo) Upsert(ctx context.Context, r restaurant.Restaurant) error {
	if s.upsert == nil {
		return nil
	}
	return s.upsert(ctx, r)
}

func (s *stubRestaurantRepo) ListAll(ctx context.Context) ([]restaurant.Restaurant, error) {
	if s.listAll == nil {
		return nil, nil
	}
	return s.listAll(ctx)
}

type stubSearchCache struct {
	get  func(ctx context.Context, key string) ([]restaurant.Restaurant, bool, error)
	save func(ctx context.Context, key string, list []restaurant.Restaurant, ttl time.Duration) error
}

func (s *stubSearchCache) GetSearch(ctx context.Context, key string) ([]restaurant.Restaurant, bool, error) {
	if s.get == nil {
		return nil, false, nil
	}
	return s.get(ctx, key)
}

func (s *stubSearchCache) SaveSearch(ctx context.Context, key string, list []restaurant.Restaurant, ttl time.Duration) error {
	if s.save == nil {
		return nil
	}
	return s.save(ctx, key, list, ttl)
}

type stubRecCache struct {
	get  func(ctx context.Context, key string) (Response, bool, error)
	save func(ctx context.Context, key string, res Response, ttl time.Duration) error
}

func (s *stubRecCache) GetRecommendation(ctx context.Context, key string) (Response, bool, error) {
	if s.get == nil {
		return Response{}, false, nil
	}
	return s.get(ctx, key)
}

func (s *stubRecCache) SaveRecommendation(ctx context.Context, key string, res Response, ttl time.Duration) error {
	if s.save == nil {
		return nil
	}
	return s.save(ctx, key, res, ttl)
}

type stubPlaces struct {
	search func(ctx context.Context, req places.SearchRequest) ([]restaurant.Restaurant, error)
}

func (s *stubPlaces) SearchNearby(ctx context.Context, req places.SearchRequest) ([]restaurant.Restaurant, error) {
	return s.search(ctx, req)
}

type stubGemini struct {
	generate func(ctx context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

func (s *stubGemini) GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	return s.generate(ctx, req)
}

func geminiReply(t *testing.T, text string) gemini.GenerateContentResponse {
	t.Helper()
	payload := fmt.Sprintf(
		`{"candidates":[{"content":{"parts":[{"text":%s}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":100,"candidatesTokenCount":20,"totalTokenCount":120}}`,
		strconv.Quote(text))
	var resp gemini.GenerateContentResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	return resp
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lunchContext(lat, lng float64) recctx.Context {
	return recctx.Context{
		UserID: "u1",
		Budget: recctx.BudgetContext{Min: 10, Max: 40, Preferred: 20},
		Location: recctx.LocationContext{
			HasLocation:        true,
			Latitude:           lat,
			Longitude:          lng,
			SearchRadiusMeters: 5000,
		},
		Temporal:    recctx.TemporalContext{MealTime: recctx.MealTimeLunch},
		GeneratedAt: time.Now().UTC(),
	}
}

func testRestaurant(id, name string) restaurant.Restaurant {
	rating := 4.2
	cost := 18.0
	return restaurant.Restaurant{
		PlaceID:         id,
		Name:            name,
		Latitude:        1.30,
		Longitude:       103.85,
		Rating:          &rating,
		AverageMealCost: &cost,
	}
}

func newPipeline(t *testing.T, opts func(*stubContextService, *stubRestaurantRepo, *stubSearchCache, *stubRecCache, *stubPlaces, *stubGemini)) Service {
	t.Helper()
	ctxSvc := &stubContextService{
		generate: func(context.Context, string, *recctx.Position) (recctx.Context, error) {
			return lunchContext(1.30, 103.85), nil
		},
	}
	profileRepo := &stubProfileRepo{}
	repo := &stubRestaurantRepo{}
	searchCache := &stubSearchCache{}
	recCache := &stubRecCache{}
	placesAPI := &stubPlaces{
		search: func(context.Context, places.SearchRequest) ([]restaurant.Restaurant, error) {
			return []restaurant.Restaurant{testRestaurant("p1", "Noodle House"), testRestaurant("p2", "Corner Cafe")}, nil
		},
	}
	llm := &stubGemini{
		generate: func(_ context.Context, _ gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
			return geminiReply(t, `{"summary":"Noodles fit your budget.","picks":[{"placeId":"p1","reason":"Within budget and close by"}]}`), nil
		},
	}
	if opts != nil {
		opts(ctxSvc, repo, searchCache, recCache, placesAPI, llm)
	}
	cfg := Config{Model: "gemini-1.5-flash", MaxCandidates: 20, CacheTTL: 15 * time.Minute}
	return NewService(cfg, ctxSvc, profileRepo, repo, searchCache, recCache, placesAPI, llm, testLogger())
}

func TestRecommendHappyPath(t *testing.T) {
	var saved *Response
	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, recCache *stubRecCache, _ *stubPlaces, _ *stubGemini) {
		recCache.save = func(_ context.Context, _ string, res Response, ttl time.Duration) error {
			saved = &res
			require.Equal(t, 15*time.Minute, ttl)
			return nil
		}
	})

	res, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.NoError(t, err)
	require.Len(t, res.Picks, 1)
	require.Equal(t, "p1", res.Picks[0].Restaurant.PlaceID)
	require.Equal(t, "Within budget and close by", res.Picks[0].Reason)
	require.Greater(t, res.Picks[0].Score, 0.0)
	require.NotNil(t, res.Picks[0].Restaurant.DistanceMeters)
	require.Equal(t, "Noodles fit your budget.", res.Summary)
	require.Equal(t, recctx.MealTimeLunch, res.MealTime)
	require.Equal(t, 120, res.TokenUsage.TotalTokens)
	require.NotNil(t, saved)
}

func TestRecommendEmptyCandidatesSkipsLLM(t *testing.T) {
	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, placesAPI *stubPlaces, llm *stubGemini) {
		placesAPI.search = func(context.Context, places.SearchRequest) ([]restaurant.Restaurant, error) {
			return nil, nil
		}
		llm.generate = func(context.Context, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
			t.Fatal("llm must not be called with no candidates")
			return gemini.GenerateContentResponse{}, nil
		}
	})

	res, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.NoError(t, err)
	require.Empty(t, res.Picks)
	require.Equal(t, recctx.MealTimeLunch, res.MealTime)
}

func TestRecommendCacheHit(t *testing.T) {
	cached := Response{Summary: "from cache", MealTime: recctx.MealTimeLunch}
	svc := newPipeline(t, func(ctxSvc *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, recCache *stubRecCache, _ *stubPlaces, _ *stubGemini) {
		recCache.get = func(context.Context, string) (Response, bool, error) {
			return cached, true, nil
		}
		ctxSvc.generate = func(context.Context, string, *recctx.Position) (recctx.Context, error) {
			t.Fatal("context must not be generated on a cache hit")
			return recctx.Context{}, nil
		}
	})

	res, err := svc.Recommend(context.Background(), Request{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "from cache", res.Summary)
}

func TestRecommendContextErrorIsFatal(t *testing.T) {
	svc := newPipeline(t, func(ctxSvc *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, _ *stubPlaces, _ *stubGemini) {
		ctxSvc.generate = func(context.Context, string, *recctx.Position) (recctx.Context, error) {
			return recctx.Context{}, apperrors.Wrap("context_error", "store down", errors.New("boom"))
		}
	})

	_, err := svc.Recommend(context.Background(), Request{UserID: "u1"})
	require.True(t, apperrors.IsCode(err, "context_error"))
}

func TestRecommendLLMFailure(t *testing.T) {
	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, _ *stubPlaces, llm *stubGemini) {
		llm.generate = func(context.Context, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
			return gemini.GenerateContentResponse{}, errors.New("upstream 500")
		}
	})

	_, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.True(t, apperrors.IsCode(err, "llm_error"))
}

func TestRecommendMalformedLLMReply(t *testing.T) {
	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, _ *stubPlaces, llm *stubGemini) {
		llm.generate = func(context.Context, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
			return geminiReply(t, "sorry, I cannot help with that"), nil
		}
	})

	_, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.True(t, apperrors.IsCode(err, "llm_error"))
}

func TestRecommendUnknownPickFallsBackToScores(t *testing.T) {
	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, _ *stubPlaces, llm *stubGemini) {
		llm.generate = func(context.Context, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
			return geminiReply(t, `{"summary":"ok","picks":[{"placeId":"does-not-exist","reason":"?"}]}`), nil
		}
	})

	res, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.NoError(t, err)
	require.NotEmpty(t, res.Picks)
	for _, p := range res.Picks {
		require.Contains(t, []string{"p1", "p2"}, p.Restaurant.PlaceID)
	}
}

func TestRecommendPlacesFailureFallsBackToRepo(t *testing.T) {
	svc := newPipeline(t, func(_ *stubContextService, repo *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, placesAPI *stubPlaces, _ *stubGemini) {
		placesAPI.search = func(context.Context, places.SearchRequest) ([]restaurant.Restaurant, error) {
			return nil, errors.New("places down")
		}
		repo.listAll = func(context.Context) ([]restaurant.Restaurant, error) {
			return []restaurant.Restaurant{testRestaurant("p1", "Noodle House")}, nil
		}
	})

	res, err := svc.Recommend(context.Background(), Request{UserID: "u1", Position: &recctx.Position{Latitude: 1.30, Longitude: 103.85}})
	require.NoError(t, err)
	require.Len(t, res.Picks, 1)
}

func TestRecommendRequiresUserID(t *testing.T) {
	svc := newPipeline(t, nil)
	_, err := svc.Recommend(context.Background(), Request{UserID: "  "})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestSearchFiltersAndAnnotates(t *testing.T) {
	far := testRestaurant("p-far", "Far Away Diner")
	far.Latitude = 2.50
	far.Longitude = 104.90

	svc := newPipeline(t, func(_ *stubContextService, _ *stubRestaurantRepo, _ *stubSearchCache, _ *stubRecCache, placesAPI *stubPlaces, _ *stubGemini) {
		placesAPI.search = func(_ context.Context, req places.SearchRequest) ([]restaurant.Restaurant, error) {
			require.True(t, req.OpenNow)
			return []restaurant.Restaurant{testRestaurant("p1", "Noodle House"), far}, nil
		}
	})

	got, err := svc.Search(context.Background(), SearchQuery{
		UserID:    "u1",
		Latitude:  1.30,
		Longitude: 103.85,
		OpenNow:   true,
	})
	require.NoError(t, err)
	// Default preferences cap travel at 10km, dropping the faraway diner.
	require.Len(t, got, 1)
	require.Equal(t, "p1", got[0].Restaurant.PlaceID)
	require.Equal(t, discovery.SafetySafe, got[0].SafetyLevel)
	require.NotNil(t, got[0].Restaurant.DistanceMeters)
}

func TestSearchPreferencesReadFailure(t *testing.T) {
	svc := newPipeline(t, nil)
	broken := svc.(*service)
	broken.profileRepo = &stubProfileRepo{
		getBlob: func(context.Context, string) ([]byte, bool, error) {
			return nil, false, errors.New("db down")
		},
	}

	_, err := svc.Search(context.Background(), SearchQuery{UserID: "u1", Latitude: 1.3, Longitude: 103.85})
	require.True(t, apperrors.IsCode(err, "context_error"))
}

func TestParseSelectionCodeFences(t *testing.T) {
	sel, err := parseSelection("```json\n{\"summary\":\"s\",\"picks\":[{\"placeId\":\"a\",\"reason\":\"r\"}]}\n```")
	require.NoError(t, err)
	require.Equal(t, "s", sel.Summary)
	require.Len(t, sel.Picks, 1)
	require.Equal(t, "a", sel.Picks[0].PlaceID)
}

func TestParseSelectionSinglePickObject(t *testing.T) {
	sel, err := parseSelection(`{"summary":"s","picks":{"placeId":"a","reason":"r"}}`)
	require.NoError(t, err)
	require.Len(t, sel.Picks, 1)
}

func TestParseSelectionNullPicks(t *testing.T) {
	sel, err := parseSelection(`{"summary":"s","picks":null}`)
	require.NoError(t, err)
	require.Empty(t, sel.Picks)
}
