// Package recommend orchestrates the end-to-end recommendation pipeline:
// context generation, candidate loading, pre-ranking, LLM selection, and
// response caching.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/discovery"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/scoring"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/llm/gemini"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/places"
	apperrors "github.com/whatwehaveforlunch/lunch-advisor/pkg/errors"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/metrics"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/util"
)

const (
	maxPicks = 3
	// minPromptCandidates is the floor below which token trimming stops;
	// fewer candidates than this would starve the model of real choice.
	minPromptCandidates = 3

	tokenEncoding = "cl100k_base"

	defaultSearchRadiusMeters = 5000.0
)

// Service exposes the recommendation pipeline and hard-constraint browse
// search.
type Service interface {
	Recommend(ctx context.Context, req Request) (Response, error)
	Search(ctx context.Context, q SearchQuery) ([]discovery.Annotated, error)
}

// SearchQuery captures a browse search around a position.
type SearchQuery struct {
	UserID       string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	OpenNow      bool
}

// GeminiClient is the LLM surface the pipeline depends on.
type GeminiClient interface {
	GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
}

// PlacesClient searches for nearby restaurants.
type PlacesClient interface {
	SearchNearby(ctx context.Context, req places.SearchRequest) ([]restaurant.Restaurant, error)
}

// Cache stores finished recommendation responses per user and area.
type Cache interface {
	GetRecommendation(ctx context.Context, key string) (Response, bool, error)
	SaveRecommendation(ctx context.Context, key string, res Response, ttl time.Duration) error
}

type service struct {
	cfg         Config
	ctxSvc      recctx.Service
	profileRepo profile.Repository
	repo        restaurant.Repository
	searchCache restaurant.Cache
	recCache    Cache
	placesAPI   PlacesClient
	llm         GeminiClient
	encoder     *tiktoken.Tiktoken
	logger      *slog.Logger
	now         func() time.Time
}

// NewService wires up the recommendation pipeline.
func NewService(
	cfg Config,
	ctxSvc recctx.Service,
	profileRepo profile.Repository,
	repo restaurant.Repository,
	searchCache restaurant.Cache,
	recCache Cache,
	placesAPI PlacesClient,
	llm GeminiClient,
	logger *slog.Logger,
) Service {
	log := logger.With("component", "recommend.service")
	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		// Fall back to the byte heuristic in countTokens.
		log.Warn("token encoding unavailable", "encoding", tokenEncoding, "error", err)
		encoder = nil
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = scoring.DefaultCandidateCap
	}
	return &service{
		cfg:         cfg,
		ctxSvc:      ctxSvc,
		profileRepo: profileRepo,
		repo:        repo,
		searchCache: searchCache,
		recCache:    recCache,
		placesAPI:   placesAPI,
		llm:         llm,
		encoder:     encoder,
		logger:      log,
		now:         util.NowUTC,
	}
}

// Recommend runs the full pipeline for one user request. Context generation
// failures abort the request; an empty candidate pool yields an empty
// response without touching the LLM.
func (s *service) Recommend(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Response{}, apperrors.Wrap("invalid_input", "user id cannot be empty", nil)
	}

	cacheKey := recommendationKey(req.UserID, req.Position)
	if cached, ok, err := s.recCache.GetRecommendation(ctx, cacheKey); err != nil {
		s.logger.Warn("recommendation cache read failed", "error", err)
	} else if ok {
		s.logger.Info("recommendation served from cache", "userId", req.UserID)
		return cached, nil
	}

	uctx, err := s.ctxSvc.Generate(ctx, req.UserID, req.Position)
	if err != nil {
		return Response{}, err
	}

	candidates, err := s.loadCandidates(ctx, uctx)
	if err != nil {
		return Response{}, err
	}
	if req.Position != nil {
		for i, r := range candidates {
			candidates[i] = r.WithDistanceFrom(req.Position.Latitude, req.Position.Longitude)
		}
	}

	res := Response{
		Picks:       []Pick{},
		MealTime:    uctx.Temporal.MealTime,
		GeneratedAt: s.now(),
	}
	if len(candidates) == 0 {
		s.logger.Info("no candidates available", "userId", req.UserID)
		return res, nil
	}

	top := scoring.RankTopN(uctx, candidates, s.cfg.MaxCandidates)
	top, userPrompt := s.fitTokenBudget(uctx, top)

	completion, err := s.llm.GenerateContent(ctx, gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  "user",
			Parts: []gemini.Part{{Text: s.buildSystemPrompt() + "\n\n" + userPrompt}},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return Response{}, apperrors.Wrap("llm_error", "gemini request failed", err)
	}
	text, ok := completion.FirstText()
	if !ok {
		return Response{}, apperrors.Wrap("llm_error", "gemini returned no candidates", nil)
	}
	res.TokenUsage = metrics.TokenUsage{
		PromptTokens:     completion.UsageMetadata.PromptTokenCount,
		CompletionTokens: completion.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      completion.UsageMetadata.TotalTokenCount,
	}

	selection, err := parseSelection(text)
	if err != nil {
		return Response{}, apperrors.Wrap("llm_error", "gemini response malformed", err)
	}

	res.Summary = selection.Summary
	res.Picks = s.resolvePicks(uctx, top, selection.Picks)

	if err := s.recCache.SaveRecommendation(ctx, cacheKey, res, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("recommendation cache write failed", "error", err)
	}
	return res, nil
}

// loadCandidates prefers cached live search results, falls back to a fresh
// places lookup, and uses the persisted restaurant set when no location is
// available or the search API is down.
func (s *service) loadCandidates(ctx context.Context, uctx recctx.Context) ([]restaurant.Restaurant, error) {
	if !uctx.Location.HasLocation {
		list, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, apperrors.Wrap("search_error", "failed to load known restaurants", err)
		}
		return list, nil
	}

	return s.fetchNearby(ctx, uctx.Location.Latitude, uctx.Location.Longitude, uctx.Location.SearchRadiusMeters, false)
}

// fetchNearby serves a live search from the cache when possible, otherwise
// hits the places API. A dead search API degrades to the persisted restaurant
// set rather than failing the request.
func (s *service) fetchNearby(ctx context.Context, lat, lng, radius float64, openNow bool) ([]restaurant.Restaurant, error) {
	searchKey := searchKeyFor(lat, lng, radius, openNow)
	if cached, ok, err := s.searchCache.GetSearch(ctx, searchKey); err != nil {
		s.logger.Warn("search cache read failed", "error", err)
	} else if ok {
		return s.enrich(ctx, cached), nil
	}

	fetched, err := s.placesAPI.SearchNearby(ctx, places.SearchRequest{
		Latitude:     lat,
		Longitude:    lng,
		RadiusMeters: radius,
		OpenNow:      openNow,
	})
	if err != nil {
		s.logger.Warn("places search failed, falling back to stored restaurants", "error", err)
		list, listErr := s.repo.ListAll(ctx)
		if listErr != nil {
			return nil, apperrors.Wrap("search_error", "restaurant search failed", errors.Join(err, listErr))
		}
		return list, nil
	}

	if err := s.searchCache.SaveSearch(ctx, searchKey, fetched, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("search cache write failed", "error", err)
	}
	return s.enrich(ctx, fetched), nil
}

// Search runs the hard-constraint browse flow: live candidates filtered by
// the user's stored preferences, each annotated with its allergen safety
// level. Soft compatibility scoring plays no part here.
func (s *service) Search(ctx context.Context, q SearchQuery) ([]discovery.Annotated, error) {
	if strings.TrimSpace(q.UserID) == "" {
		return nil, apperrors.Wrap("invalid_input", "user id cannot be empty", nil)
	}
	if q.RadiusMeters <= 0 {
		q.RadiusMeters = defaultSearchRadiusMeters
	}

	blob, _, err := s.profileRepo.GetPreferencesBlob(ctx, q.UserID)
	if err != nil {
		return nil, apperrors.Wrap("context_error", "failed to load preferences", err)
	}
	prefs := profile.DecodePreferences(blob)

	candidates, err := s.fetchNearby(ctx, q.Latitude, q.Longitude, q.RadiusMeters, q.OpenNow)
	if err != nil {
		return nil, err
	}
	for i, r := range candidates {
		candidates[i] = r.WithDistanceFrom(q.Latitude, q.Longitude)
	}

	return discovery.FilterAndAnnotate(candidates, prefs, discovery.Options{}), nil
}

// enrich overlays persisted knowledge (dietary support, allergen info,
// average costs) onto live search results and keeps the store current.
func (s *service) enrich(ctx context.Context, fetched []restaurant.Restaurant) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, 0, len(fetched))
	for _, live := range fetched {
		stored, found, err := s.repo.GetByPlaceID(ctx, live.PlaceID)
		if err != nil {
			s.logger.Warn("restaurant lookup failed", "placeId", live.PlaceID, "error", err)
		} else if found {
			live.AverageMealCost = orFloat(live.AverageMealCost, stored.AverageMealCost)
			live.SupportedDietaryRestrictions = stored.SupportedDietaryRestrictions
			live.AllergenInfo = stored.AllergenInfo
			live.DietaryCompatibilityScores = stored.DietaryCompatibilityScores
			live.HasVerifiedDietaryInfo = stored.HasVerifiedDietaryInfo
			live.IsChain = stored.IsChain
			live.ValueScore = stored.ValueScore
		}
		live.UpdatedAt = s.now()
		if err := s.repo.Upsert(ctx, live); err != nil {
			s.logger.Warn("restaurant upsert failed", "placeId", live.PlaceID, "error", err)
		}
		out = append(out, live)
	}
	return out
}

// fitTokenBudget drops the lowest-ranked candidates until the full prompt
// fits the configured token budget.
func (s *service) fitTokenBudget(uctx recctx.Context, top []restaurant.Restaurant) ([]restaurant.Restaurant, string) {
	system := s.buildSystemPrompt()
	for {
		prompt := buildUserPrompt(uctx, top)
		if s.cfg.PromptTokenBudget <= 0 || len(top) <= minPromptCandidates {
			return top, prompt
		}
		if s.countTokens(system)+s.countTokens(prompt) <= s.cfg.PromptTokenBudget {
			return top, prompt
		}
		top = top[:len(top)-1]
	}
}

func (s *service) countTokens(text string) int {
	if s.encoder == nil {
		// Rough heuristic when the encoding could not be loaded.
		return len(text) / 4
	}
	return len(s.encoder.Encode(text, nil, nil))
}

// resolvePicks maps the model's placeId choices back onto scored candidates.
// Unknown ids are dropped; if nothing resolves, the top scored candidates are
// returned so the user still gets an answer.
func (s *service) resolvePicks(uctx recctx.Context, top []restaurant.Restaurant, picks []selectionPick) []Pick {
	byID := make(map[string]restaurant.Restaurant, len(top))
	for _, r := range top {
		byID[r.PlaceID] = r
	}

	out := make([]Pick, 0, maxPicks)
	seen := make(map[string]struct{})
	for _, p := range picks {
		if len(out) == maxPicks {
			break
		}
		r, ok := byID[p.PlaceID]
		if !ok {
			s.logger.Warn("llm picked unknown place", "placeId", p.PlaceID)
			continue
		}
		if _, dup := seen[p.PlaceID]; dup {
			continue
		}
		seen[p.PlaceID] = struct{}{}
		breakdown := scoring.Compute(uctx, r)
		out = append(out, Pick{
			Restaurant: r,
			Score:      breakdown.Total(),
			Breakdown:  breakdown,
			Reason:     strings.TrimSpace(p.Reason),
		})
	}
	if len(out) > 0 {
		return out
	}

	// Nothing the model said was usable; fall back to score order.
	scored := scoring.RankTopN(uctx, top, min(maxPicks, len(top)))
	for _, r := range scored[:min(maxPicks, len(scored))] {
		breakdown := scoring.Compute(uctx, r)
		out = append(out, Pick{
			Restaurant: r,
			Score:      breakdown.Total(),
			Breakdown:  breakdown,
			Reason:     "Strong overall match for your current preferences",
		})
	}
	return out
}

type selection struct {
	Summary string
	Picks   []selectionPick
}

type selectionPick struct {
	PlaceID string `json:"placeId"`
	Reason  string `json:"reason"`
}

// parseSelection sanitizes a model reply (code fences, stray backticks) and
// decodes the expected JSON shape, tolerating a single pick object where an
// array was asked for.
func parseSelection(raw string) (selection, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))

	var wire struct {
		Summary string          `json:"summary"`
		Picks   json.RawMessage `json:"picks"`
	}
	if err := json.Unmarshal([]byte(sanitized), &wire); err != nil {
		return selection{}, err
	}

	picks, err := coercePicks(wire.Picks)
	if err != nil {
		return selection{}, err
	}
	return selection{Summary: wire.Summary, Picks: picks}, nil
}

func coercePicks(raw json.RawMessage) ([]selectionPick, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch raw[0] {
	case '{':
		var single selectionPick
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []selectionPick{single}, nil
	case '[':
		var many []selectionPick
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	default:
		return nil, errors.New("unsupported picks format")
	}
}

func recommendationKey(userID string, pos *recctx.Position) string {
	if pos == nil {
		return fmt.Sprintf("rec:%s:nopos", userID)
	}
	// Quantize to roughly a kilometer so nearby requests share a cache slot.
	return fmt.Sprintf("rec:%s:%.2f:%.2f", userID, pos.Latitude, pos.Longitude)
}

func searchKeyFor(lat, lng, radius float64, openNow bool) string {
	return fmt.Sprintf("search:%.2f:%.2f:%.0f:%t", lat, lng, radius, openNow)
}

func orFloat(primary, fallback *float64) *float64 {
	if primary != nil {
		return primary
	}
	return fallback
}
