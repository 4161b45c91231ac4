package restcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

func TestSearchCacheTTL(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	list := []restaurant.Restaurant{{PlaceID: "p1", Name: "Noodle House"}}
	require.NoError(t, store.SaveSearch(ctx, "search:1", list, 10*time.Minute))

	got, ok, err := store.GetSearch(ctx, "search:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p1", got[0].PlaceID)

	current = current.Add(11 * time.Minute)
	_, ok, err = store.GetSearch(ctx, "search:1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecommendationCache(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.GetRecommendation(ctx, "rec:u1:nopos")
	require.NoError(t, err)
	require.False(t, ok)

	res := recommend.Response{Summary: "try the noodles"}
	require.NoError(t, store.SaveRecommendation(ctx, "rec:u1:nopos", res, 0))

	got, ok, err := store.GetRecommendation(ctx, "rec:u1:nopos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "try the noodles", got.Summary)
}
