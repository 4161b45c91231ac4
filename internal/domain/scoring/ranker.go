package scoring

import (
	"sort"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

// DefaultCandidateCap bounds how many candidates reach the LLM recommender.
const DefaultCandidateCap = 20

// RankTopN reduces a candidate list to the n best by compatibility score.
// Lists already within the cap are returned unchanged, in their original
// order, without any scoring overhead. The sort is stable: candidates with
// equal scores keep their original relative order.
func RankTopN(ctx recctx.Context, candidates []restaurant.Restaurant, n int) []restaurant.Restaurant {
	if n <= 0 {
		n = DefaultCandidateCap
	}
	if len(candidates) <= n {
		return candidates
	}

	type scored struct {
		r     restaurant.Restaurant
		score float64
	}
	items := make([]scored, len(candidates))
	for i, r := range candidates {
		items[i] = scored{r: r, score: Score(ctx, r)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]restaurant.Restaurant, n)
	for i := 0; i < n; i++ {
		out[i] = items[i].r
	}
	return out
}
