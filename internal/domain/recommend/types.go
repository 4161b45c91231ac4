package recommend

import (
	"time"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/scoring"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/metrics"
)

// Config wires runtime settings for the recommendation pipeline.
type Config struct {
	Model             string
	Temperature       float32
	MaxOutputTokens   int
	Prompt            string
	MaxCandidates     int
	PromptTokenBudget int
	CacheTTL          time.Duration
}

// Request captures the payload accepted by the recommendation service.
type Request struct {
	UserID   string
	Position *recctx.Position
}

// Pick is a single recommended restaurant with its compatibility evidence.
type Pick struct {
	Restaurant restaurant.Restaurant `json:"restaurant"`
	Score      float64               `json:"score"`
	Breakdown  scoring.Breakdown     `json:"breakdown"`
	Reason     string                `json:"reason"`
}

// Response is serialized back to API consumers.
type Response struct {
	Picks       []Pick             `json:"picks"`
	Summary     string             `json:"summary"`
	MealTime    recctx.MealTime    `json:"mealTime"`
	GeneratedAt time.Time          `json:"generatedAt"`
	TokenUsage  metrics.TokenUsage `json:"tokenUsage"`
}
