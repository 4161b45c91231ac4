package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

const defaultSystemPrompt = "You are a dining advisor helping a user decide where to eat right now."

func (s *service) buildSystemPrompt() string {
	base := strings.TrimSpace(s.cfg.Prompt)
	if base == "" {
		base = defaultSystemPrompt
	}
	enforcer := " Respond ONLY with valid minified JSON using this shape: {\"summary\":string,\"picks\":[{\"placeId\":string,\"reason\":string}]}. Pick at most 3 restaurants, ordered best first, using only placeId values from the candidate list. The reason must be one short sentence grounded in the user context. Never return plain text or other fields."
	return base + enforcer
}

type promptContext struct {
	MealTime         recctx.MealTime `json:"mealTime"`
	IsWeekend        bool            `json:"isWeekend"`
	Restrictions     []string        `json:"dietaryRestrictions,omitempty"`
	Allergies        []string        `json:"allergies,omitempty"`
	BudgetMin        float64         `json:"budgetMin"`
	BudgetMax        float64         `json:"budgetMax"`
	BudgetPreferred  float64         `json:"budgetPreferred"`
	RemainingWeekly  float64         `json:"remainingWeeklyBudget"`
	RecentMeals      []string        `json:"recentMeals,omitempty"`
	QualityOverPrice float64         `json:"qualityOverPrice"`
	VarietySeeking   float64         `json:"varietySeeking"`
}

type promptCandidate struct {
	PlaceID        string   `json:"placeId"`
	Name           string   `json:"name"`
	Rating         *float64 `json:"rating,omitempty"`
	PriceLevel     *int     `json:"priceLevel,omitempty"`
	AvgMealCost    *float64 `json:"avgMealCost,omitempty"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	Dietary        []string `json:"dietarySupport,omitempty"`
	Allergens      []string `json:"allergens,omitempty"`
	OpenNow        *bool    `json:"openNow,omitempty"`
}

func buildUserPrompt(uctx recctx.Context, candidates []restaurant.Restaurant) string {
	pc := promptContext{
		MealTime:         uctx.Temporal.MealTime,
		IsWeekend:        uctx.Temporal.IsWeekend,
		Restrictions:     uctx.Dietary.Restrictions,
		Allergies:        uctx.Dietary.Allergies,
		BudgetMin:        uctx.Budget.Min,
		BudgetMax:        uctx.Budget.Max,
		BudgetPreferred:  uctx.Budget.Preferred,
		RemainingWeekly:  uctx.Budget.RemainingWeeklyBudget,
		RecentMeals:      uctx.RecentMeals,
		QualityOverPrice: uctx.Scores.QualityOverPrice,
		VarietySeeking:   uctx.Scores.VarietySeeking,
	}
	pcs := make([]promptCandidate, 0, len(candidates))
	for _, r := range candidates {
		pcs = append(pcs, promptCandidate{
			PlaceID:        r.PlaceID,
			Name:           r.Name,
			Rating:         r.Rating,
			PriceLevel:     r.PriceLevel,
			AvgMealCost:    r.AverageMealCost,
			DistanceMeters: r.DistanceMeters,
			Dietary:        r.SupportedDietaryRestrictions,
			Allergens:      r.AllergenInfo,
			OpenNow:        r.IsOpenNow,
		})
	}

	payload := struct {
		Context    promptContext     `json:"userContext"`
		Candidates []promptCandidate `json:"candidates"`
	}{Context: pc, Candidates: pcs}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("Recommend where this user should eat for %s based ONLY on this data: %s", uctx.Temporal.MealTime, string(data))
}
