// Package places fetches nearby restaurants from a Places-style search API
// and maps them into the domain restaurant shape.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// SearchRequest captures the parameters of a nearby search.
type SearchRequest struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	OpenNow      bool
	Keyword      string
}

// Client performs nearby-search requests against the places API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchNearby retrieves restaurants around a position.
func (c *Client) SearchNearby(ctx context.Context, req SearchRequest) ([]restaurant.Restaurant, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location", fmt.Sprintf("%f,%f", req.Latitude, req.Longitude))
	params.Set("radius", strconv.FormatFloat(req.RadiusMeters, 'f', 0, 64))
	params.Set("type", "restaurant")
	if req.OpenNow {
		params.Set("opennow", "true")
	}
	if strings.TrimSpace(req.Keyword) != "" {
		params.Set("keyword", req.Keyword)
	}
	endpoint := fmt.Sprintf("%s/nearbysearch/json?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("places request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read places response: %w", err)
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	switch raw.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, fmt.Errorf("places api error: status=%s message=%s", raw.Status, raw.ErrorMessage)
	}

	return normalizeResults(raw.Results), nil
}

type apiResponse struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating       *float64 `json:"rating"`
	PriceLevel   *int     `json:"price_level"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	Types []string `json:"types"`
}

func normalizeResults(results []result) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, 0, len(results))
	for _, res := range results {
		if res.PlaceID == "" || res.Name == "" {
			continue
		}
		r := restaurant.Restaurant{
			PlaceID:    res.PlaceID,
			Name:       res.Name,
			Latitude:   res.Geometry.Location.Lat,
			Longitude:  res.Geometry.Location.Lng,
			Rating:     res.Rating,
			PriceLevel: res.PriceLevel,
		}
		if res.OpeningHours != nil && res.OpeningHours.OpenNow != nil {
			r.IsOpenNow = res.OpeningHours.OpenNow
		}
		out = append(out, r)
	}
	return out
}
