// Package restaurantrepo persists restaurant entities keyed by place ID.
package restaurantrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

// PostgresRepository stores restaurants in Postgres. Dietary metadata is kept
// as jsonb so the schema survives field additions.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type dietaryBlob struct {
	SupportedDietaryRestrictions []string           `json:"supportedDietaryRestrictions,omitempty"`
	AllergenInfo                 []string           `json:"allergenInfo,omitempty"`
	DietaryCompatibilityScores   map[string]float64 `json:"dietaryCompatibilityScores,omitempty"`
	HasVerifiedDietaryInfo       bool               `json:"hasVerifiedDietaryInfo"`
}

// Upsert writes or refreshes a restaurant row.
func (r *PostgresRepository) Upsert(ctx context.Context, res restaurant.Restaurant) error {
	dietary, err := json.Marshal(dietaryBlob{
		SupportedDietaryRestrictions: res.SupportedDietaryRestrictions,
		AllergenInfo:                 res.AllergenInfo,
		DietaryCompatibilityScores:   res.DietaryCompatibilityScores,
		HasVerifiedDietaryInfo:       res.HasVerifiedDietaryInfo,
	})
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO restaurants (
			place_id, name, latitude, longitude, rating, price_level,
			average_meal_cost, value_score, is_chain, is_open_now, dietary, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (place_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			rating = EXCLUDED.rating,
			price_level = EXCLUDED.price_level,
			average_meal_cost = EXCLUDED.average_meal_cost,
			value_score = EXCLUDED.value_score,
			is_chain = EXCLUDED.is_chain,
			is_open_now = EXCLUDED.is_open_now,
			dietary = EXCLUDED.dietary,
			updated_at = EXCLUDED.updated_at
	`, res.PlaceID, res.Name, res.Latitude, res.Longitude, res.Rating, res.PriceLevel,
		res.AverageMealCost, res.ValueScore, res.IsChain, res.IsOpenNow, dietary, res.UpdatedAt)
	return err
}

// GetByPlaceID fetches one restaurant by its place ID.
func (r *PostgresRepository) GetByPlaceID(ctx context.Context, placeID string) (restaurant.Restaurant, bool, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`
		WHERE place_id = $1
		LIMIT 1
	`, placeID)
	if err != nil {
		return restaurant.Restaurant{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return restaurant.Restaurant{}, false, rows.Err()
	}
	res, err := scanRestaurant(rows)
	if err != nil {
		return restaurant.Restaurant{}, false, err
	}
	return res, true, rows.Err()
}

// ListAll returns every stored restaurant.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]restaurant.Restaurant, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []restaurant.Restaurant
	for rows.Next() {
		res, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT place_id, name, latitude, longitude, rating, price_level,
		average_meal_cost, value_score, is_chain, is_open_now, dietary, updated_at
	FROM restaurants
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (restaurant.Restaurant, error) {
	var (
		res     restaurant.Restaurant
		dietary []byte
		updated time.Time
	)
	if err := row.Scan(&res.PlaceID, &res.Name, &res.Latitude, &res.Longitude,
		&res.Rating, &res.PriceLevel, &res.AverageMealCost, &res.ValueScore,
		&res.IsChain, &res.IsOpenNow, &dietary, &updated); err != nil {
		return restaurant.Restaurant{}, err
	}
	if len(dietary) > 0 {
		var blob dietaryBlob
		if err := json.Unmarshal(dietary, &blob); err != nil {
			return restaurant.Restaurant{}, err
		}
		res.SupportedDietaryRestrictions = blob.SupportedDietaryRestrictions
		res.AllergenInfo = blob.AllergenInfo
		res.DietaryCompatibilityScores = blob.DietaryCompatibilityScores
		res.HasVerifiedDietaryInfo = blob.HasVerifiedDietaryInfo
	}
	res.UpdatedAt = updated.UTC()
	return res, nil
}

var _ restaurant.Repository = (*PostgresRepository)(nil)
