// Package mealrepo persists user preferences and meal history.
package mealrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
)

// PostgresRepository stores preference blobs and meals in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetPreferencesBlob fetches the raw stored preference JSON. Decoding and
// defaulting are domain concerns; the repository never interprets the blob.
func (r *PostgresRepository) GetPreferencesBlob(ctx context.Context, userID string) ([]byte, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT preferences
		FROM user_preferences
		WHERE user_id = $1
		LIMIT 1
	`, userID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	var blob []byte
	if err := rows.Scan(&blob); err != nil {
		return nil, false, err
	}
	return blob, true, rows.Err()
}

// SavePreferences upserts the encoded preferences for a user.
func (r *PostgresRepository) SavePreferences(ctx context.Context, userID string, prefs profile.UserPreferences) error {
	blob, err := profile.EncodePreferences(prefs)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = now()
	`, userID, blob)
	return err
}

// InsertMeal records a logged meal.
func (r *PostgresRepository) InsertMeal(ctx context.Context, meal profile.MealRecord) (profile.MealRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO meals (id, user_id, meal_type, cost, cuisine, eaten_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, meal_type, cost, cuisine, eaten_at
	`, meal.ID, meal.UserID, meal.MealType, meal.Cost, meal.Cuisine, meal.EatenAt)
	return scanMeal(row)
}

// MealsInRange lists a user's meals with eaten_at in [start, end), newest
// first.
func (r *PostgresRepository) MealsInRange(ctx context.Context, userID string, start, end time.Time) ([]profile.MealRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, meal_type, cost, cuisine, eaten_at
		FROM meals
		WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3
		ORDER BY eaten_at DESC
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []profile.MealRecord
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, meal)
	}
	return meals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (profile.MealRecord, error) {
	var meal profile.MealRecord
	var eaten time.Time
	if err := row.Scan(&meal.ID, &meal.UserID, &meal.MealType, &meal.Cost, &meal.Cuisine, &eaten); err != nil {
		return profile.MealRecord{}, err
	}
	meal.EatenAt = eaten.UTC()
	return meal, nil
}

var _ profile.Repository = (*PostgresRepository)(nil)
