package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/auth"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/profile"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/config"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/llm/gemini"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/mealrepo"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/places"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/restaurantrepo"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/restcache"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/userrepo"
)

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

func provideRecommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		MaxOutputTokens:   cfg.LLM.MaxOutputTokens,
		Prompt:            cfg.Recommend.Prompt,
		MaxCandidates:     cfg.Recommend.MaxCandidates,
		PromptTokenBudget: cfg.Recommend.PromptTokenBudget,
		CacheTTL:          cfg.Recommend.CacheTTL,
	}
}

func provideGeminiClient(cfg *config.Config) (*gemini.Client, error) {
	return gemini.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
}

func providePlacesClient(cfg *config.Config) *places.Client {
	return places.NewClient(cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.Timeout)
}

// providePostgresPool returns a shared connection pool, or nil when Postgres
// is not configured or unreachable; repository providers then degrade to
// their in-memory fallbacks.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Storage.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres repositories enabled")
	return pool
}

func provideUserRepository(pool *pgxpool.Pool) auth.Repository {
	if pool == nil {
		return userrepo.NewMemoryRepository()
	}
	return userrepo.NewPostgresRepository(pool)
}

func provideProfileRepository(pool *pgxpool.Pool) profile.Repository {
	if pool == nil {
		return mealrepo.NewMemoryRepository()
	}
	return mealrepo.NewPostgresRepository(pool)
}

func provideRestaurantRepository(pool *pgxpool.Pool) restaurant.Repository {
	if pool == nil {
		return restaurantrepo.NewMemoryRepository()
	}
	return restaurantrepo.NewPostgresRepository(pool)
}

// cacheStore is the combined surface both cache interfaces share; the same
// underlying store serves search results and recommendation responses.
type cacheStore interface {
	restaurant.Cache
	recommend.Cache
}

func provideCacheStore(cfg *config.Config, logger *slog.Logger) cacheStore {
	if cfg.Storage.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return restcache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return restcache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey cache store enabled", "addr", cfg.Storage.Redis.Addr)
			return restcache.NewValkeyStore(client, "lunch")
		}
	}
	return restcache.NewMemoryStore()
}

func provideSearchCache(store cacheStore) restaurant.Cache {
	return store
}

func provideRecommendationCache(store cacheStore) recommend.Cache {
	return store
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Storage.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Storage.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Storage.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
