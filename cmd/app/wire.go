//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/bootstrap"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/auth"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recctx"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/config"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/llm/gemini"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/infra/places"
	httpiface "github.com/whatwehaveforlunch/lunch-advisor/internal/interface/http"
	"github.com/whatwehaveforlunch/lunch-advisor/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAuthConfig,
		provideRecommendConfig,
		provideGeminiClient,
		providePlacesClient,
		providePostgresPool,
		provideUserRepository,
		provideProfileRepository,
		provideRestaurantRepository,
		provideCacheStore,
		provideSearchCache,
		provideRecommendationCache,
		auth.NewService,
		recctx.NewService,
		recommend.NewService,
		wire.Bind(new(recommend.GeminiClient), new(*gemini.Client)),
		wire.Bind(new(recommend.PlacesClient), new(*places.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
