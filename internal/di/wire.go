//go:build wireinject
// +build wireinject

package di

import (
	"BattPulse/pkg/config"
	"BattPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCacheService,
		ProvideDatasetStore,

		// Use cases
		ProvideAnalyzer,

		// HTTP surface
		ProvideLimiter,
		ProvideHub,
		ProvideDatasetsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
