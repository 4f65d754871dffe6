//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"DripView/pkg/config"
	"DripView/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,
		ProvideEndpointMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideResponseCache,
		ProvideKeyStore,
		ProvideYahooClient,
		ProvideMarketData,
		ProvideBarStore,

		// Archive
		ProvideArchiveProcessor,
		ProvideArchivePipeline,

		// Use cases and transport
		ProvideHistoryLoader,
		ProvideRateLimiter,
		ProvideAPIHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,
		ProvideQueue,
		ProvideRefresher,

		ProvideApp,
	)
	return &server.App{}, nil
}
