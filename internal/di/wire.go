//go:build wireinject
// +build wireinject

package di

import (
	"SectorPulse/pkg/config"
	"SectorPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideEventStore,
		ProvideMarketStore,
		ProvideResultStore,
		ProvidePointPublisher,
		ProvideMarketStream,

		// Analysis services
		ProvideNormalizer,
		ProvideCorrelator,

		// Use cases
		ProvideQuoteProcessor,
		ProvideQuoteCollector,
		ProvideKafkaHandlers,
		ProvideOrchestrator,
		ProvideSectorService,
		ProvideRecomputeQueue,
		ProvideScheduler,
		ProvideQuotesClient,
		ProvideBackfiller,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
