//go:build wireinject
// +build wireinject

package di

import (
	"ThreadForge/pkg/config"
	"ThreadForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp assembles the application graph.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideClickHouse,
		ProvideKafkaProducer,
		ProvideArtifactEvents,
		ProvideUsageStore,
		ProvideArtifactArchive,
		ProvideHTTPClient,
		ProvideMarketData,
		ProvideModelGateway,
		ProvideInvoker,
		ProvideUsageGate,
		ProvideQueue,
		ProvideOrchestrator,
		ProvideThreadsHandler,
		ProvideHTTPServer,
		ProvideStream,
		ProvideApp,
	)
	return nil, nil
}
