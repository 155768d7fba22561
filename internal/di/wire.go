//go:build wireinject
// +build wireinject

package di

import (
	"Conflux/pkg/config"
	"Conflux/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMonitor,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Collaborators
		ProvideCandleStore,
		ProvideEventBus,
		ProvideCandleSource,
		ProvideHistoryProvider,

		// Pipeline stages
		ProvideDetectorSet,
		ProvideRegimeAnalyzer,
		ProvideEvaluator,
		ProvideEngine,
		ProvideSimulator,
		ProvideIngestor,
		ProvidePipeline,

		// Presentation
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
