package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Conflux/internal/domain/repository"
	"Conflux/internal/usecase"
	pkgch "Conflux/pkg/clickhouse"
	"Conflux/pkg/config"
	xhttp "Conflux/pkg/http"
	applogger "Conflux/pkg/logger"
)

// App encapsulates the live-trading application lifecycle: the pipeline, the
// status HTTP server and the infrastructure clients, started together and
// shut down in reverse order.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	pipeline   *usecase.Pipeline
	bus        repository.EventBus
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	bus repository.EventBus,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		bus:      bus,
		chClient: chClient,
		handler:  handler,
	}
}

// Run starts the application and blocks until interrupted or the pipeline
// fails terminally.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.logger),
	)

	pipeErr := make(chan error, 1)
	go func() { pipeErr <- a.pipeline.Run(ctx) }()
	a.logger.Info("pipeline launched", applogger.String("symbol", a.cfg.Stream.Symbol))

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		a.logger.Info("shutdown signal received")
	case err := <-pipeErr:
		if err != nil && ctx.Err() == nil {
			a.logger.Error("pipeline terminated", applogger.Error(err))
			_ = a.shutdown(context.Background(), cancel)
			return err
		}
	}
	return a.shutdown(context.Background(), cancel)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, cancel context.CancelFunc) error {
	cancel() // stops the pipeline and the ingestor

	shutdownCtx, stop := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer stop()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("event bus close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
