package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"Conflux/internal/confluence"
	"Conflux/internal/detector"
	_ "Conflux/internal/detector/classic" // register classic detectors
	_ "Conflux/internal/detector/smc"     // register SMC detectors
	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/internal/evaluator"
	"Conflux/internal/handler/api"
	"Conflux/internal/health"
	"Conflux/internal/ingestor"
	"Conflux/internal/regime"
	internalrepo "Conflux/internal/repository"
	"Conflux/internal/service/binance"
	"Conflux/internal/service/ratelimit"
	"Conflux/internal/simulator"
	"Conflux/internal/usecase"
	"Conflux/pkg/cache"
	pkgch "Conflux/pkg/clickhouse"
	"Conflux/pkg/config"
	xhttp "Conflux/pkg/http"
	pkgkafka "Conflux/pkg/kafka"
	applogger "Conflux/pkg/logger"
	"Conflux/pkg/metrics"
	"Conflux/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	return applogger.New(lc)
}

// ProvideMonitor creates the degradation monitor.
func ProvideMonitor() *health.Monitor {
	return health.NewMonitor()
}

// ProvideMetrics creates a Prometheus recorder wrapped so detector failures
// and reconnects also feed the health monitor.
func ProvideMetrics(monitor *health.Monitor) repository.Metrics {
	return health.WrapMetrics(metrics.New(), monitor)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the store
// is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := internalrepo.NewCHCandleStore(client)
	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS conflux"}, store.Schema()...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the ClickHouse-backed store, or nil without a
// client.
func ProvideCandleStore(client *pkgch.Client, logger *applogger.Logger) *internalrepo.CHCandleStore {
	if client == nil {
		return nil
	}
	store := internalrepo.NewCHCandleStore(client)
	store.SetLogger(logger)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the bus is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventBus publishes decisions and trades to Kafka when configured,
// otherwise drops them.
func ProvideEventBus(producer *pkgkafka.Producer, cfg *config.Config) repository.EventBus {
	if producer == nil {
		return internalrepo.NoopEventBus{}
	}
	return internalrepo.NewKafkaEventBus(producer, cfg.Kafka.DecisionsTopic, cfg.Kafka.TradesTopic)
}

// ProvideCandleSource creates the Binance WebSocket stream.
func ProvideCandleSource(cfg *config.Config, logger *applogger.Logger) repository.CandleSource {
	return binance.NewClient(cfg.Binance.WebSocketURL, cfg.Binance.PingInterval, logger)
}

// ProvideHistoryProvider serves bootstrap history from the Binance REST API
// behind a cache layer (Redis when configured, in-process otherwise).
func ProvideHistoryProvider(cfg *config.Config, logger *applogger.Logger) repository.HistoryProvider {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Binance.HTTPTimeout))
	upstream := binance.NewHistory(cfg.Binance.RestURL, client, ratelimit.New())

	var svc cache.Service = cache.NewMemoryCache()
	if cfg.Cache.Redis.Enabled {
		host, port := splitHostPort(cfg.Cache.Redis.Addr, 6379)
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			logger.Warn("redis unavailable, using in-process history cache", applogger.Error(err))
		} else {
			svc = cache.NewLayeredCache(rc)
		}
	}
	return internalrepo.NewCachedHistory(upstream, svc, cfg.Cache.HistoryTTL, logger)
}

// ProvideDetectorSet builds the enabled detectors from config.
func ProvideDetectorSet(cfg *config.Config) (*detector.Set, error) {
	dcfg := make(map[string]detector.Config, len(cfg.Detectors))
	for id, dc := range cfg.Detectors {
		dcfg[id] = detector.Config{Enabled: dc.Enabled, Weight: dc.Weight, Params: dc.Params}
	}
	return detector.Build(dcfg)
}

// ProvideRegimeAnalyzer creates the regime analyzer with the configured
// floors.
func ProvideRegimeAnalyzer(cfg *config.Config) *regime.Analyzer {
	return regime.NewAnalyzer(regime.Config{
		ADXPeriod:     cfg.Regime.ADXPeriod,
		ATRPeriod:     cfg.Regime.ATRPeriod,
		BollPeriod:    cfg.Regime.BollPeriod,
		BollMult:      cfg.Regime.BollMult,
		MinTrend:      cfg.Regime.MinTrend,
		MinVolatility: cfg.Regime.MinVolatility,
		MinBandWidth:  cfg.Regime.MinBandWidth,
	})
}

// ProvideEvaluator creates the parallel evaluator.
func ProvideEvaluator(set *detector.Set, logger *applogger.Logger, m repository.Metrics, cfg *config.Config) *evaluator.Evaluator {
	return evaluator.New(set, logger,
		evaluator.WithDeadline(cfg.Evaluator.Deadline),
		evaluator.WithMetrics(m),
	)
}

// ProvideEngine creates the confluence engine.
func ProvideEngine(cfg *config.Config, set *detector.Set, analyzer *regime.Analyzer, logger *applogger.Logger) (*confluence.Engine, error) {
	ccfg := confluence.Config{
		Mode:            confluenceMode(cfg.Confluence.Mode),
		BuyThreshold:    cfg.Confluence.BuyThreshold,
		SellThreshold:   cfg.Confluence.SellThreshold,
		ConflictPenalty: cfg.Confluence.ConflictPenalty,
		HistorySize:     cfg.Confluence.HistorySize,
	}
	if err := ccfg.Validate(); err != nil {
		return nil, err
	}
	return confluence.NewEngine(ccfg, set.Weights, analyzer, logger), nil
}

// ProvideSimulator creates the paper-trading simulator. Closed trades go to
// ClickHouse when available and always to the event bus.
func ProvideSimulator(cfg *config.Config, logger *applogger.Logger, m repository.Metrics, store *internalrepo.CHCandleStore, bus repository.EventBus) *simulator.Simulator {
	scfg := simulatorConfig(cfg)
	opts := []simulator.Option{
		simulator.WithMetrics(m),
		simulator.WithTradeHook(func(t models.Trade) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := bus.PublishTrade(ctx, t); err != nil {
				logger.Error("trade publish failed", applogger.Error(err))
			}
		}),
	}
	if store != nil {
		opts = append(opts, simulator.WithTradeSink(store))
	}
	return simulator.New(scfg, logger, opts...)
}

// ProvideIngestor creates the stream ingestor.
func ProvideIngestor(cfg *config.Config, source repository.CandleSource, history repository.HistoryProvider, logger *applogger.Logger, m repository.Metrics) *ingestor.Ingestor {
	return ingestor.New(ingestorConfig(cfg), source, history, logger, ingestor.WithMetrics(m))
}

// ProvidePipeline wires the live loop. A typed-nil store must become a nil
// interface or the pipeline would call through it.
func ProvidePipeline(
	cfg *config.Config,
	ing *ingestor.Ingestor,
	eval *evaluator.Evaluator,
	analyzer *regime.Analyzer,
	engine *confluence.Engine,
	sim *simulator.Simulator,
	bus repository.EventBus,
	chStore *internalrepo.CHCandleStore,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Pipeline {
	var store repository.CandleSink
	if chStore != nil {
		store = chStore
	}
	tf := repository.NormalizeTimeframe(cfg.Stream.Timeframe)
	return usecase.NewPipeline(cfg.Stream.Symbol, tf, ing, eval, analyzer, engine, sim, bus, store, m, logger)
}

// ProvideStatusHandler creates the HTTP surface.
func ProvideStatusHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	monitor *health.Monitor,
	engine *confluence.Engine,
	sim *simulator.Simulator,
) xhttp.Handler {
	return api.NewStatusHandler(logger, pipeline, monitor, engine, sim, cfg.Stream.Timeframe)
}

// ProvideApp assembles the application. With a Kafka producer present the
// logger gets an aggregating collector so repeated errors ship to the bus as
// counted entries instead of raw spam.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	bus repository.EventBus,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	if producer != nil {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "conflux.logs",
			Publisher:      kafkaLogPublisher{producer},
		})
	}
	return server.New(cfg, logger, pipeline, bus, chClient, handler)
}

// kafkaLogPublisher adapts the producer to the log collector's Publisher.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// NewBacktest assembles a backtest runner over the same components the live
// pipeline uses. History prefers ClickHouse when configured so replays do
// not depend on the exchange API.
func NewBacktest(cfg *config.Config) (*usecase.Backtest, *simulator.Simulator, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	set, err := ProvideDetectorSet(cfg)
	if err != nil {
		return nil, nil, err
	}
	analyzer := ProvideRegimeAnalyzer(cfg)
	eval := evaluator.New(set, logger, evaluator.WithDeadline(cfg.Evaluator.Deadline))
	engine, err := ProvideEngine(cfg, set, analyzer, logger)
	if err != nil {
		return nil, nil, err
	}
	sim := simulator.New(simulatorConfig(cfg), logger)

	var history repository.HistoryProvider
	if chClient, err := ProvideClickHouseClient(cfg); err == nil && chClient != nil {
		history = ProvideCandleStore(chClient, logger)
	} else {
		history = ProvideHistoryProvider(cfg, logger)
	}

	bt := usecase.NewBacktest(cfg.Stream.Symbol, cfg.Stream.WindowSize, history, eval, analyzer, engine, sim, logger)
	return bt, sim, nil
}

func ingestorConfig(cfg *config.Config) ingestor.Config {
	return ingestor.Config{
		Symbol:         cfg.Stream.Symbol,
		Timeframe:      repository.NormalizeTimeframe(cfg.Stream.Timeframe),
		BootstrapCount: cfg.Stream.BootstrapCount,
		WindowSize:     cfg.Stream.WindowSize,
		Debounce:       cfg.Stream.Debounce,
		BackoffBase:    cfg.Stream.BackoffBase,
		BackoffMax:     cfg.Stream.BackoffMax,
		BackoffFactor:  cfg.Stream.BackoffFactor,
		StableAfter:    cfg.Stream.StableAfter,
	}
}

func simulatorConfig(cfg *config.Config) simulator.Config {
	return simulator.Config{
		InitialEquity:   cfg.Simulator.InitialEquity,
		PositionSizePct: cfg.Simulator.PositionSizePct,
		StopATRMult:     cfg.Simulator.StopATRMult,
		TargetATRMult:   cfg.Simulator.TargetATRMult,
		StopFirst:       cfg.Simulator.StopFirst,
		EntryNextOpen:   cfg.Simulator.EntryNextOpen,
		MakerFeeRate:    cfg.Simulator.MakerFeeRate,
		TakerFeeRate:    cfg.Simulator.TakerFeeRate,
		SlippageRate:    cfg.Simulator.SlippageRate,
	}
}

func confluenceMode(s string) models.ConfluenceMode {
	return models.ConfluenceMode(s)
}

func splitHostPort(addr string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}
