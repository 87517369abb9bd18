package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SectorPulse/internal/domain/repository"
	domsvc "SectorPulse/internal/domain/service"
	"SectorPulse/internal/handler/api"
	mid "SectorPulse/internal/middleware"
	internalrepo "SectorPulse/internal/repository"
	"SectorPulse/internal/scheduler"
	icache "SectorPulse/internal/service/cache"
	"SectorPulse/internal/service/marketfeed"
	"SectorPulse/internal/services/correlation"
	"SectorPulse/internal/services/normalize"
	"SectorPulse/internal/services/quotes"
	"SectorPulse/internal/usecase"
	pkgcache "SectorPulse/pkg/cache"
	pkgch "SectorPulse/pkg/clickhouse"
	"SectorPulse/pkg/config"
	pkgkafka "SectorPulse/pkg/kafka"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/metrics"
	"SectorPulse/pkg/queue"
	"SectorPulse/pkg/server"
)

// ProvideLogger creates the application logger from the environment name.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Format = "json"
	}
	return applogger.New(lc)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.sector_events (
            id String,
            sector LowCardinality(String),
            ts DateTime,
            severity LowCardinality(String),
            impact LowCardinality(String),
            category LowCardinality(String),
            region String,
            metadata String,
            ingested_at DateTime DEFAULT now()
        ) ENGINE=MergeTree ORDER BY (sector, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.market_points (
            symbol LowCardinality(String),
            ts DateTime,
            pct Float64,
            price Float64,
            volume Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE=MergeTree ORDER BY (symbol, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.correlation_results (
            id String,
            sector LowCardinality(String),
            symbol LowCardinality(String),
            strength Float64,
            confidence Float64,
            lag Int32,
            data_points Int32,
            computed_at DateTime
        ) ENGINE=MergeTree ORDER BY (sector, symbol, computed_at)`, db),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the shared Redis cache, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideCache selects the result cache: layered memory+Redis when Redis is
// enabled, plain in-memory otherwise.
func ProvideCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc != nil {
		return pkgcache.NewLayeredCache(rc)
	}
	return pkgcache.NewMemoryCache()
}

// ProvideEventStore creates the ClickHouse event repository.
func ProvideEventStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.EventRepository {
	s := internalrepo.NewClickHouseEventStore(chClient.DB(), cfg.ClickHouse.Database+".sector_events")
	s.SetLogger(l)
	return s
}

// ProvideMarketStore creates the ClickHouse market repository.
func ProvideMarketStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.MarketRepository {
	s := internalrepo.NewClickHouseMarketStore(chClient.DB(), cfg.ClickHouse.Database+".market_points")
	s.SetLogger(l)
	return s
}

// ProvideResultStore creates the ClickHouse correlation result store.
func ProvideResultStore(chClient *pkgch.Client, cfg *config.Config, c pkgcache.Service, l *applogger.Logger) repository.ResultStore {
	s := internalrepo.NewClickHouseResultStore(chClient.DB(), cfg.ClickHouse.Database+".correlation_results", c)
	s.SetLogger(l)
	s.SetCacheTTL(cfg.Correlations.CacheTTL)
	return s
}

// ProvidePointPublisher creates Kafka publisher for market points.
func ProvidePointPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPointPublisher(producer, cfg.Kafka.PointsTopic)
}

// ProvideMarketStream creates the WebSocket quote stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return marketfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.FeedSymbols(),
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideQuoteProcessor creates the quote processor use case.
func ProvideQuoteProcessor(
	pub repository.Publisher,
	store repository.MarketRepository,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.QuoteProcessor {
	return usecase.NewQuoteProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideQuoteCollector creates the quote collector use case.
func ProvideQuoteCollector(
	stream repository.MarketStream,
	processor *usecase.QuoteProcessor,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.QuoteCollector {
	maxRPS := cfg.Feed.MaxRPS
	if maxRPS <= 0 {
		maxRPS = 50
	}
	bufSize := cfg.Feed.BufferSize
	if bufSize <= 0 {
		bufSize = 2000
	}
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(maxRPS),
		mid.WithBufferSize(bufSize),
	)
	return usecase.NewQuoteCollector(stream, processor, metrics, pipe)
}

// ProvideKafkaHandlers registers handlers for the points and events topics.
func ProvideKafkaHandlers(
	market repository.MarketRepository,
	events repository.EventRepository,
	metrics repository.Metrics,
	cfg *config.Config,
) []pkgkafka.MessageHandler {
	return []pkgkafka.MessageHandler{
		usecase.NewKafkaPointsHandler(cfg.Kafka.PointsTopic, market, metrics),
		usecase.NewKafkaEventsHandler(cfg.Kafka.EventsTopic, events, metrics),
	}
}

// ProvideNormalizer builds the event normalizer from the configured scale.
func ProvideNormalizer(cfg *config.Config) (domsvc.Normalizer, error) {
	sc := cfg.Correlations.SeverityScale
	scale := normalize.Scale{
		Low:      sc.Low,
		Medium:   sc.Medium,
		High:     sc.High,
		Critical: sc.Critical,
	}
	if scale == (normalize.Scale{}) {
		scale = normalize.DefaultScale()
	}
	return normalize.New(scale)
}

// ProvideCorrelator builds the lagged correlation engine.
func ProvideCorrelator() domsvc.Correlator {
	return correlation.NewEngine()
}

// ProvideOrchestrator creates the per-sector correlation orchestrator.
func ProvideOrchestrator(
	events repository.EventRepository,
	market repository.MarketRepository,
	results repository.ResultStore,
	norm domsvc.Normalizer,
	corr domsvc.Correlator,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SectorOrchestrator {
	o := usecase.NewSectorOrchestrator(events, market, results, norm, corr, metrics, l)
	if cfg.Correlations.TickerTimeout > 0 {
		o.WithTickerTimeout(cfg.Correlations.TickerTimeout)
	}
	return o
}

// ProvideSectorService creates the sector run entry point.
func ProvideSectorService(orch *usecase.SectorOrchestrator, cfg *config.Config) *usecase.SectorService {
	return usecase.NewSectorService(orch, cfg)
}

// ProvideScheduler creates the cron scheduler for periodic runs.
func ProvideScheduler(svc *usecase.SectorService, l *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(svc, l, 2*time.Minute)
}

// ProvideRecomputeQueue creates the Redis-backed recompute queue, or nil
// when Redis is disabled.
func ProvideRecomputeQueue(
	rc *pkgcache.RedisCache,
	svc *usecase.SectorService,
	l *applogger.Logger,
) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  64,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewRecomputeJob(svc))
	return q
}

// ProvideQuotesClient creates the trailing-history HTTP client.
func ProvideQuotesClient(cfg *config.Config) *quotes.Client {
	return quotes.NewClient(cfg)
}

// ProvideBackfiller creates the startup history seeder.
func ProvideBackfiller(q *quotes.Client, store repository.MarketRepository, l *applogger.Logger) *usecase.Backfiller {
	return usecase.NewBackfiller(q, store, l)
}

// ProvideHTTPHandler creates the Echo correlations handler.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	results repository.ResultStore,
	events repository.EventRepository,
	market repository.MarketRepository,
	q *queue.RedisQueue,
) *api.CorrelationsHandler {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	h := api.NewCorrelationsHandler(l, results, events, market, qs)
	h.SetCache(icache.NewTTLCache(), cfg.Correlations.CacheTTL)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	httpHandler *api.CorrelationsHandler,
	q *queue.RedisQueue,
	sched *scheduler.Scheduler,
	backfiller *usecase.Backfiller,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, handlers, chClient)
	app.SetHTTPHandler(httpHandler)
	if q != nil {
		app.SetQueue(q)
	}
	app.SetScheduler(sched)
	app.SetBackfiller(backfiller)
	return app
}
