package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"DripView/internal/domain/repository"
	"DripView/internal/handler/api"
	mid "DripView/internal/middleware"
	internalrepo "DripView/internal/repository"
	"DripView/internal/service/keystore"
	svcmetrics "DripView/internal/service/metrics"
	"DripView/internal/service/ratelimit"
	"DripView/internal/service/yahoo"
	"DripView/internal/services/drip"
	"DripView/internal/usecase"
	"DripView/pkg/cache"
	pkgch "DripView/pkg/clickhouse"
	"DripView/pkg/config"
	xhttp "DripView/pkg/http"
	"DripView/pkg/http/middleware"
	pkgkafka "DripView/pkg/kafka"
	applogger "DripView/pkg/logger"
	"DripView/pkg/metrics"
	"DripView/pkg/queue"
	"DripView/pkg/server"
)

// ProvideLogger creates the root logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegisterer returns the default registerer, or a private one when
// metrics are disabled so nothing is exposed.
func ProvideRegisterer(cfg *config.Config) prometheus.Registerer {
	if cfg.Metrics.Enabled {
		return prometheus.DefaultRegisterer
	}
	return prometheus.NewRegistry()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg prometheus.Registerer) repository.Metrics {
	return metrics.New(reg)
}

func ProvideEndpointMetrics(reg prometheus.Registerer) *svcmetrics.Endpoint {
	return svcmetrics.NewEndpoint(reg)
}

// ProvideRedisCache connects to Redis. Keys are namespaced by redis.prefix.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideRedisClient exposes the raw client for the queue and limiter.
func ProvideRedisClient(rc *cache.RedisCache) redis.UniversalClient {
	return rc.Client()
}

// ProvideResponseCache puts a small in-process LRU in front of Redis.
func ProvideResponseCache(rc *cache.RedisCache, cfg *config.Config) cache.Service {
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Provider.LocalCacheSize))
}

// ProvideKeyStore stores keys under the unprefixed user:{id}:rapidapiKey.
func ProvideKeyStore(client redis.UniversalClient, cfg *config.Config) repository.KeyStore {
	return keystore.New(cfg.Auth.Secret, cache.NewRedisCacheWithClient(client, ""))
}

func ProvideYahooClient(cfg *config.Config, m repository.Metrics, log *applogger.Logger) *yahoo.Client {
	return yahoo.New(yahoo.Config{
		BaseURL:             cfg.Provider.BaseURL,
		Host:                cfg.Provider.Host,
		Timeout:             cfg.Provider.Timeout,
		Retries:             cfg.Provider.Retries,
		Backoff:             cfg.Provider.Backoff,
		BreakerMinRequests:  cfg.Provider.BreakerRequests,
		BreakerFailureRatio: cfg.Provider.BreakerRatio,
		BreakerOpenFor:      cfg.Provider.BreakerOpenFor,
	}, m, log)
}

// ProvideMarketData caches provider responses.
func ProvideMarketData(y *yahoo.Client, c cache.Service, m repository.Metrics, cfg *config.Config) repository.MarketData {
	return internalrepo.NewCachedMarketData(y, c, cfg.Provider.CacheTTL, m)
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(p.Compression),
		pkgkafka.WithRequiredAcks(p.RequiredAcks),
		pkgkafka.WithBatch(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.WriteTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func needsClickHouse(cfg *config.Config) bool {
	return (cfg.Archive.Enabled && cfg.Archive.Backend == config.BackendClickHouse) || cfg.Kafka.Consumer.Enabled
}

// ProvideClickHouseClient connects when the archive writes to ClickHouse
// directly or through the Kafka consumer. Otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !needsClickHouse(cfg) {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.Username, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(ch.AsyncInsert, true),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore returns the ClickHouse archive store, or nil.
func ProvideBarStore(client *pkgch.Client, cfg *config.Config, log *applogger.Logger) (repository.Storage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseBarStore(client, internalrepo.DefaultBarsTable, cfg.Archive.BatchSize, log)
	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return store, nil
}

// ProvideArchiveProcessor routes archived bars to the configured backend,
// or returns nil when archiving is off.
func ProvideArchiveProcessor(cfg *config.Config, producer *pkgkafka.Producer, store repository.Storage, m repository.Metrics) *usecase.ArchiveProcessor {
	if !cfg.Archive.Enabled {
		return nil
	}
	var pub repository.Publisher
	if cfg.Archive.Backend == config.BackendKafka && producer != nil {
		pub = internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.BarsTopic)
	}
	return usecase.NewArchiveProcessor(pub, store, m, cfg.Archive.Backend)
}

func ProvideArchivePipeline(cfg *config.Config, proc *usecase.ArchiveProcessor, m repository.Metrics, log *applogger.Logger) *mid.ArchivePipeline {
	if proc == nil {
		return nil
	}
	return mid.NewArchivePipeline(proc, m, log,
		mid.WithBufferSize(cfg.Archive.BufferSize),
		mid.WithBatch(cfg.Archive.BatchSize, cfg.Archive.BatchTimeout),
	)
}

func ProvideHistoryLoader(md repository.MarketData, pipeline *mid.ArchivePipeline, m repository.Metrics, cfg *config.Config) *usecase.HistoryLoader {
	var archiver repository.Archiver
	if pipeline != nil {
		archiver = pipeline
	}
	return usecase.NewHistoryLoader(md, archiver, m, cfg.Provider.MaxConcurrentReq)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config, client redis.UniversalClient) middleware.RateChecker {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Backend == config.BackendMemory {
		return ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}
	return ratelimit.NewSlidingWindow(client, cfg.RateLimit.Limit, cfg.RateLimit.Window)
}

func ProvideAPIHandler(
	cfg *config.Config,
	loader *usecase.HistoryLoader,
	keys repository.KeyStore,
	store repository.Storage,
	limiter middleware.RateChecker,
	em *svcmetrics.Endpoint,
	log *applogger.Logger,
) *api.Handler {
	engine := drip.New()
	return api.NewHandler(api.Deps{
		Returns:    usecase.NewReturnsUseCase(loader, engine).WithObserver(em),
		Stats:      usecase.NewStatsUseCase(loader).WithObserver(em),
		Prices:     usecase.NewPricesUseCase(loader),
		Dividends:  usecase.NewDividendsUseCase(loader),
		Keys:       usecase.NewKeysUseCase(keys),
		Archive:    store,
		Metrics:    em,
		Limiter:    limiter,
		Production: cfg.IsProduction(),
		Log:        log,
		Auth: middleware.AuthConfig{
			Secret:          []byte(cfg.Auth.Secret),
			Issuer:          cfg.Auth.Issuer,
			TrustUserHeader: cfg.Auth.TrustUserHeader,
		},
	})
}

func ProvideHTTPServer(cfg *config.Config, h *api.Handler, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.AllowOrigins...),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	}
	return xhttp.NewServer(h, log, opts...)
}

// ProvideKafkaConsumer creates the bars consumer that writes Kafka archive
// messages into ClickHouse, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, store repository.Storage, m repository.Metrics, reg prometheus.Registerer, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled || store == nil {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cc.OffsetReset),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewBarsHandler(cfg.Kafka.BarsTopic, store, m))
	return consumer, nil
}

// ProvideQueue creates the refresh job queue when the refresher can run.
func ProvideQueue(cfg *config.Config, client redis.UniversalClient, loader *usecase.HistoryLoader, log *applogger.Logger) *queue.RedisQueue {
	if !cfg.Refresher.Enabled {
		return nil
	}
	if cfg.Provider.ServiceKey == "" {
		log.Warn("refresher enabled without provider.service_key, skipping")
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Refresher.Workers,
		RetryLimit: cfg.Refresher.MaxRetries,
		JobTimeout: cfg.Refresher.JobTimeout,
	}, client, queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.RegisterJob(usecase.NewRefreshJob(loader, cfg.Provider.ServiceKey))
	return q
}

func ProvideRefresher(cfg *config.Config, q *queue.RedisQueue, rc *cache.RedisCache, log *applogger.Logger) (*usecase.Refresher, error) {
	if q == nil {
		return nil, nil
	}
	r, err := usecase.NewRefresher(cfg.Refresher.Schedule, cfg.Refresher.Symbols, q, rc, log)
	if err != nil {
		return nil, fmt.Errorf("refresher: %w", err)
	}
	return r, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.ArchivePipeline,
	proc *usecase.ArchiveProcessor,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	refresher *usecase.Refresher,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	client redis.UniversalClient,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, km kafkago.Message, _ []byte, err error) {
				log.Warn("archive message failed",
					applogger.String("topic", topic),
					applogger.Int("partition", km.Partition),
					applogger.Int64("offset", km.Offset),
					applogger.Error(err),
				)
			},
		})
	}
	return server.New(cfg, server.Components{
		Log:        log,
		HTTP:       httpServer,
		Pipeline:   pipeline,
		Processor:  proc,
		Consumer:   consumer,
		Queue:      q,
		Refresher:  refresher,
		Producer:   producer,
		ClickHouse: ch,
		Redis:      client,
	})
}
