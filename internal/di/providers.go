package di

import (
	"context"
	"fmt"
	"time"

	"ThreadForge/internal/domain/repository"
	"ThreadForge/internal/handler/api"
	repoimpl "ThreadForge/internal/repository"
	fallbackgen "ThreadForge/internal/service/fallback"
	"ThreadForge/internal/service/gate"
	"ThreadForge/internal/service/marketdata"
	"ThreadForge/internal/service/model"
	"ThreadForge/internal/service/pricestream"
	"ThreadForge/internal/service/prompt"
	"ThreadForge/internal/service/sanitize"
	"ThreadForge/internal/service/thread"
	"ThreadForge/internal/usecase"
	"ThreadForge/pkg/cache"
	"ThreadForge/pkg/clickhouse"
	"ThreadForge/pkg/config"
	httppkg "ThreadForge/pkg/http"
	"ThreadForge/pkg/kafka"
	"ThreadForge/pkg/logger"
	"ThreadForge/pkg/metrics"
	"ThreadForge/pkg/queue"
	"ThreadForge/pkg/server"
)

const errorLogTopic = "threadforge.logs.errors"

func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
	}
	if cfg.Environment == "production" {
		lc.Level = "info"
		lc.Format = "json"
	}
	return logger.New(lc)
}

func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	opts := []cache.RedisOption{
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.Password != "" {
		opts = append(opts, cache.WithRedisPassword(cfg.Redis.Password))
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, cache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	return cache.NewRedisCache(opts...)
}

func ProvideCacheService(rc *cache.RedisCache) cache.Service {
	return cache.NewLayeredCache(rc,
		cache.WithMemoryMaxSize(2048),
		cache.WithMemoryCleanup(time.Minute),
	)
}

func ProvideClickHouse(cfg *config.Config) (*clickhouse.Client, error) {
	return clickhouse.NewClient(
		clickhouse.WithHost(cfg.ClickHouse.Host),
		clickhouse.WithPort(cfg.ClickHouse.Port),
		clickhouse.WithDatabase(cfg.ClickHouse.Database),
		clickhouse.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		clickhouse.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
}

// ProvideKafkaProducer returns nil when Kafka is disabled; downstream
// providers treat nil as "no broker available".
func ProvideKafkaProducer(cfg *config.Config, lgr *logger.Logger) (*kafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := kafka.NewProducer(
		kafka.WithBrokers(cfg.Kafka.Brokers),
		kafka.WithCompression(cfg.Kafka.Compression),
		kafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		kafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		kafka.WithBatchTimeout(cfg.Kafka.Linger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	// Aggregate repeated error logs and ship them over the same broker.
	lgr.AddCollector(&logger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          errorLogTopic,
		Publisher:      kafkaLogPublisher{producer: producer},
	})
	return producer, nil
}

type kafkaLogPublisher struct {
	producer *kafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func ProvideArtifactEvents(cfg *config.Config, producer *kafka.Producer, lgr *logger.Logger) repository.ArtifactEvents {
	if producer == nil {
		return repoimpl.NoopArtifactEvents{}
	}
	return repoimpl.NewKafkaArtifactEvents(producer, cfg.Kafka.Topic, lgr)
}

func ProvideUsageStore(rc *cache.RedisCache, lgr *logger.Logger) repository.UsageStore {
	return repoimpl.NewRedisUsageStore(rc, lgr)
}

func ProvideArtifactArchive(ch *clickhouse.Client, lgr *logger.Logger) (repository.ArtifactArchive, error) {
	return repoimpl.NewClickHouseArtifactStore(ch, lgr)
}

func ProvideHTTPClient(cfg *config.Config) *httppkg.Client {
	timeout := cfg.Market.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return httppkg.NewClient(httppkg.WithTimeout(timeout))
}

func ProvideMarketData(cfg *config.Config, hc *httppkg.Client, svc cache.Service, lgr *logger.Logger) repository.MarketData {
	return marketdata.NewClient(marketdata.Config{
		BaseURL:       cfg.Market.BaseURL,
		GovernanceURL: cfg.Market.GovernanceURL,
		RetryMax:      cfg.Market.RetryMax,
		CacheTTL:      cfg.Market.CacheTTL,
	}, hc, svc, lgr)
}

func ProvideModelGateway(cfg *config.Config, lgr *logger.Logger) repository.ModelGateway {
	return model.NewClient(model.ClientConfig{
		BaseURL:     cfg.Model.BaseURL,
		APIKey:      cfg.Model.APIKey,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
	}, lgr)
}

func ProvideInvoker(gateway repository.ModelGateway, m repository.Metrics, cfg *config.Config, lgr *logger.Logger) *model.Invoker {
	return model.NewInvoker(gateway, m, model.InvokerConfig{
		PrimaryModel:   cfg.Model.Primary,
		FallbackModel:  cfg.Model.Fallback,
		AttemptTimeout: cfg.Model.AttemptTimeout,
	}, lgr)
}

func ProvideUsageGate(store repository.UsageStore, cfg *config.Config, lgr *logger.Logger) *gate.UsageGate {
	return gate.NewUsageGate(store, gate.Limits{
		FreeDaily: cfg.Plans.FreeDailyLimit,
		ProDaily:  cfg.Plans.ProDailyLimit,
	}, lgr)
}

func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, archive repository.ArtifactArchive, events repository.ArtifactEvents, lgr *logger.Logger) *queue.RedisQueue {
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client())

	q.RegisterJobs([]queue.Job{
		usecase.NewPersistArtifactJob(archive, events, lgr),
	})
	return q
}

func ProvideOrchestrator(
	g *gate.UsageGate,
	market repository.MarketData,
	invoker *model.Invoker,
	archive repository.ArtifactArchive,
	events repository.ArtifactEvents,
	q *queue.RedisQueue,
	m repository.Metrics,
	cfg *config.Config,
	lgr *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(
		g,
		market,
		prompt.NewBuilder(),
		invoker,
		sanitize.NewSanitizer(),
		thread.NewFormatter(),
		fallbackgen.NewGenerator(),
		archive,
		events,
		q,
		m,
		usecase.Options{
			WatermarkBelow: cfg.Plans.WatermarkBelow,
			NewsLimit:      cfg.Market.NewsLimit,
			ProposalLimit:  cfg.Market.ProposalLimit,
		},
		lgr,
	)
}

func ProvideThreadsHandler(orc *usecase.Orchestrator, lgr *logger.Logger) *api.ThreadsHandler {
	return api.NewThreadsHandler(orc, lgr)
}

func ProvideHTTPServer(h *api.ThreadsHandler, cfg *config.Config) *httppkg.Server {
	opts := []httppkg.ServerOption{
		httppkg.WithPort(cfg.Server.Port),
		httppkg.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, httppkg.WithMetricsPath(cfg.Metrics.Path))
	}
	return httppkg.NewServer(h, opts...)
}

func ProvideStream(cfg *config.Config, svc cache.Service, lgr *logger.Logger) *pricestream.Stream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return pricestream.NewStream(pricestream.Config{
		WebSocketURL:   cfg.Stream.WebSocketURL,
		Symbols:        cfg.Stream.Symbols,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		PingInterval:   cfg.Stream.PingInterval,
	}, svc, lgr)
}

func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	srv *httppkg.Server,
	q *queue.RedisQueue,
	stream *pricestream.Stream,
	rc *cache.RedisCache,
	ch *clickhouse.Client,
	producer *kafka.Producer,
) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithComponent("queue", q),
	}
	if stream != nil {
		opts = append(opts, server.WithComponent("pricestream", stream))
	}
	opts = append(opts,
		server.WithCloser("clickhouse", ch.Close),
		server.WithCloser("redis", rc.Close),
	)
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka", producer.Close))
	}
	return server.New(lgr, srv, opts...)
}
