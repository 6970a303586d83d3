package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/agro-analytics-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/agro-analytics-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/agro-analytics-service/internal/adapter/kafka"
	"github.com/couchcryptid/agro-analytics-service/internal/adapter/mongo"
	"github.com/couchcryptid/agro-analytics-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/agro-analytics-service/internal/adapter/redis"
	"github.com/couchcryptid/agro-analytics-service/internal/config"
	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	"github.com/couchcryptid/agro-analytics-service/internal/report"
)

const startupTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	source, closeSource, err := openStore(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("failed to open telemetry store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	// Narrative generation is feature-flagged via NARRATIVE_ENABLED / GEMINI_API_KEY.
	var narrator report.TextGenerator
	closeCache := func() {}
	if cfg.NarrativeEnabled {
		client, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.NarrativeTimeout,
		}, logger, metrics)
		if err != nil {
			logger.Error("failed to create narrative client", "error", err)
			os.Exit(1)
		}
		var cache gemini.Cache
		cache, closeCache = narrativeCache(ctx, cfg, logger)
		narrator = gemini.NewCachedGenerator(client, cache, metrics)
		metrics.NarrativeEnabled.Set(1)
		logger.Info("narrative generation enabled", "model", cfg.GeminiModel, "timeout", cfg.NarrativeTimeout)
	} else {
		logger.Info("narrative generation disabled")
	}

	var (
		publisher report.ReportPublisher
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.PublishEnabled() {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("report events enabled", "topic", cfg.KafkaReportTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := report.New(source, narrator, publisher, logger, metrics, report.Options{
		FetchLimit:   cfg.FetchLimit,
		FetchTimeout: cfg.FetchTimeout,
		Location:     cfg.Location,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.CORSOrigin, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	closeCache()
	closeSource(shutdownCtx)

	logger.Info("shutdown complete")
}

// openStore connects the configured telemetry backend and returns it with
// its close function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (report.TelemetrySource, func(context.Context), error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("telemetry store connected", "backend", cfg.StoreBackend,
			"database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return store, func(ctx context.Context) {
			if err := store.Close(ctx); err != nil {
				logger.Error("mongo disconnect error", "error", err)
			}
		}, nil
	case config.BackendPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("telemetry store connected", "backend", cfg.StoreBackend)
		return store, func(context.Context) { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// narrativeCache prefers Redis when configured and reachable, falling back to
// the in-process LRU. The returned function releases the cache backend.
func narrativeCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (gemini.Cache, func()) {
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := redisadapter.Connect(pingCtx, cfg.RedisAddr)
		if err == nil {
			logger.Info("narrative cache: redis", "addr", cfg.RedisAddr, "ttl", cfg.NarrativeCacheTTL)
			return redisadapter.NewNarrativeCache(client, cfg.NarrativeCacheTTL, logger), func() {
				if err := client.Close(); err != nil {
					logger.Error("redis close error", "error", err)
				}
			}
		}
		logger.Warn("redis unavailable, using in-memory narrative cache", "addr", cfg.RedisAddr, "error", err)
	}
	logger.Info("narrative cache: memory", "size", cfg.NarrativeCacheSize)
	return gemini.NewLRUCache(cfg.NarrativeCacheSize), func() {}
}
