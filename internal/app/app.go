package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/domespa/digital-store-happykids-sub002/internal/analytics"
	catalogpg "github.com/domespa/digital-store-happykids-sub002/internal/catalog/postgres"
	"github.com/domespa/digital-store-happykids-sub002/internal/config"
	handler "github.com/domespa/digital-store-happykids-sub002/internal/handler/http"
	"github.com/domespa/digital-store-happykids-sub002/internal/search"
	"github.com/domespa/digital-store-happykids-sub002/pkg/database"
	"github.com/domespa/digital-store-happykids-sub002/pkg/health"
	pkgkafka "github.com/domespa/digital-store-happykids-sub002/pkg/kafka"
	"github.com/domespa/digital-store-happykids-sub002/pkg/tracing"
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// PostgreSQL catalog store.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPassword
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSLMode

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres pool: %w", err)
	}
	database.RegisterPoolMetrics(pool, "search")

	store := catalogpg.NewStore(pool)
	searchService := search.New(store, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Redis cache for autocomplete and popular listings.
	if cfg.CacheEnabled {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB

		redisClient, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis client: %w", err)
		}
		searchService = searchService.WithCache(redisClient, cfg.CacheTTL)
		// The cache degrades gracefully, so a Redis outage must not flip
		// readiness.
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("search cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	// Kafka producer for search analytics events.
	var producer *pkgkafka.Producer
	if cfg.AnalyticsEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		searchService = searchService.WithAnalytics(analytics.NewProducer(producer, logger))
		// Analytics is fire-and-forget; a broker outage must not flip
		// readiness either.
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("search analytics enabled", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// OpenTelemetry tracing.
	var tracingShutdown func(context.Context) error
	if cfg.TracingEnabled {
		traceCfg := tracing.DefaultConfig("search")
		traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
		traceCfg.SampleRate = cfg.TraceSampleRate
		traceCfg.Environment = cfg.Environment
		traceCfg.Enabled = true

		tracingShutdown, err = tracing.InitTracer(ctx, traceCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		logger.Info("tracing enabled", slog.String("endpoint", cfg.OTLPEndpoint))
	}

	router := handler.NewRouter(searchService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
