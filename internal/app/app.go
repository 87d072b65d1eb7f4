package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ilsegaertner/CUB-Film-data/internal/auth"
	"github.com/ilsegaertner/CUB-Film-data/internal/config"
	"github.com/ilsegaertner/CUB-Film-data/internal/event"
	handler "github.com/ilsegaertner/CUB-Film-data/internal/handler/http"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository"
	"github.com/ilsegaertner/CUB-Film-data/internal/repository/postgres"
	rediscache "github.com/ilsegaertner/CUB-Film-data/internal/repository/redis"
	"github.com/ilsegaertner/CUB-Film-data/internal/service"
	"github.com/ilsegaertner/CUB-Film-data/migrations"
	"github.com/ilsegaertner/CUB-Film-data/pkg/database"
	"github.com/ilsegaertner/CUB-Film-data/pkg/health"
	pkgkafka "github.com/ilsegaertner/CUB-Film-data/pkg/kafka"
	"github.com/ilsegaertner/CUB-Film-data/pkg/middleware"
	"github.com/ilsegaertner/CUB-Film-data/pkg/tracing"
)

// App wires together all dependencies and runs the film API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	movieCache     *rediscache.MovieCache
	movieService   *service.MovieService
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Insecure:       cfg.OTelInsecure,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	// Repositories. The movie catalog is read through Redis when enabled.
	userRepo := postgres.NewUserRepository(pool)
	var movieRepo repository.MovieRepository = postgres.NewMovieRepository(pool)
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.movieCache = rediscache.NewMovieCache(movieRepo, client, cfg.MovieCacheTTL, logger)
		movieRepo = a.movieCache
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Kafka producer. A nil publisher disables events.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		}, logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, cfg.KafkaUserTopic, logger)

	// Build the dependency graph.
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	verifier, err := auth.NewVerifier(userRepo, hasher, logger)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("init credential verifier: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTokenExpiry, cfg.JWTIssuer)
	authenticator := auth.NewAuthenticator(tokens, userRepo)

	authService := service.NewAuthService(userRepo, hasher, verifier, tokens, authenticator, eventProducer, logger)
	userService := service.NewUserService(userRepo, movieRepo, hasher, eventProducer, logger)
	a.movieService = service.NewMovieService(movieRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.redis != nil {
		client := a.redis
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(authService, userService, a.movieService, healthHandler, logger, handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		MaxBodyBytes:      cfg.MaxRequestBodyKiB << 10,
		CatalogMaxAge:     int(cfg.CatalogCacheMaxAge.Seconds()),
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// MovieService exposes the catalog service for maintenance commands.
func (a *App) MovieService() *service.MovieService {
	return a.movieService
}

// InvalidateMovieCache drops every cached catalog entry. It is a no-op when
// Redis is disabled.
func (a *App) InvalidateMovieCache(ctx context.Context) error {
	if a.movieCache == nil {
		return nil
	}
	return a.movieCache.Invalidate(ctx)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeAll()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Close releases every backing connection without starting the HTTP server.
// Maintenance commands call it instead of Shutdown.
func (a *App) Close() error {
	return errors.Join(a.closeAll()...)
}

// closeAll releases everything after the HTTP server, in shutdown order.
// Components that were never initialized are skipped.
func (a *App) closeAll() []error {
	var errs []error

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	// 4. Close Redis client.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	// 5. Close PostgreSQL pool.
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}

	return errs
}
