package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/smogalia/list-gift/internal/auth"
	"github.com/smogalia/list-gift/internal/config"
	"github.com/smogalia/list-gift/internal/event"
	handler "github.com/smogalia/list-gift/internal/handler/http"
	"github.com/smogalia/list-gift/internal/listsync"
	"github.com/smogalia/list-gift/internal/metadata"
	"github.com/smogalia/list-gift/internal/notify"
	"github.com/smogalia/list-gift/internal/repository/postgres"
	redisrepo "github.com/smogalia/list-gift/internal/repository/redis"
	"github.com/smogalia/list-gift/internal/service"
	"github.com/smogalia/list-gift/internal/sse"
	"github.com/smogalia/list-gift/migrations"
	"github.com/smogalia/list-gift/pkg/database"
	"github.com/smogalia/list-gift/pkg/health"
	"github.com/smogalia/list-gift/pkg/httpclient"
	pkgkafka "github.com/smogalia/list-gift/pkg/kafka"
	"github.com/smogalia/list-gift/pkg/middleware"
	"github.com/smogalia/list-gift/pkg/tracing"
)

const (
	serviceName    = "giftregistry"
	serviceVersion = "0.1.0"
	hubBuffer      = 64
)

// App wires together all dependencies and runs the gift registry server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	hub            *listsync.Hub
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	reservations   *service.ReservationService
	httpServer     *http.Server
	cancelStreams  context.CancelFunc
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	a := &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          rdb,
		hub:            listsync.NewHub(hubBuffer, logger),
		tracerShutdown: tracerShutdown,
	}

	// Repositories.
	users := postgres.NewUserRepository(pool)
	wishlists := postgres.NewWishlistRepository(pool)
	items := postgres.NewItemRepository(pool)
	reservations := postgres.NewReservationRepository(pool)
	shares := postgres.NewShareRepository(pool)
	sessions := redisrepo.NewSessionStore(rdb)

	// Change and notification transport.
	consumerHandler := event.NewConsumerHandler(a.hub, notify.NewLogSender(logger), cfg.PublicBaseURL, logger)
	var publisher pkgkafka.Publisher
	switch cfg.SyncTransport {
	case config.TransportKafka:
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumers, err = event.NewConsumers(cfg.KafkaBrokers, consumerHandler, rdb, a.dlq, logger)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("create consumers: %w", err)
		}
		publisher = a.producer
	default:
		bus := event.NewLocalBus(logger)
		consumerHandler.RegisterLocal(bus)
		publisher = bus
		logger.Info("using in-process change propagation")
	}
	producer := event.NewProducer(publisher, logger)

	// Services.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL, cfg.PasswordResetTTL)
	authService := service.NewAuthService(users, sessions, jwtManager, producer, cfg.SessionCacheTTL, logger)
	gateway := &listsync.RepositoryGateway{
		Wishlists:    wishlists,
		Items:        items,
		Reservations: reservations,
		Shares:       shares,
	}
	wishlistService := service.NewWishlistService(wishlists, gateway, producer, logger)
	itemService := service.NewItemService(wishlists, items, producer, logger)
	shareService := service.NewShareService(wishlists, shares, producer, producer, cfg.PublicBaseURL, logger)
	a.reservations = service.NewReservationService(items, wishlists, shares, reservations, producer, cfg.ReservationTTL, logger)

	// Link previews fetch user-supplied URLs, so private networks are off
	// limits.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.MetadataTimeout
	clientCfg.BlockPrivateNetworks = true
	fetcher := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("link-metadata"),
		logger,
	)
	extractor := metadata.NewHTMLExtractor(fetcher, logger)

	syncOpts := listsync.DefaultOptions()
	syncOpts.PollInterval = cfg.SyncPollInterval
	streamer := sse.NewHandler(gateway, a.hub, syncOpts, sse.DefaultHeartbeat, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:         authService,
		Validator:    authService.TokenValidator(),
		Wishlists:    wishlistService,
		Items:        itemService,
		Shares:       shareService,
		Reservations: a.reservations,
		Metadata:     extractor,
		Streamer:     streamer,
		Health:       healthHandler,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	// Event streams outlive WriteTimeout by extending their own deadline;
	// cancelling the base context is what ends them on shutdown.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	a.cancelStreams = cancelStreams
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
	}

	return a, nil
}

// Migrate applies pending migrations and exits.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	pending, err := database.PendingMigrations(migrations.FS)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	logger.Info("applying migrations", slog.Int("files", len(pending)))
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)
	return pool, nil
}

// Run starts the HTTP server, Kafka consumers and the reservation sweeper,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s consumer: %w", c.Topic(), err)
			}
		}()
	}

	if a.cfg.ReservationTTL > 0 {
		go a.runReservationSweep(ctx, a.cfg.ReservationSweepInterval)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// runReservationSweep periodically releases expired reservations.
func (a *App) runReservationSweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := a.reservations.ReleaseExpired(ctx)
			if err != nil {
				a.logger.Error("reservation sweep error", slog.String("error", err.Error()))
			} else if released > 0 {
				a.logger.Info("expired reservations released", slog.Int("released", released))
			}
		}
	}
}

// Shutdown stops all components in order:
// 1. event streams and the HTTP server
// 2. tracer
// 3. Kafka consumers, then producers
// 4. change hub
// 5. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	a.cancelStreams()
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error",
				slog.String("topic", c.Topic()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.hub.Shutdown()

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil {
			a.logger.Error("redis close error", slog.String("error", cerr.Error()))
			err = cerr
		}
	}
	a.pool.Close()
	return err
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
