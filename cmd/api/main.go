package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/BenitoJames/backend-tindahan/internal/auth"
	"github.com/BenitoJames/backend-tindahan/internal/checkout"
	"github.com/BenitoJames/backend-tindahan/internal/common"
	"github.com/BenitoJames/backend-tindahan/internal/config"
	"github.com/BenitoJames/backend-tindahan/internal/events"
	"github.com/BenitoJames/backend-tindahan/internal/health"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/jobs"
	"github.com/BenitoJames/backend-tindahan/internal/lock"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
	"github.com/BenitoJames/backend-tindahan/internal/promo"
	"github.com/BenitoJames/backend-tindahan/internal/ratelimit"
	"github.com/BenitoJames/backend-tindahan/internal/security"
	"github.com/BenitoJames/backend-tindahan/internal/store"
	"github.com/BenitoJames/backend-tindahan/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "tindahan-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	persist := postgres.New(pool)

	ledger := inventory.NewLedger(
		inventory.WithLowStockThreshold(cfg.LowStockThreshold),
		inventory.WithExpiryWindow(time.Duration(cfg.ExpiryWindowDays)*24*time.Hour),
	)
	sales := promo.NewCatalog()
	customers := loyalty.NewRegistry()
	restoreState(ctx, persist, ledger, sales, customers, logger)

	bus := events.NewBus(logger, events.SalesLogNotifier{Appender: persist})

	checkoutSvc := checkout.NewService(ledger, sales, customers, persist, bus, logger, checkout.Options{
		Rates: checkout.Rates{
			VATBps:            cfg.VATBps,
			SeniorDiscountBps: cfg.SeniorDiscountBps,
		},
		MembershipFee:      cfg.MembershipFee,
		PromoPriceAtAdd:    cfg.PromoPriceAtAdd,
		MembershipValidity: cfg.MembershipValidity,
	})

	authService, err := auth.NewService(auth.Config{
		Username:       cfg.AdminUsername,
		PasswordHash:   cfg.AdminPasswordHash,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMiddleware := auth.Middleware{Service: authService}

	limiterStore, err := ratelimit.NewRedisStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	loginLimiter := ratelimit.Handler{
		Limiter: ratelimit.New(limiterStore, time.Minute, 10),
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	inventoryHandler := &inventory.Handler{Ledger: ledger}
	promoHandler := &promo.Handler{Catalog: sales}
	loyaltyHandler := &loyalty.Handler{Registry: customers}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.MetricsBucketsMS)
		httpMetrics = obs.NewHTTPMetrics("pos", buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: envBool("SECURE_HEADERS", true), EnableHSTS: envBool("SECURE_HSTS", false)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_BODY_LIMIT_BYTES", 64<<10))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{DB: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
		})

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)
			inventoryHandler.Routes(g)
			promoHandler.Routes(g)
			loyaltyHandler.Routes(g)
			checkoutHandler.Routes(g, idem.Middleware)
		})
	})

	saver := snapshotSaver{
		store:     persist,
		ledger:    ledger,
		sales:     sales,
		customers: customers,
		log:       logger,
	}
	go saver.run(ctx, cfg.SnapshotInterval)

	// The scheduled sweeps run in this process so they prune the same
	// ledgers checkout reserves from; the scheduler binary only enqueues.
	sweeps := &jobs.Handlers{
		Ledger: ledger,
		Sales:  sales,
		Store:  persist,
		Bus:    bus,
		Locker: lock.Locker{R: redisClient},
		Log:    logger,
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskSrv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 1})
	if err := taskSrv.Start(sweeps.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("start sweep task server")
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
	taskSrv.Shutdown()
	saver.saveAll(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}

// snapshotSaver periodically persists the in-memory ledgers so restarts resume
// identifier counters and balances.
type snapshotSaver struct {
	store     store.Store
	ledger    *inventory.Ledger
	sales     *promo.Catalog
	customers *loyalty.Registry
	log       zerolog.Logger
}

func (s snapshotSaver) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.saveAll(saveCtx)
			cancel()
		}
	}
}

func (s snapshotSaver) saveAll(ctx context.Context) {
	if err := s.store.SaveInventory(ctx, s.ledger.Snapshot()); err != nil {
		s.log.Error().Err(err).Msg("save inventory snapshot")
	}
	if err := s.store.SaveSales(ctx, s.sales.Snapshot()); err != nil {
		s.log.Error().Err(err).Msg("save sales snapshot")
	}
	if err := s.store.SaveCustomers(ctx, s.customers.Snapshot()); err != nil {
		s.log.Error().Err(err).Msg("save customer snapshot")
	}
}

func restoreState(ctx context.Context, persist store.Store, ledger *inventory.Ledger, sales *promo.Catalog, customers *loyalty.Registry, logger zerolog.Logger) {
	entries, err := persist.LoadInventory(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load inventory snapshot")
	}
	ledger.Restore(entries)

	saved, err := persist.LoadSales(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load sales snapshot")
	}
	sales.Restore(saved)

	people, err := persist.LoadCustomers(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load customer snapshot")
	}
	customers.Restore(people)

	logger.Info().
		Int("products", len(entries)).
		Int("sales", len(saved)).
		Int("customers", len(people)).
		Msg("state restored")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "tindahan-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
