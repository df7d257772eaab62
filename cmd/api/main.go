package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/oilprice-ni/internal/alert"
	"github.com/noah-isme/oilprice-ni/internal/app"
	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/config"
	"github.com/noah-isme/oilprice-ni/internal/health"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/ratelimit"
	"github.com/noah-isme/oilprice-ni/internal/security"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

const metricsNamespace = "oilprice"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing := cfg.TraceExporter != "none"
	shutdownTracer, err := app.InitTracing(ctx, cfg, "oilprice-api")
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		tracing = false
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, cfg.HTTPBucketsMS, nil)
	}

	if err := app.MigrateIfEnabled(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	pool, err := app.OpenPostgres(ctx, cfg, "oilprice-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	redisClient, err := app.OpenRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	asynqRedis, err := app.AsynqRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure task queue")
	}
	taskClient := asynq.NewClient(asynqRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing config")
	}

	suppliers := supplier.NewPGStore(pool)
	quotes := &quote.Service{
		Engine:    engine,
		Suppliers: suppliers,
		Cache:     quote.NewCache(redisClient, cfg.QuoteCacheTTL),
		Logger:    logger,
	}
	alerts := &alert.Service{
		Store:    alert.NewPGStore(pool),
		Quotes:   quotes,
		Engine:   engine,
		Enqueuer: alert.TaskEnqueuer{Client: taskClient, Queue: cfg.AlertQueue, MaxRetry: cfg.AlertMaxRetry, DedupWindow: cfg.AlertDedupWindow},
		Notifier: alert.EmailNotifier{Mail: common.LogEmailSender{Logger: logger}},
		Logger:   logger,
	}

	limiterStore, err := ratelimit.NewRedisStore(redisClient, "oilprice:ratelimit:read")
	if err != nil {
		logger.Fatal().Err(err).Msg("rate limiter store")
	}
	onLimiterError := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }
	readLimit, err := ratelimit.ReadLimiter(cfg.RateLimitRead, limiterStore, onLimiterError)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimitRead).Msg("parse RATE_LIMIT_READ")
	}
	alertLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "oilprice:ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByClientIP("alerts"),
			Window: cfg.AlertRateLimitWindow,
			Max:    cfg.AlertRateLimitMax,
		},
		OnError: onLimiterError,
	}

	routes := app.Routes{
		Logger:       logger,
		HTTPMetrics:  httpMetrics,
		Tracing:      tracing,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		Headers:      security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()},
		MaxBodyBytes: cfg.MaxRequestBytes,
		ReadLimit:    readLimit,
		AlertLimit:   alertLimit.Middleware,
		Health:       health.Handler{Checker: health.Deps{DB: pool, Redis: redisClient}},
		Quotes:       &quote.Handler{Svc: quotes},
		Suppliers:    &supplier.Handler{Store: suppliers},
		Alerts:       &alert.Handler{Svc: alerts},
	}
	if cfg.MetricsEnabled {
		routes.MetricsHandler = promhttp.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           app.NewRouter(routes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}
