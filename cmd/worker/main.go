package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/alert"
	"github.com/noah-isme/oilprice-ni/internal/app"
	"github.com/noah-isme/oilprice-ni/internal/common"
	"github.com/noah-isme/oilprice-ni/internal/config"
	"github.com/noah-isme/oilprice-ni/internal/lock"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := app.InitTracing(ctx, cfg, "oilprice-worker")
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	pool, err := app.OpenPostgres(ctx, cfg, "oilprice-worker")
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
	defer func() { _ = taskClient.Close() }()

	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing config")
	}
	quotes := &quote.Service{
		Engine:    engine,
		Suppliers: supplier.NewPGStore(pool),
		Cache:     quote.NewCache(redisClient, cfg.QuoteCacheTTL),
		Logger:    logger,
	}
	worker := &alert.Worker{
		Svc: &alert.Service{
			Store:    alert.NewPGStore(pool),
			Quotes:   quotes,
			Engine:   engine,
			Enqueuer: alert.TaskEnqueuer{Client: taskClient, Queue: cfg.AlertQueue, MaxRetry: cfg.AlertMaxRetry, DedupWindow: cfg.AlertDedupWindow},
			Notifier: alert.EmailNotifier{Mail: common.LogEmailSender{Logger: logger}},
			Logger:   logger,
		},
		Locker:     lock.Locker{R: redisClient},
		LockTTL:    cfg.LockTTL,
		SweepLimit: cfg.AlertSweepLimit,
		Logger:     logger,
	}

	mux := asynq.NewServeMux()
	worker.Register(mux)

	srv := asynq.NewServer(asynqRedis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{cfg.AlertQueue: 1},
		Logger:      asynqLogger{logger},
	})
	scheduler := asynq.NewScheduler(asynqRedis, &asynq.SchedulerOpts{Logger: asynqLogger{logger}})
	entryID, err := scheduler.Register(cfg.AlertSweepSpec, alert.NewSweepTask(), asynq.Queue(cfg.AlertQueue), asynq.MaxRetry(0))
	if err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.AlertSweepSpec).Msg("register alert sweep")
	}
	logger.Info().Str("entry_id", entryID).Str("spec", cfg.AlertSweepSpec).Msg("alert sweep scheduled")

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
