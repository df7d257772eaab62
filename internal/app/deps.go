// Package app wires infrastructure clients and the HTTP router shared by the
// API, worker and tooling binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/oilprice-ni/internal/config"
	"github.com/noah-isme/oilprice-ni/internal/db"
	"github.com/noah-isme/oilprice-ni/internal/obs"
)

const connectTimeout = 5 * time.Second

// OpenPostgres connects a traced pgx pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// MigrateIfEnabled applies embedded migrations when DB_AUTO_MIGRATE is set.
func MigrateIfEnabled(cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.DBAutoMigrate {
		return nil
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Msg("database migrations applied")
	return nil
}

// OpenRedis returns an instrumented go-redis client that answered a ping.
func OpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AsynqRedis converts REDIS_URL into asynq connection options.
func AsynqRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri for asynq: %w", err)
	}
	return opt, nil
}

// InitTracing starts the configured span exporter. The returned func flushes it.
func InitTracing(ctx context.Context, cfg *config.Config, service string) (func(context.Context) error, error) {
	return obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   service,
		Endpoint:      cfg.TraceEndpoint,
		Exporter:      cfg.TraceExporter,
		SamplingRatio: cfg.TraceSampling,
		Environment:   cfg.AppEnv,
	})
}
