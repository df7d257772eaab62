// Command seeder upserts suppliers from a YAML file and clears cached quotes.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/oilprice-ni/internal/app"
	"github.com/noah-isme/oilprice-ni/internal/config"
	"github.com/noah-isme/oilprice-ni/internal/lock"
	"github.com/noah-isme/oilprice-ni/internal/obs"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

func main() {
	file := flag.String("file", "seed/suppliers.yaml", "path to the supplier seed file")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	// The seed file is checked before any connection settings are read so a
	// dry run works without DATABASE_URL or REDIS_URL.
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), os.Getenv("OBS_LOG_LEVEL")).With().Str("component", "seeder").Logger()
	rows, err := loadRows(*file)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("invalid seed file")
	}
	logger.Info().Int("suppliers", len(rows)).Str("file", *file).Msg("seed file loaded")
	if *dryRun {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.MigrateIfEnabled(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	pool, err := app.OpenPostgres(ctx, cfg, "oilprice-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	redisClient, err := app.OpenRedis(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer func() { _ = redisClient.Close() }()

	store := supplier.NewPGStore(pool)
	cache := quote.NewCache(redisClient, cfg.QuoteCacheTTL)
	locker := lock.Locker{R: redisClient}

	lockCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	err = locker.WithLock(lockCtx, "lock:supplier:seed", 5*time.Minute, func(ctx context.Context) error {
		for _, s := range rows {
			saved, err := store.Upsert(ctx, s)
			if err != nil {
				return err
			}
			logger.Info().Str("slug", saved.Slug).Str("id", saved.ID.String()).Strs("areas", saved.Areas).Msg("supplier upserted")
		}
		removed, err := cache.Invalidate(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("keys", removed).Msg("quote cache invalidated")
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed suppliers")
	}
	logger.Info().Msg("seeding completed")
}

func loadRows(path string) ([]supplier.Supplier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return supplier.LoadSeed(f)
}
