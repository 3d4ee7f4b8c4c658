package commands

import (
	"context"
	"fmt"

	"fibre-tracker/internal/cache"
	"fibre-tracker/internal/nbn"
	"fibre-tracker/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// openRepository connects to the address database and finds its GNAF schema.
func openRepository(ctx context.Context) (*repository.Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("cannot reach db: %w", err)
	}

	schema, err := repository.DetectSchema(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().Str("schema", schema).Msg("using address schema")

	repo := repository.NewRepository(pool, schema)
	if cfg.CreateIndex {
		if err := repo.CreateIndex(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return repo, pool.Close, nil
}

func openStatusCache(ctx context.Context) (*cache.StatusCache, error) {
	store, err := cache.Open(ctx, cfg.CacheDriver, cfg.CachePath, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	return cache.NewStatusCache(store,
		cache.WithStatusTTL(cfg.StatusTTL),
		cache.WithWarmStartMaxAge(cfg.WarmStartMaxAge),
	), nil
}

func nbnOptions() nbn.Options {
	return nbn.Options{
		BaseURL: cfg.NBNBaseURL,
		Timeout: cfg.NBNTimeout,
		Retries: cfg.NBNRetries,
		Limiter: nbn.NewLimiter(cfg.NBNRateLimit),
	}
}
