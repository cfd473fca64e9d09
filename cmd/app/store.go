package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"twitch-giveaway-backend/internal/common/config"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
	"twitch-giveaway-backend/internal/features/giveaway/repository/memory"
	mongorepo "twitch-giveaway-backend/internal/features/giveaway/repository/mongo"
	pgrepo "twitch-giveaway-backend/internal/features/giveaway/repository/postgres"
	redisrepo "twitch-giveaway-backend/internal/features/giveaway/repository/redis"
	"twitch-giveaway-backend/internal/platform/mongo"
	"twitch-giveaway-backend/internal/platform/postgres"
	"twitch-giveaway-backend/internal/platform/redis"
)

// store is the opened backend plus whatever must be released on exit.
type store struct {
	repo  repository.Repository
	redis *redis.Client
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	ctx, cancel := context.WithTimeout(ctx, 4*cfg.Store.Timeout)
	defer cancel()

	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("Using in-memory store; data is lost on restart")
		return &store{repo: memory.New(), close: func() {}}, nil

	case config.BackendRedis:
		rdb, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:  redisrepo.NewRepository(rdb.Client),
			redis: rdb,
			close: func() { _ = rdb.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		if err := pgrepo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &store{repo: pgrepo.NewRepository(pool), close: pool.Close}, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo.URL)
		if err != nil {
			return nil, err
		}
		repo := mongorepo.NewRepository(client.Database(cfg.Mongo.Database))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return &store{
			repo:  repo,
			close: func() { _ = client.Disconnect(context.Background()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// streamClient reuses the store's Redis connection when there is one.
func (s *store) streamClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if s.redis != nil {
		return s.redis, func() {}, nil
	}
	rdb, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { _ = rdb.Close() }, nil
}
