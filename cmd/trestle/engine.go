package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/config"
	"github.com/trestlehq/trestle/internal/logging"
	"github.com/trestlehq/trestle/internal/metadata"
)

// newEngine builds a metadata engine from the project configuration. The
// returned logger is shared with the engine so commands can log consistently.
func newEngine(cfg *config.Config) (*metadata.Engine, *zap.Logger, error) {
	logger := logging.MustNew(cfg.Logging)

	if _, err := os.Stat(cfg.Schema.Dir); err != nil {
		return nil, nil, fmt.Errorf("schema directory %q not found - are you in a Trestle project?", cfg.Schema.Dir)
	}

	source := metadata.NewFSSource(os.DirFS(cfg.Schema.Dir), logger)

	opts := []metadata.EngineOption{metadata.WithLogger(logger)}
	if store := newCacheStore(cfg); store != nil {
		opts = append(opts, metadata.WithCacheStore(store))
	}

	return metadata.NewEngine(source, opts...), logger, nil
}

// newCacheStore builds the snapshot cache backend, nil when caching is off.
func newCacheStore(cfg *config.Config) metadata.CacheStore {
	switch cfg.Cache.Backend {
	case "file":
		return metadata.NewFileStore(cfg.Cache.File)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		var opts []metadata.RedisOption
		if cfg.Cache.Redis.Key != "" {
			opts = append(opts, metadata.WithRedisKey(cfg.Cache.Redis.Key))
		}
		if ttl := cfg.Cache.Redis.TTL(); ttl > 0 {
			opts = append(opts, metadata.WithRedisTTL(ttl))
		}
		return metadata.NewRedisStore(client, opts...)
	default:
		return nil
	}
}
