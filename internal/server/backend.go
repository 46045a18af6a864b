package server

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/raakeshmj/coreenginedb/internal/blob"
	"github.com/raakeshmj/coreenginedb/internal/blob/fs"
	"github.com/raakeshmj/coreenginedb/internal/blob/memory"
	"github.com/raakeshmj/coreenginedb/internal/blob/postgres"
	"github.com/raakeshmj/coreenginedb/internal/blob/redis"
	"github.com/raakeshmj/coreenginedb/internal/blob/s3"
	"github.com/raakeshmj/coreenginedb/internal/config"
)

// redisNamespace prefixes every key the redis backend writes.
const redisNamespace = "coreenginedb"

// OpenBlobStore connects the configured backend. The returned close
// function releases its connections and is never nil.
func OpenBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.BlobBackend {
	case config.BackendMemory:
		return memory.New(), noop, nil

	case config.BackendFS:
		store, err := fs.New(cfg.BlobDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open fs backend: %w", err)
		}
		return store, noop, nil

	case config.BackendS3:
		store, err := s3.New(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, noop, fmt.Errorf("open s3 backend: %w", err)
		}
		return store, noop, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		store := redis.New(client, redisNamespace)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("open redis backend: %w", err)
		}
		return store, client.Close, nil

	case config.BackendPostgres:
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres backend: %w", err)
		}
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}
