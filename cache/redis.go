package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/typings/log"
	"github.com/pithecene-io/typings/types"
)

// DefaultRedisTimeout bounds a single Redis round trip.
const DefaultRedisTimeout = 2 * time.Second

// RedisConfig configures the Redis store.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Prefix is prepended to KeyPrefix so several hosts can share one
	// database (default: none).
	Prefix string
	// Timeout bounds each command (default 2s).
	Timeout time.Duration
	// Logger receives backend errors (default: no-op).
	Logger *log.Logger
}

// Redis is a store shared across processes. Records are msgpack-encoded.
// Backend errors are logged and reported as misses.
type Redis struct {
	config RedisConfig
	client *goredis.Client
	logger *log.Logger
}

// NewRedis creates a Redis store from the given config.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis cache requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Redis{
		config: cfg,
		client: goredis.NewClient(opts),
		logger: logger,
	}, nil
}

func (r *Redis) key(id string) string { return r.config.Prefix + Key(id) }

// Get implements Store.
func (r *Redis) Get(ctx context.Context, id string) (types.Record, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.Record{}, false
	}
	if err != nil {
		r.logger.Warn("redis cache get failed", map[string]any{
			"package": id,
			"error":   err.Error(),
		})
		return types.Record{}, false
	}

	var rec types.Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		r.logger.Warn("redis cache record undecodable", map[string]any{
			"package": id,
			"error":   err.Error(),
		})
		return types.Record{}, false
	}
	return rec, true
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, id string, artifacts []types.Artifact, mainEntryPath string) {
	data, err := msgpack.Marshal(newRecord(artifacts, mainEntryPath))
	if err != nil {
		r.logger.Warn("redis cache encode failed", map[string]any{
			"package": id,
			"error":   err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.key(id), data, 0).Err(); err != nil {
		r.logger.Warn("redis cache set failed", map[string]any{
			"package": id,
			"error":   err.Error(),
		})
	}
}

// Clear implements Store. Only keys under this store's prefix are removed.
func (r *Redis) Clear(ctx context.Context) {
	if _, err := r.clear(ctx); err != nil {
		r.logger.Warn("redis cache clear failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// ClearCount removes every key under this store's prefix and returns how
// many were deleted.
func (r *Redis) ClearCount(ctx context.Context) (int, error) {
	return r.clear(ctx)
}

func (r *Redis) clear(ctx context.Context) (int, error) {
	pattern := r.config.Prefix + KeyPrefix + "*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("redis cache: delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis cache: scan: %w", err)
	}
	return deleted, nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Verify Redis implements Store.
var _ Store = (*Redis)(nil)
