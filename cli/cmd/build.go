package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	lodeds "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/typings/adapter"
	"github.com/pithecene-io/typings/adapter/redis"
	"github.com/pithecene-io/typings/adapter/webhook"
	"github.com/pithecene-io/typings/cache"
	"github.com/pithecene-io/typings/cli/config"
	"github.com/pithecene-io/typings/fetch"
	"github.com/pithecene-io/typings/iox"
	"github.com/pithecene-io/typings/lode"
	"github.com/pithecene-io/typings/log"
	"github.com/pithecene-io/typings/metrics"
	"github.com/pithecene-io/typings/resolver"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitConfigError = 1
	exitSinkFailure = 2
)

// env is the wired component graph of one command invocation.
type env struct {
	cfg      *config.Config
	logger   *log.Logger
	metrics  *metrics.Collector
	resolver *resolver.Resolver
	store    cache.Store
	archive  lode.Client // nil when archiving is off
	adapter  adapter.Adapter
	closers  []io.Closer
}

// Close releases every component in reverse construction order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		iox.DiscardClose(e.closers[i])
	}
}

func (e *env) track(v any) {
	if c, ok := v.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
}

// buildEnv wires the resolver from flags and config. Archive and adapter
// are wired only when withSinks is set.
func buildEnv(ctx context.Context, c *cli.Context, withSinks bool) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	level, err := zapcore.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid --log-level: %v", err), exitConfigError)
	}

	e := &env{cfg: cfg, logger: log.NewLoggerWithLevel("typings", level)}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	fetchType := resolveString(c, "fetch", cfg.Fetch.Type)
	fetcher, err := buildFetcher(c, cfg, fetchType)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	e.track(fetcher)

	cacheBackend := resolveString(c, "cache", cfg.Cache.Backend)
	e.store, err = buildStore(c, cfg, cacheBackend, e.logger)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	e.track(e.store)

	archiveBackend := ""
	if withSinks {
		archiveBackend = resolveString(c, "archive", cfg.Archive.Backend)
	}
	e.metrics = metrics.NewCollector(fetchType, cacheBackend, archiveBackend)

	cacheEnabled := !c.Bool("no-cache")
	if !c.IsSet("no-cache") && cfg.Resolver.CacheEnabled != nil {
		cacheEnabled = *cfg.Resolver.CacheEnabled
	}
	e.resolver, err = resolver.New(resolver.Options{
		CacheEnabled: resolver.Bool(cacheEnabled),
		BaseURL:      resolveString(c, "base-url", cfg.Resolver.BaseURL),
		PathPrefix:   resolveString(c, "path-prefix", cfg.Resolver.PathPrefix),
		Dedupe:       resolveBool(c, "dedupe", cfg.Resolver.Dedupe),
		Fetcher:      fetcher,
		Store:        e.store,
		Logger:       e.logger,
		Metrics:      e.metrics,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}

	if withSinks {
		if archiveBackend != "" {
			client, err := buildArchive(ctx, c, cfg, archiveBackend)
			if err != nil {
				return nil, cli.Exit(fmt.Sprintf("archive: %v", err), exitConfigError)
			}
			e.archive = lode.NewInstrumentedClient(client, e.metrics)
			e.track(e.archive)
		}
		if a, err := buildAdapter(c, cfg); err != nil {
			return nil, cli.Exit(fmt.Sprintf("adapter: %v", err), exitConfigError)
		} else if a != nil {
			e.adapter = a
			e.track(a)
		}
	}

	ok = true
	return e, nil
}

func buildFetcher(c *cli.Context, cfg *config.Config, fetchType string) (fetch.Fetcher, error) {
	switch fetchType {
	case "http", "":
		return fetch.NewHTTP(fetch.HTTPConfig{
			Origin:   resolveString(c, "origin", cfg.Fetch.Origin),
			Headers:  cfg.Fetch.Headers,
			Timeout:  resolveDuration(c, "fetch-timeout", cfg.Fetch.Timeout.Duration),
			Retries:  resolveInt(c, "fetch-retries", cfg.Fetch.Retries),
			MaxBytes: cfg.Fetch.MaxBytes,
		})
	case "afs":
		root := resolveString(c, "root", cfg.Fetch.Root)
		if root == "" {
			return nil, errors.New("afs fetcher requires --root")
		}
		return fetch.NewAFS(nil, root), nil
	default:
		return nil, fmt.Errorf("invalid fetcher %q (must be http or afs)", fetchType)
	}
}

func buildStore(c *cli.Context, cfg *config.Config, backend string, logger *log.Logger) (cache.Store, error) {
	switch backend {
	case "memory", "":
		return cache.NewMemory(), nil
	case "lru":
		size := cfg.Cache.Size
		if c.IsSet("cache-size") {
			size = c.Int("cache-size")
		}
		if size == 0 {
			size = cache.DefaultSize
		}
		return cache.NewBounded(size)
	case "redis":
		return cache.NewRedis(cache.RedisConfig{
			URL:    resolveString(c, "cache-url", cfg.Cache.URL),
			Prefix: resolveString(c, "cache-prefix", cfg.Cache.Prefix),
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("invalid cache backend %q (must be memory, lru or redis)", backend)
	}
}

func buildArchive(ctx context.Context, c *cli.Context, cfg *config.Config, backend string) (lode.Client, error) {
	lcfg := lode.Config{Dataset: resolveString(c, "archive-dataset", cfg.Archive.Dataset)}
	path := resolveString(c, "archive-path", cfg.Archive.Path)
	if path == "" {
		return nil, errors.New("--archive-path is required")
	}

	switch backend {
	case "fs":
		return lode.NewLodeClient(lcfg, path)
	case "s3":
		s3cfg := archiveS3Config(c, cfg, path)
		return lode.NewLodeS3Client(ctx, lcfg, s3cfg)
	default:
		return nil, fmt.Errorf("invalid archive backend %q (must be fs or s3)", backend)
	}
}

// openArchiveDataset opens the archive for reading. The backend defaults
// to fs when only a path is given.
func openArchiveDataset(ctx context.Context, c *cli.Context, cfg *config.Config) (lodeds.Dataset, error) {
	dataset := resolveString(c, "archive-dataset", cfg.Archive.Dataset)
	if dataset == "" {
		dataset = lode.DefaultDataset
	}
	path := resolveString(c, "archive-path", cfg.Archive.Path)
	if path == "" {
		return nil, errors.New("--archive-path is required")
	}

	switch backend := resolveString(c, "archive", cfg.Archive.Backend); backend {
	case "fs", "":
		return lode.NewReadDatasetFS(dataset, path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, dataset, archiveS3Config(c, cfg, path))
	default:
		return nil, fmt.Errorf("invalid archive backend %q (must be fs or s3)", backend)
	}
}

func archiveS3Config(c *cli.Context, cfg *config.Config, path string) lode.S3Config {
	bucket, prefix := lode.ParseS3Path(path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       resolveString(c, "archive-region", cfg.Archive.Region),
		Endpoint:     resolveString(c, "archive-endpoint", cfg.Archive.Endpoint),
		UsePathStyle: resolveBool(c, "archive-s3-path-style", cfg.Archive.S3PathStyle),
	}
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(c *cli.Context, cfg *config.Config) (adapter.Adapter, error) {
	kind := strings.ToLower(resolveString(c, "adapter", cfg.Adapter.Type))
	if kind == "" {
		return nil, nil
	}
	url := resolveString(c, "adapter-url", cfg.Adapter.URL)

	switch kind {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: resolveInt(c, "adapter-retries", retriesOr(cfg.Adapter.Retries, webhook.DefaultRetries)),
		})
	case "redis":
		return redis.New(redis.Config{
			URL:      url,
			Channel:  resolveString(c, "adapter-channel", cfg.Adapter.Channel),
			Encoding: cfg.Adapter.Encoding,
			Timeout:  cfg.Adapter.Timeout.Duration,
			Retries:  resolveInt(c, "adapter-retries", retriesOr(cfg.Adapter.Retries, redis.DefaultRetries)),
		})
	default:
		return nil, fmt.Errorf("invalid adapter %q (must be webhook or redis)", kind)
	}
}

func retriesOr(v *int, def int) *int {
	if v != nil {
		return v
	}
	return &def
}
