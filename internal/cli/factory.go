package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/config"
	"github.com/aretw0/wayfinder/pkg/adapters/file"
	"github.com/aretw0/wayfinder/pkg/adapters/keyword"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/adapters/openai"
	"github.com/aretw0/wayfinder/pkg/adapters/redis"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/persistence/middleware"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/aretw0/wayfinder/pkg/session"
)

// BuildClassifier creates the intent classifier selected by cfg.
func BuildClassifier(cfg config.ClassifierConfig, logger *slog.Logger) (ports.IntentClassifier, error) {
	switch cfg.Backend {
	case config.ClassifierKeyword, "":
		var opts []keyword.Option
		if cfg.Threshold > 0 {
			opts = append(opts, keyword.WithThreshold(cfg.Threshold))
		}
		return keyword.New(opts...), nil
	case config.ClassifierOpenAI:
		opts := []openai.Option{openai.WithLogger(logger)}
		if cfg.OpenAI.Model != "" {
			opts = append(opts, openai.WithModel(cfg.OpenAI.Model))
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		if cfg.OpenAI.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*cfg.OpenAI.Temperature))
		}
		if cfg.OpenAI.RPS > 0 {
			opts = append(opts, openai.WithRateLimit(cfg.OpenAI.RPS, cfg.OpenAI.Burst))
		}
		c, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("error initializing openai classifier: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

// BuildEngine loads the graph named by cfg and wires the classifier,
// fallback resource and hooks.
func BuildEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*wayfinder.Engine, error) {
	classifier, err := BuildClassifier(cfg.Classifier, logger)
	if err != nil {
		return nil, err
	}

	opts := []wayfinder.Option{
		wayfinder.WithLogger(logger),
		wayfinder.WithClassifier(classifier),
		wayfinder.WithLifecycleHooks(hooks),
	}
	if cfg.Fallback.ResourceName != "" {
		id := cfg.Fallback.ResourceID
		if id == "" {
			id = cfg.Fallback.ResourceName
		}
		opts = append(opts, wayfinder.WithFallbackResource(domain.Resource{ID: id, Name: cfg.Fallback.ResourceName}))
	}

	engine, err := wayfinder.New(ctx, file.NewLoader(cfg.Graph), opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// BuildSessionManager opens the session store selected by cfg. The returned
// close function releases backend connections.
func BuildSessionManager(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*session.Manager, func() error, error) {
	noop := func() error { return nil }
	opts := []session.Option{session.WithLogger(logger)}
	if cfg.LockTTL > 0 {
		opts = append(opts, session.WithLockTTL(cfg.LockTTL))
	}

	var mws []middleware.Middleware
	if cfg.Encryption.Enabled() {
		active, fallback, err := cfg.Encryption.Keys()
		if err != nil {
			return nil, noop, err
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, noop, fmt.Errorf("invalid encryption config: %w", err)
		}
		mws = append(mws, mw)
	}

	switch cfg.Backend {
	case config.StoreMemory, "":
		return session.NewManager(middleware.Chain(memory.NewStore(), mws...), opts...), noop, nil
	case config.StoreFile:
		return session.NewManager(middleware.Chain(file.NewStore(cfg.Dir), mws...), opts...), noop, nil
	case config.StoreRedis:
		var storeOpts []redis.Option
		if cfg.Redis.Prefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, storeOpts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, noop, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		opts = append(opts, session.WithLocker(redis.NewLocker(store.Client(), prefix)))
		return session.NewManager(middleware.Chain(store, mws...), opts...), store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
