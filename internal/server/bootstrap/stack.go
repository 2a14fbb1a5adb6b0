package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/core/service"
	"github.com/Pluto-lin/magma/internal/server/config"
	"github.com/Pluto-lin/magma/internal/storage"
	"github.com/Pluto-lin/magma/internal/storage/maildir"
	"github.com/Pluto-lin/magma/internal/storage/memory"
	"github.com/Pluto-lin/magma/internal/storage/sqlstore"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/internal/telemetry/metric"
	"github.com/Pluto-lin/magma/internal/telemetry/tracer"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// CredentialBackend is a credential store that magma-auth can also list
// and load verification records into.
type CredentialBackend interface {
	service.CredentialStore
	List(ctx context.Context) ([]string, error)
	PutCredential(ctx context.Context, rec *domain.StoredCredential) error
	DeleteCredential(ctx context.Context, username string) error
}

// Stack is a fully wired authentication stack.
type Stack struct {
	Authenticator *service.Authenticator
	Builder       *service.CredentialBuilder
	Credentials   CredentialBackend
	Limiter       *service.RateLimiterRegistry
	Metrics       *metric.Registry
	Tracer        *tracer.Provider

	// Maildir is nil when no maildir root is configured.
	Maildir *maildir.Loader

	ready   []func(context.Context) error
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

type options struct {
	metrics *metric.Registry
	version string
}

// Option configures Build.
type Option func(*options)

// WithMetrics records attempts, loads and evictions into reg and registers
// the backend and cache gauges with it.
func WithMetrics(reg *metric.Registry) Option {
	return func(o *options) { o.metrics = reg }
}

// WithVersion sets the service.version reported by traces.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Build wires the stack described by cfg. On error everything opened so
// far is closed again.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (s *Stack, err error) {
	if log == nil {
		log = logger.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s = &Stack{Metrics: o.metrics}
	defer func() {
		if err != nil {
			_ = s.Close(context.WithoutCancel(ctx))
			s = nil
		}
	}()

	s.Tracer, err = tracer.New(ctx, cfg.Tracing, log, tracer.WithVersion(o.version))
	if err != nil {
		return s, fmt.Errorf("init tracer: %w", err)
	}
	s.onClose("tracer", s.Tracer.Shutdown)

	pepper, err := cfg.Auth.LoadPepper()
	if err != nil {
		return s, err
	}
	hasher, err := verifier.New(pepper, cfg.Auth.Argon2)
	verifier.Wipe(pepper)
	if err != nil {
		return s, fmt.Errorf("init hasher: %w", err)
	}

	loaders := service.NewCompositeLoader()
	if err := s.openBackend(ctx, cfg, log, loaders); err != nil {
		return s, fmt.Errorf("init storage: %w", err)
	}
	if cfg.Maildir.Root != "" {
		s.Maildir = maildir.NewLoader(cfg.Maildir.Root, log)
		loaders.Register(domain.ScopeMessages|domain.ScopeFolders, s.Maildir)
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithTracer(s.Tracer.Tracer("github.com/Pluto-lin/magma/internal/core/service")),
	}
	if o.metrics != nil {
		svcOpts = append(svcOpts, service.WithMetrics(o.metrics))
	}

	s.Builder = service.NewCredentialBuilder(s.Credentials, hasher, cfg.BuilderConfig())
	cache := service.NewCache(loaders, cfg.CacheConfig(), svcOpts...)
	gate := service.NewGate(s.Credentials, cache, svcOpts...)
	s.Limiter = service.NewRateLimiterRegistry(cfg.RateLimitConfig())
	s.Authenticator = service.NewAuthenticator(s.Builder, gate, cache, s.Limiter, svcOpts...)
	s.onClose("cache", s.Authenticator.Close)

	if o.metrics != nil {
		c := metric.NewCollector().
			Add("cache", "entries", "Users currently cached.", metric.SizerFunc(s.Authenticator.CacheLen)).
			Add("ratelimit", "tracked_users", "Users with a failure limiter.", s.Limiter)
		if s.Maildir != nil {
			c.Add("maildir", "active_users", "Users with an open maildir.", metric.SizerFunc(s.Maildir.Active))
		}
		if err := o.metrics.Registerer().Register(c); err != nil {
			return s, fmt.Errorf("register collector: %w", err)
		}
	}

	log.Info("authentication stack ready",
		"backend", cfg.Storage.Backend,
		"maildir", cfg.Maildir.Root != "",
		"cache_shards", cfg.Cache.Shards,
		"tracing", s.Tracer.Enabled())
	return s, nil
}

func (s *Stack) openBackend(ctx context.Context, cfg *config.Config, log logger.Logger, loaders *service.CompositeLoader) error {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		kv, err := storage.NewBadgerEngine(cfg.Storage.KV, log)
		if err != nil {
			return err
		}
		s.onClose("badger", func(context.Context) error { return kv.Close() })
		if s.Metrics != nil {
			if err := kv.RegisterMetrics(s.Metrics.Registerer()); err != nil {
				return err
			}
		}
		s.Credentials = storage.NewKVCredentialStore(kv)

	case config.BackendSQL:
		store, err := sqlstore.Open(ctx, cfg.Storage.SQL.Driver, cfg.Storage.SQL.DSN)
		if err != nil {
			return err
		}
		s.onClose("sql", func(context.Context) error { return store.Close() })
		s.ready = append(s.ready, store.DB().PingContext)
		s.Credentials = store
		loaders.Register(domain.ScopeContacts, sqlstore.NewContactLoader(store))

	case config.BackendMemory:
		log.Warn("memory credential backend holds no users until seeded")
		s.Credentials = memory.NewCredentialStore()

	default:
		return domain.ErrInvalidArgument.WithDetailsf("storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

func (s *Stack) onClose(name string, fn func(context.Context) error) {
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// Ready reports whether the backends are reachable.
func (s *Stack) Ready(ctx context.Context) error {
	for _, check := range s.ready {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the stack in reverse order of construction.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
