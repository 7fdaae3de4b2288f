// Package app wires the client-side stores, the auth session and their collaborators
// into one explicitly constructed application context.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/viewhistory"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/security"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

// App is the application context handed to every consumer.
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Registry      *prometheus.Registry
	Backend       storage.Backend
	Cart          *cart.Store
	History       *viewhistory.Store
	Session       *auth.Session
	API           *apiclient.Client
	Checkout      checkout.Service
	Notifications *notifications.Poller

	closers []io.Closer
}

// Options override pieces of the wiring, mostly for tests.
type Options struct {
	Backend storage.Backend
	Clock   func() time.Time
}

// New builds every component, loads both stores and restores the session.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts ...Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	a := &App{Config: cfg, Logger: logg, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backend := opt.Backend
	if backend == nil {
		var err error
		backend, err = a.openBackend(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	if cfg.Storage.Secret != "" {
		sealer, err := security.NewSealer(cfg.Storage.Secret, cfg.Storage.Salt, security.DefaultKeyParams)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("storage sealer: %w", err)
		}
		backend = security.NewSealedBackend(backend, sealer)
	}
	a.Backend = backend

	if err := a.build(cfg, logg, opt); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Cart.Load(ctx)
	a.History.Load(ctx)
	a.Session.Restore(ctx)

	logg.Info(logg.WithFields(ctx, map[string]any{
		"storage_backend": cfg.Storage.Backend,
		"session":         string(a.Session.State()),
		"cart_count":      a.Cart.Count(),
		"history_count":   a.History.Len(),
	}), "application context ready")
	return a, nil
}

func (a *App) build(cfg *config.Config, logg *logger.Logger, opt Options) error {
	var err error
	a.Cart, err = cart.NewStore(cart.Params{Backend: a.Backend, Logger: logg})
	if err != nil {
		return err
	}
	a.History, err = viewhistory.NewStore(viewhistory.Params{
		Backend:     a.Backend,
		Logger:      logg,
		MaxEntries:  cfg.History.MaxEntries,
		RecentLimit: cfg.History.RecentLimit,
		Clock:       opt.Clock,
	})
	if err != nil {
		return err
	}

	// The client reads the token from the session, which is built after it.
	var session *auth.Session
	a.API, err = apiclient.New(apiclient.Params{
		Config:  cfg.API,
		Tokens:  apiclient.TokenSourceFunc(func() string { return session.AccessToken() }),
		Logger:  logg,
		Metrics: metrics.NewClientMetrics(a.Registry),
	})
	if err != nil {
		return err
	}
	session, err = auth.NewSession(auth.SessionParams{
		API:     a.API,
		Backend: a.Backend,
		Logger:  logg,
		Clock:   opt.Clock,
	})
	if err != nil {
		return err
	}
	a.Session = session

	a.Checkout, err = checkout.NewService(checkout.ServiceParams{
		Cart:    a.Cart,
		Session: a.Session,
		Orders:  a.API,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	a.Notifications, err = notifications.NewPoller(notifications.PollerParams{
		Logger:   logg,
		Source:   a.API,
		Session:  a.Session,
		Metrics:  metrics.NewPollerMetrics(a.Registry),
		Interval: cfg.Notifications.PollInterval,
	})
	return err
}

func (a *App) openBackend(ctx context.Context) (storage.Backend, error) {
	cfg := a.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case config.StorageBackendMemory:
		return storage.NewMemory(cfg.Storage.QuotaBytes), nil
	case config.StorageBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.Storage.Namespace, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		a.closers = append(a.closers, client)
		return client, nil
	case config.StorageBackendSQL:
		client, err := db.New(ctx, cfg.DB, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		a.closers = append(a.closers, client)
		if err := migrate.MaybeRun(ctx, cfg, a.Logger, client); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return db.NewKVStore(client.DB()), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// StartBackground launches the notification poller.
func (a *App) StartBackground(ctx context.Context) {
	a.Notifications.Start(ctx)
}

// Close stops background work and releases storage connections.
func (a *App) Close() error {
	if a.Notifications != nil {
		a.Notifications.Stop()
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}
