// Package bootstrap orders the startup sequence of the API access layer:
// configuration, logging, metrics, credential restore, transport, seed
// snapshot, discovery and aggregation. Non-critical steps degrade on
// failure; only configuration is strictly required, and even then the
// application falls back to an offline-capable mode instead of crashing.
package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"voyago-client/internal/aggregate"
	"voyago-client/internal/config"
	"voyago-client/internal/discovery"
	"voyago-client/internal/observability"
	"voyago-client/internal/seed"
	"voyago-client/internal/session"
	"voyago-client/internal/transport"
)

// Options customizes the bootstrap sequence. All fields are optional.
type Options struct {
	// Config skips environment resolution when pre-resolved (tests).
	Config *config.Config
	// CredentialStore overrides the default in-memory store.
	CredentialStore session.Store
	// Observer is notified once per session recovery.
	Observer session.Observer
	// SeedData overrides the embedded snapshot.
	SeedData []byte
	// TransportOptions are appended to the transport client construction.
	TransportOptions []transport.Option
}

// App is the assembled API access layer, injected into the UI layer.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Credentials session.Store
	Recovery    *session.Recovery
	Transport   *transport.Client
	Seed        seed.Provider
	Discovery   *discovery.Service
	Aggregator  *aggregate.Aggregator

	// Offline is set when configuration resolution failed and the app runs
	// against the seed dataset only.
	Offline bool
}

// Run executes the bootstrap sequence and returns the assembled app. It
// returns an error only when even the offline fallback cannot be built.
func Run(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return offlineApp(opts, err)
		}
		cfg = loaded
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("bootstrap started",
		zap.String("environment", cfg.EnvironmentName),
		zap.String("base_url", cfg.BaseURL))

	var metrics *observability.Collector
	if cfg.EnableMetrics {
		metrics = observability.NewCollector("voyago")
	}

	credStore := opts.CredentialStore
	if credStore == nil {
		credStore = session.NewMemoryStore()
	}
	if cred, readErr := credStore.Read(ctx); readErr != nil {
		// Degraded mode: the client keeps working, unauthenticated.
		logger.Warn("credential restore failed, continuing anonymous", zap.Error(readErr))
	} else if cred != nil {
		logger.Info("credential restored")
	}

	recovery := session.NewRecovery(credStore, recoveryObserver(opts.Observer, metrics), logger)

	transportOpts := append([]transport.Option{
		transport.WithCredentialStore(credStore),
		transport.WithRecovery(recovery),
		transport.WithMetrics(metrics),
	}, opts.TransportOptions...)
	client := transport.New(cfg, logger, transportOpts...)

	snapshot := loadSnapshot(opts.SeedData, logger)

	disc := discovery.NewService(client, snapshot, logger, metrics)
	agg := aggregate.New(disc, logger)

	logger.Info("bootstrap completed")
	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Credentials: credStore,
		Recovery:    recovery,
		Transport:   client,
		Seed:        snapshot,
		Discovery:   disc,
		Aggregator:  agg,
	}, nil
}

// offlineApp builds the seed-only fallback used when configuration
// resolution fails. The discovery service has no transport, so every query
// is served from the snapshot.
func offlineApp(opts Options, cause error) (*App, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	logger.Warn("configuration unavailable, starting in offline mode", zap.Error(cause))

	snapshot := loadSnapshot(opts.SeedData, logger)
	disc := discovery.NewService(nil, snapshot, logger, nil)

	return &App{
		Logger:     logger,
		Seed:       snapshot,
		Discovery:  disc,
		Aggregator: aggregate.New(disc, logger),
		Offline:    true,
	}, nil
}

// Close flushes buffered log output.
func (a *App) Close() {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// loadSnapshot parses the override snapshot when given, falling back to the
// embedded one. A broken override degrades to the bundle, not to a failure.
func loadSnapshot(data []byte, logger *zap.Logger) seed.Provider {
	if len(data) == 0 {
		return seed.Embedded()
	}
	snapshot, err := seed.Parse(data)
	if err != nil {
		logger.Warn("seed snapshot unreadable, using embedded dataset", zap.Error(err))
		return seed.Embedded()
	}
	return snapshot
}

// recoveryObserver chains the caller's observer with metrics accounting.
// Recovery notifies exactly once per recovery, so the counter stays honest
// no matter how many requests failed concurrently.
func recoveryObserver(obs session.Observer, metrics *observability.Collector) session.Observer {
	return session.ObserverFunc(func() {
		metrics.ObserveRecovery()
		if obs != nil {
			obs.SessionExpired()
		}
	})
}
