package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prior-it/geodata/config"
	"github.com/prior-it/geodata/core"
	"github.com/prior-it/geodata/geodata"
	"github.com/prior-it/geodata/handlers"
	"github.com/prior-it/geodata/memory"
	"github.com/prior-it/geodata/metrics"
	"github.com/prior-it/geodata/postgres"
	"github.com/prior-it/geodata/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Server creates a fully wired API server: logging, Sentry (if enabled in config), the configured
// record store, the record service and every route.
//
// The returned server owns the store and releases it when it shuts down.
func Server(ctx context.Context, cfg *config.Config, out io.Writer) (*server.Server[*handlers.State], error) {
	if cfg == nil {
		panic("You need to supply a config.Config value to bootstrap a new server")
	}

	logger := CreateLogger(cfg, out)

	// Initialize Sentry
	if cfg.Sentry.Enabled {
		initSentry(logger, cfg)
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	validator := geodata.NewValidator(store.Repository(), logger, geodata.ValidatorOptions{
		StrictWarnings: cfg.Validation.Strict,
	})
	service := geodata.NewService(store, validator, logger, m)
	state := handlers.NewState(service, registry, closeStore)

	s := server.New(state, cfg).WithLogger(logger)
	s.AttachDefaultMiddleware()
	handlers.Register(s, state)

	return s, nil
}

// OpenStore connects to the store selected by DATABASE_PROVIDER. Pending migrations are applied
// first when DATABASE_MIGRATE is set. The returned function releases the store.
func OpenStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (core.Store, func(ctx context.Context), error) {
	switch cfg.Database.Provider {
	case config.DatabaseProviderMemory:
		logger.Info("Using the in-memory record store, records are lost on shutdown")
		return memory.NewStore(), func(context.Context) {}, nil

	case config.DatabaseProviderPostgres:
		db, err := postgres.NewDBWithOptions(ctx, cfg.Database.URL, postgres.Options{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.ConnMaxLifetime(),
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime(),
			Schema:          cfg.Database.Schema,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not initialize database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("could not migrate database: %w", err)
			}
		}
		return postgres.NewStore(db), func(context.Context) { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown database provider %q", cfg.Database.Provider)
}

// CreateLogger creates the application logger and installs it as the slog default.
// Plaintext logs are coloured when they are written to a terminal.
func CreateLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	var logger *slog.Logger
	addSource := cfg.Log.Verbose && cfg.App.Debug
	switch cfg.Log.Format {
	case config.LogFormatPlaintext:
		{
			logger = slog.New(tint.NewHandler(out, &tint.Options{
				Level:      cfg.Log.Level.ToSlog(),
				AddSource:  addSource,
				TimeFormat: time.TimeOnly,
				NoColor:    !isTerminal(out),
			}))
		}
	default:
		{
			logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
				Level:     cfg.Log.Level.ToSlog(),
				AddSource: addSource,
			}))
		}
	}
	logger = logger.With("app", cfg.App.Name)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func initSentry(logger *slog.Logger, cfg *config.Config) {
	logger.Debug("Trying to initialise Sentry")
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Debug:            cfg.App.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.Sentry.SampleRate,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.TracesRate,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			if ctx.Span.Name == "GET /ping" || ctx.Span.Name == "GET /metrics" {
				return 0.0
			}
			return cfg.Sentry.TracesRate
		}),
		ProfilesSampleRate: cfg.Sentry.ProfilesRate,
		ServerName:         cfg.App.Name,
		Release:            cfg.App.Version,
		Environment:        string(cfg.App.Env),
	}); err != nil {
		logger.Error("Sentry initialization failed", "error", err)
	} else {
		logger.Debug("Sentry initialised")
	}
}
