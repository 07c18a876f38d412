package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/config"
	"github.com/mmcdole/reel/internal/jobs"
	"github.com/mmcdole/reel/internal/log"
	"github.com/mmcdole/reel/internal/registry"
	"github.com/mmcdole/reel/internal/store"
)

// App holds everything a command needs, wired from config
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  *registry.Client
	Cache   *store.CacheStore
	State   *jobs.State
	Poller  *jobs.Poller
	Syncer  *jobs.Synchronizer
	Catalog *catalog.Service
	Queries *catalog.Queries

	logCloser io.Closer
}

// loadConfig reads config from the --config and --env-file flags
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.String("config"), cmd.String("env-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp loads config and wires the registry client, cache, job state and
// services. consoleLog sends logs to stderr instead of the log file.
func newApp(cmd *cli.Command, consoleLog bool) (*App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}

	if consoleLog {
		app.Logger = log.ConsoleLogger(os.Stderr, cfg.Logging.Level)
	} else {
		logger, closer, err := log.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = log.NullLogger()
		}
		app.Logger = logger
		app.logCloser = closer
	}
	slog.SetDefault(app.Logger)

	app.Client = registry.NewClient(cfg.Server.URL, cfg.Server.APIKey,
		registry.WithTimeout(cfg.Server.Timeout),
		registry.WithRateLimit(cfg.Server.RateLimit),
		registry.WithLogger(app.Logger),
	)

	cache, err := store.NewCacheStore(cfg.Cache.Dir, cfg.Server.URL)
	if err != nil {
		app.Logger.Warn("cache unavailable, using memory only", "error", err)
		cache, err = store.NewCacheStore("", cfg.Server.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
	}
	app.Cache = cache

	app.State = jobs.NewState(jobs.WithSink(cache), jobs.WithStateLogger(app.Logger))
	if snapshot, ok := cache.GetJobs(); ok {
		app.State.Restore(snapshot)
	}

	app.Poller = jobs.NewPoller(app.Client, app.State, jobs.PollConfig{
		Interval:      cfg.Poll.Interval,
		RetryDelay:    cfg.Poll.RetryDelay,
		MaxRetryDelay: cfg.Poll.MaxRetryDelay,
		StallAfter:    cfg.Poll.StallAfter,
	}, app.Logger)
	app.Syncer = jobs.NewSynchronizer(app.Client, app.State, app.Poller, app.Logger)
	app.Catalog = catalog.NewService(app.Client, cache, app.Logger)
	app.Queries = catalog.NewQueries(cache)

	return app, nil
}

// Close stops polling and releases the cache and log file
func (a *App) Close() {
	a.Poller.Close()
	a.State.Close()
	if err := a.Cache.Close(); err != nil {
		a.Logger.Error("failed to close cache", "error", err)
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// withApp adapts an action that needs a wired App
func withApp(consoleLog bool, fn func(ctx context.Context, cmd *cli.Command, app *App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := newApp(cmd, consoleLog)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}
