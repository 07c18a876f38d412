package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "reel",
		Usage:   "browse a video catalog and track its download jobs",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file (default ~/.config/reel/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "environment file with REEL_* overrides",
				Value: ".env",
			},
		},
		Action: runInteractive,
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "list the catalog and report the latest job of each video",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "filter",
						Usage: "shorts, long or all (default from config)",
					},
					&cli.StringFlag{
						Name:  "query",
						Usage: "server-side text filter",
					},
					&cli.Int64Flag{
						Name:  "min-views",
						Usage: "only videos with at least this many views",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "keep polling until every job is finished",
					},
				},
				Action: withApp(true, syncAction),
			},
			{
				Name:      "download",
				Usage:     "start (or re-check) downloads and wait for them",
				ArgsUsage: "<video_id>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fetch",
						Usage: "save finished files into downloads.dir",
					},
				},
				Action: withApp(true, downloadAction),
			},
			{
				Name:      "fetch",
				Usage:     "save the file of a finished job",
				ArgsUsage: "<job_id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "directory to write into (default downloads.dir)",
					},
				},
				Action: withApp(true, fetchAction),
			},
			{
				Name:      "add",
				Usage:     "add one video to the catalog by URL",
				ArgsUsage: "<url>",
				Action:    withApp(true, addAction),
			},
			{
				Name:      "scan",
				Usage:     "ingest a channel's recent uploads",
				ArgsUsage: "<channel>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "shorts", Usage: "include shorts", Value: true},
					&cli.BoolFlag{Name: "videos", Usage: "include regular videos", Value: true},
					&cli.BoolFlag{Name: "streams", Usage: "include past live streams"},
					&cli.IntFlag{
						Name:  "max-items",
						Usage: fmt.Sprintf("uploads to inspect per tab (1-%d)", catalog.MaxMaxItems),
						Value: catalog.DefaultMaxItems,
					},
				},
				Action: withApp(true, scanAction),
			},
			{
				Name:      "search",
				Usage:     "fuzzy-search cached videos by title and uploader",
				ArgsUsage: "<query>",
				Action:    withApp(true, searchAction),
			},
			{
				Name:   "health",
				Usage:  "check that the server is reachable",
				Action: withApp(true, healthAction),
			},
			{
				Name:   "setup",
				Usage:  "write server URL and API key to the config file",
				Action: setupAction,
			},
			{
				Name:   "clear-cache",
				Usage:  "remove cached catalog pages and job snapshots",
				Action: clearCacheAction,
			},
		},
	}
}

// runInteractive starts the TUI, or a one-shot sync when stdout is not a
// terminal
func runInteractive(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return withApp(true, syncAction)(ctx, cmd)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.IsConfigured() {
		return runSetupFlow(ctx, cfg)
	}

	return withApp(false, runTUI)(ctx, cmd)
}

func runTUI(ctx context.Context, cmd *cli.Command, app *App) error {
	app.Logger.Info("starting reel", "version", Version, "server", app.Config.Server.URL)

	observer := tui.NewChannelObserver()
	unsubscribe := observer.Attach(app.State)
	defer unsubscribe()

	// Restored active jobs keep moving before the first sync lands
	if n := app.Syncer.Resume(); n > 0 {
		app.Logger.Info("resumed polling", "count", n)
	}

	model := tui.NewModel(app.Syncer, app.Catalog, app.Queries, observer.Updates(), tui.Options{
		ShortFilter: app.Config.UI.ShortFilter,
		DownloadDir: app.Config.Downloads.Dir,
		Jobs:        app.State.Snapshot(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	app.Logger.Info("starting TUI")
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		app.Logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	app.Logger.Info("shutting down")
	return nil
}
