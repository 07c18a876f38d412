package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jobs"
	"github.com/mmcdole/reel/internal/tui"
	"github.com/mmcdole/reel/internal/tui/styles"
)

func syncAction(ctx context.Context, cmd *cli.Command, app *App) error {
	out := cmd.Root().Writer

	mode := cmd.String("filter")
	if mode == "" {
		mode = app.Config.UI.ShortFilter
	}
	filter := domain.VideoFilter{
		Query:   cmd.String("query"),
		IsShort: catalog.ShortFilter(mode),
	}
	if n := cmd.Int64("min-views"); n > 0 {
		filter.MinViews = &n
	}

	videos, err := app.Catalog.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}

	result, err := app.Syncer.SyncAll(ctx, videos)
	if err != nil {
		return err
	}
	printJobTable(out, videos, app.State.Snapshot())
	fmt.Fprintf(out, "\n%d videos, %d with jobs, %d active\n", result.Requested, result.Resolved, result.Polling)

	if !cmd.Bool("wait") || result.Polling == 0 {
		return nil
	}

	// Videos without a job never settle
	var ids []string
	for id, job := range app.State.Snapshot().Jobs {
		if job.Status.IsActive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	stop := followProgress(out, app.State, ids)
	defer stop()

	final, err := app.State.WaitSettled(ctx, ids)
	if err != nil {
		return err
	}
	return summarize(out, ids, final)
}

func downloadAction(ctx context.Context, cmd *cli.Command, app *App) error {
	out := cmd.Root().Writer
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one video id is required", domain.ErrInvalidInput)
	}

	stop := followProgress(out, app.State, ids)
	defer stop()

	for _, id := range ids {
		prev, err := app.Client.GetLatestJob(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fmt.Fprintf(out, "%s: no previous job\n", id)
		case err != nil:
			app.Logger.Debug("latest job lookup failed", "videoID", id, "error", err)
		default:
			fmt.Fprintf(out, "%s: previous job %s %s\n", id, prev.JobID, tui.JobCellText(*prev, true, false))
		}

		job, err := app.Syncer.StartDownload(ctx, domain.Video{VideoID: id})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: job %s %s\n", id, job.JobID, job.Label())
	}

	final, err := app.State.WaitSettled(ctx, ids)
	if err != nil {
		return err
	}
	if err := summarize(out, ids, final); err != nil {
		return err
	}

	if !cmd.Bool("fetch") {
		return nil
	}
	for _, id := range ids {
		job, ok := final.Get(id)
		if !ok || job.Status != domain.JobStatusSuccess {
			continue
		}
		path, err := app.Syncer.SaveArtifact(ctx, job, app.Config.Downloads.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: saved %s\n", id, path)
	}
	return nil
}

func fetchAction(ctx context.Context, cmd *cli.Command, app *App) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrInvalidInput)
	}
	dir := cmd.String("out")
	if dir == "" {
		dir = app.Config.Downloads.Dir
	}

	job, err := app.Client.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	path, err := app.Syncer.SaveArtifact(ctx, *job, dir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, path)
	return nil
}

func addAction(ctx context.Context, cmd *cli.Command, app *App) error {
	id, err := app.Catalog.AddByURL(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "added %s\n", id)
	return nil
}

func scanAction(ctx context.Context, cmd *cli.Command, app *App) error {
	result, err := app.Catalog.Scan(ctx, domain.ScanRequest{
		Channel:        cmd.Args().First(),
		IncludeShorts:  cmd.Bool("shorts"),
		IncludeVideos:  cmd.Bool("videos"),
		IncludeStreams: cmd.Bool("streams"),
		MaxItems:       cmd.Int("max-items"),
	})
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "@%s: %d unique videos, %d new, %d updated\n",
		result.Channel, result.UniqueVideos, result.Inserted, result.Updated)
	for _, tab := range []string{"shorts", "videos", "streams"} {
		if n, ok := result.Counts[tab]; ok {
			fmt.Fprintf(out, "  %-8s %d\n", tab, n)
		}
	}
	return nil
}

func searchAction(ctx context.Context, cmd *cli.Command, app *App) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	videos := app.Queries.Search(query)
	if len(videos) == 0 {
		fmt.Fprintln(cmd.Root().Writer, "no cached matches; run `reel sync` to refresh the cache")
		return nil
	}
	printJobTable(cmd.Root().Writer, videos, app.State.Snapshot())
	return nil
}

func healthAction(ctx context.Context, cmd *cli.Command, app *App) error {
	if err := app.Catalog.Health(ctx); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "ok %s\n", app.Client.BaseURL())
	return nil
}

func printJobTable(w io.Writer, videos []domain.Video, snap jobs.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO\tTITLE\tLENGTH\tVIEWS\tJOB")
	for _, v := range videos {
		job, ok := snap.Get(v.VideoID)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.VideoID,
			styles.Truncate(v.DisplayTitle(), 48),
			v.FormattedDuration(),
			v.FormattedViews(),
			tui.JobCellText(job, ok, snap.Stalled[v.VideoID]),
		)
	}
	tw.Flush()
}

// followProgress prints a line whenever the job of one of ids changes label.
// Lines from one snapshot come out in id order.
func followProgress(w io.Writer, state *jobs.State, ids []string) func() {
	watched := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			watched = append(watched, id)
		}
	}
	sort.Strings(watched)

	var mu sync.Mutex
	last := make(map[string]string)
	return state.Subscribe(func(snap jobs.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for _, id := range watched {
			job, ok := snap.Get(id)
			if !ok {
				continue
			}
			label := tui.JobCellText(job, ok, snap.Stalled[id])
			if last[id] == label {
				continue
			}
			last[id] = label
			fmt.Fprintf(w, "%s: %s\n", id, label)
		}
	})
}

// summarize reports failures; any failed or stalled job makes the command fail
func summarize(w io.Writer, ids []string, snap jobs.Snapshot) error {
	var failed []string
	for _, id := range ids {
		job, ok := snap.Get(id)
		if !ok {
			continue
		}
		if job.Status == domain.JobStatusFailed || snap.Stalled[id] {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs did not finish: %s", len(failed), len(ids), strings.Join(failed, ", "))
	}
	fmt.Fprintf(w, "all %d jobs finished\n", len(ids))
	return nil
}
