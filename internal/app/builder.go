package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KganDev/irish-rail-schedule/gtfsdb"
	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/export"
	"github.com/KganDev/irish-rail-schedule/internal/feed"
	"github.com/KganDev/irish-rail-schedule/internal/logging"
	"github.com/KganDev/irish-rail-schedule/internal/metrics"
	"github.com/KganDev/irish-rail-schedule/internal/pruning"
)

// RunBuild executes one end-to-end build: fetch and parse the feed, prune
// duplicate services (unless disabled), scan schedule windows, persist the
// snapshot, write the JSON artifacts, and publish the new build state.
func (app *Application) RunBuild(ctx context.Context) error {
	start := time.Now()
	logger := app.Logger.With(slog.String("component", "builder"))

	state, outcome, err := app.buildOnce(ctx, logger)
	outcome.Duration = time.Since(start)
	if app.Metrics != nil {
		app.Metrics.RecordBuild(outcome)
	}
	if err != nil {
		logging.LogError(logger, "build failed", err)
		return err
	}

	app.SetBuildState(state)
	logging.LogOperation(logger, "build_completed",
		slog.Duration("duration", outcome.Duration),
		slog.String("version", state.Version),
		slog.Int("windows", outcome.Windows),
		slog.Int("services_kept", outcome.ServicesKept),
		slog.Int("services_pruned", outcome.ServicesPruned))
	return nil
}

func (app *Application) buildOnce(ctx context.Context, logger *slog.Logger) (*BuildState, metrics.BuildOutcome, error) {
	var outcome metrics.BuildOutcome
	cfg := app.Config

	raw, err := feed.RawData(ctx, feed.LoadOptions{
		Source:          cfg.GtfsURL,
		AuthHeaderKey:   cfg.StaticAuthHeaderKey,
		AuthHeaderValue: cfg.StaticAuthHeaderValue,
	})
	if err != nil {
		return nil, outcome, fmt.Errorf("error fetching feed: %w", err)
	}
	if app.Metrics != nil {
		app.Metrics.FeedFetchBytes.Set(float64(len(raw)))
	}

	snap, err := feed.Parse(raw)
	if err != nil {
		return nil, outcome, fmt.Errorf("error parsing feed: %w", err)
	}
	logging.LogOperation(logger, "feed_parsed",
		slog.Int("bytes", len(raw)),
		slog.Int("services", len(snap.Calendars)),
		slog.Int("trips", len(snap.Trips)),
		slog.Int("warnings", snap.Warnings))

	// "Today" is interpreted in the agency's timezone; an explicit target
	// date overrides it for reproducible replays.
	today := calendar.Midnight(app.Clock.Now().In(snap.Location()))
	if t, ok := calendar.ParseDate(cfg.TargetDate); ok {
		today = t
	}

	version := snap.Version(app.Clock.Now().UTC().Format(calendar.DateLayout))

	calendars := snap.Calendars
	calendarDates := snap.CalendarDates
	trips := snap.Trips
	stopTimes := snap.StopTimes

	var diag *pruning.Diagnostics
	if cfg.PruneMode == "factual" {
		pivot := snap.PivotDate(today)
		result := pruning.Prune(calendars, calendarDates, trips, stopTimes, pruning.Options{
			PivotDate:      pivot,
			OverlapMaxDays: cfg.OverlapMaxDays,
		})
		calendars = result.Calendars
		calendarDates = result.CalendarDates
		trips = result.Trips
		stopTimes = result.StopTimes
		diag = &result.Diagnostics

		outcome.ServicesKept = result.Diagnostics.Summary.ServicesKept
		outcome.ServicesPruned = result.Diagnostics.Summary.ServicesPruned
		outcome.Groups = result.Diagnostics.Summary.TotalGroups
		outcome.Ambiguous = result.Diagnostics.Summary.AmbiguousGroups
		logging.LogOperation(logger, "pruning_applied",
			slog.Int("services_kept", outcome.ServicesKept),
			slog.Int("services_pruned", outcome.ServicesPruned),
			slog.Int("ambiguous_groups", outcome.Ambiguous))
	} else {
		outcome.ServicesKept = len(calendars)
		logging.LogOperation(logger, "pruning_skipped")
	}

	windows := calendar.Scan(today, cfg.WindowDays, calendars, calendarDates)
	outcome.Windows = len(windows)

	var tableCounts map[string]int
	if app.DB != nil {
		imported, err := app.DB.StoreSnapshot(ctx, gtfsdb.Rows{
			Agencies:      snap.Agencies,
			Stops:         snap.Stops,
			Routes:        snap.Routes,
			Trips:         trips,
			StopTimes:     stopTimes,
			Calendars:     calendars,
			CalendarDates: calendarDates,
			FeedInfos:     snap.FeedInfos,
			Hash:          snap.SHA256,
			Source:        cfg.GtfsURL,
		})
		if err != nil {
			return nil, outcome, fmt.Errorf("error storing snapshot: %w", err)
		}
		if !imported {
			logging.LogOperation(logger, "snapshot_store_skipped")
		}
		if tableCounts, err = app.DB.TableCounts(ctx); err != nil {
			return nil, outcome, fmt.Errorf("error counting snapshot tables: %w", err)
		}
	}

	generatedAt := app.Clock.Now().UTC()
	build := export.Build{
		Version:     version,
		GeneratedAt: generatedAt,
		Rows: export.Rows{
			Agencies:      snap.Agencies,
			Stops:         snap.Stops,
			Routes:        snap.Routes,
			Trips:         trips,
			StopTimes:     stopTimes,
			Calendars:     calendars,
			CalendarDates: calendarDates,
		},
		Windows:     windows,
		ScanFrom:    today,
		ScanTo:      today.AddDate(0, 0, cfg.WindowDays),
		Diagnostics: diag,
	}
	if len(snap.FeedInfos) > 0 {
		build.FeedStartDate = snap.FeedInfos[0].StartDate
		build.FeedEndDate = snap.FeedInfos[0].EndDate
	}

	writer := export.NewWriter(cfg.OutDir, cfg.GzipArtifacts, app.Logger)
	if err := writer.Write(build); err != nil {
		return nil, outcome, fmt.Errorf("error writing artifacts: %w", err)
	}

	outcome.Success = true
	return &BuildState{
		Version:     version,
		GeneratedAt: generatedAt,
		Windows:     export.WindowsDoc(build, generatedAt.Format("2006-01-02T15:04:05Z")),
		Diagnostics: diag,
		TableCounts: tableCounts,
	}, outcome, nil
}
