// Package job runs one point extraction: station table, gridded series,
// extraction and archive, in that order. Any failure aborts the job.
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/rtm0/nwmpoint/internal/archive"
	"github.com/rtm0/nwmpoint/internal/config"
	"github.com/rtm0/nwmpoint/internal/extract"
	"github.com/rtm0/nwmpoint/internal/nwm"
	"github.com/rtm0/nwmpoint/internal/observability"
	"github.com/rtm0/nwmpoint/internal/station"
)

// Result summarizes a finished job.
type Result struct {
	Output   string
	Files    int
	Steps    int
	Stations int
	Rows     int
	Dropped  int
	Elapsed  time.Duration
}

// LogAttrs returns the result as key/value pairs suitable for logging.
func (r Result) LogAttrs() []any {
	return []any{
		"output", r.Output,
		"files", r.Files,
		"steps", r.Steps,
		"stations", r.Stations,
		"rows", r.Rows,
		"dropped", r.Dropped,
		"elapsed", r.Elapsed,
	}
}

// Run executes the job described by cfg.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, clock clockwork.Clock) (Result, error) {
	start := clock.Now()
	logger.Info("Extraction started",
		"dataset", cfg.Dataset,
		"year", cfg.Year,
		"month", cfg.Month,
		"variable", cfg.Variable,
		"inputDir", cfg.InputDir,
		"stationRefFile", cfg.StationRefFile,
	)
	metrics := observability.NewMetrics(cfg.Variable)

	stations, err := station.ReadFile(cfg.StationIndexPath(), station.Columns{
		ID: cfg.StationIDColumn,
		X:  cfg.XIndexColumn,
		Y:  cfg.YIndexColumn,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("Stations loaded", "count", len(stations), "path", cfg.StationIndexPath())

	paths, err := nwm.Discover(cfg.DataDir, cfg.Year, cfg.Month)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Files discovered", "count", len(paths), "first", paths[0], "last", paths[len(paths)-1])

	series, err := nwm.Open(paths, cfg.Variable, nwm.Options{
		TimeDim:    cfg.TimeDim,
		TimeVar:    cfg.TimeVar,
		XDim:       cfg.XDim,
		YDim:       cfg.YDim,
		ChunkSteps: cfg.ChunkSteps,
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("Series opened", series.Summary()...)

	table, err := extract.Extract(ctx, series, stations, logger)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Extraction finished", "rows", table.Len(), "dropped", table.Dropped, "column", table.Header()[3])

	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrap(err, "before writing archive")
	}
	if err := archive.Write(cfg.ArchivePath(), cfg.ArchiveEntry(), table); err != nil {
		return Result{}, err
	}

	res := Result{
		Output:   cfg.ArchivePath(),
		Files:    len(paths),
		Steps:    table.Steps,
		Stations: len(stations),
		Rows:     table.Len(),
		Dropped:  table.Dropped,
		Elapsed:  clock.Since(start),
	}
	logger.Info("Archive written", "path", res.Output, "entry", cfg.ArchiveEntry())

	metrics.FilesOpened.Add(float64(res.Files))
	metrics.StepsRead.Add(float64(res.Steps))
	metrics.RowsWritten.Add(float64(res.Rows))
	metrics.RowsDropped.Add(float64(res.Dropped))
	metrics.JobDuration.Set(res.Elapsed.Seconds())
	metrics.LastSuccess.Set(float64(clock.Now().Unix()))
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("Could not write metrics", "path", cfg.MetricsTextfile, "err", err)
		}
	}
	return res, nil
}
