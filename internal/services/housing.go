package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"housing-map/internal/chart"
	"housing-map/internal/config"
	"housing-map/internal/errors"
	"housing-map/internal/models"
	"housing-map/internal/observability"
)

const (
	ChartSnapshot = "snapshot"
	ChartSeries   = "series"
)

// ChartInfo describes one built chart for listings.
type ChartInfo struct {
	Name    string    `json:"name"`
	Title   string    `json:"title"`
	Frames  int       `json:"frames"`
	Regions int       `json:"regions"`
	BuiltAt time.Time `json:"built_at"`
}

type built struct {
	snapshot       *models.Snapshot
	series         *models.Series
	snapshotFigure *chart.Figure
	seriesFigure   *chart.Figure
	builtAt        time.Time
}

// Housing runs the snapshot and series pipelines for one input file and keeps
// the most recent figures for the viewer.
type Housing struct {
	mu        sync.RWMutex
	current   built
	path      string
	aggregate AggregateOptions
	chartOpts []chart.Option
	builds    int
	logger    *slog.Logger
}

func NewHousing(path string, aggregate AggregateOptions, logger *slog.Logger, chartOpts ...chart.Option) *Housing {
	if logger == nil {
		logger = slog.Default()
	}
	return &Housing{
		path:      path,
		aggregate: aggregate,
		chartOpts: chartOpts,
		logger:    logger,
	}
}

// NewHousingFromConfig wires the pipeline options from the application config.
func NewHousingFromConfig(cfg *config.Config, logger *slog.Logger) *Housing {
	agg := AggregateOptions{
		RegionColumn:    cfg.Input.RegionColumn,
		MetadataColumns: cfg.Input.MetadataColumns,
		PeriodColumns:   cfg.Input.PeriodColumns,
		PeriodOrder:     cfg.Input.PeriodOrder,
	}
	return NewHousing(cfg.Input.File, agg, logger, ChartOptions(cfg.Chart, cfg.Input.RegionColumn)...)
}

func ChartOptions(cfg config.ChartConfig, regionLabel string) []chart.Option {
	return []chart.Option{
		chart.WithSize(cfg.Width, cfg.Height),
		chart.WithGeo(cfg.Scope, cfg.LocationMode),
		chart.WithColorScale(cfg.ColorScale),
		chart.WithLakes(true, cfg.LakeColor),
		chart.WithLabels(regionLabel, cfg.MeasureLabel),
		chart.WithAnimation(chart.Animation{
			FrameDuration:      cfg.FrameDuration,
			TransitionDuration: cfg.TransitionDuration,
		}),
	}
}

// BuildSnapshotMap loads the input, aggregates the latest period and builds
// the static choropleth.
func (h *Housing) BuildSnapshotMap(ctx context.Context) (*chart.Figure, *models.Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.snapshot")
	fig, snap, err := h.buildSnapshot(ctx)
	span.End(h.logger, err)
	return fig, snap, err
}

func (h *Housing) buildSnapshot(ctx context.Context) (*chart.Figure, *models.Snapshot, error) {
	table, err := h.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	_, span := observability.StartSpan(ctx, "aggregate.snapshot")
	snap, err := AggregateSnapshot(table, h.aggregate)
	if err == nil {
		span.SetTag("period", snap.Period)
		span.SetTag("regions", strconv.Itoa(len(snap.Totals)))
	}
	span.End(h.logger, err)
	if err != nil {
		return nil, nil, err
	}

	fig := chart.BuildSnapshot(snap, h.chartOpts...)
	h.warnUnknownRegions(ChartSnapshot, fig)
	return fig, snap, nil
}

// BuildTimeSeriesMap loads the input, aggregates every period and builds the
// animated choropleth.
func (h *Housing) BuildTimeSeriesMap(ctx context.Context) (*chart.Figure, *models.Series, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.series")
	fig, series, err := h.buildSeries(ctx)
	span.End(h.logger, err)
	return fig, series, err
}

func (h *Housing) buildSeries(ctx context.Context) (*chart.Figure, *models.Series, error) {
	table, err := h.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	_, span := observability.StartSpan(ctx, "aggregate.series")
	series, err := AggregateSeries(table, h.aggregate)
	if err == nil {
		span.SetTag("periods", strconv.Itoa(len(series.Periods)))
		span.SetTag("points", strconv.Itoa(len(series.Points)))
	}
	span.End(h.logger, err)
	if err != nil {
		return nil, nil, err
	}

	fig := chart.BuildSeries(series, h.chartOpts...)
	h.warnUnknownRegions(ChartSeries, fig)
	return fig, series, nil
}

func (h *Housing) load(ctx context.Context) (*models.SalesTable, error) {
	_, span := observability.StartSpan(ctx, "load")
	span.SetTag("path", h.path)

	table, err := LoadTable(ctx, h.path)
	if err == nil {
		span.SetTag("shape", describeTable(table))
	}
	span.End(h.logger, err)
	return table, err
}

func (h *Housing) warnUnknownRegions(name string, fig *chart.Figure) {
	if unknown := chart.UnknownRegions(fig.Locations()); len(unknown) > 0 {
		h.logger.Warn("regions not recognised by the map projection",
			"chart", name,
			"regions", unknown,
		)
	}
}

// Refresh runs both pipelines concurrently and replaces the stored figures
// only when both succeed.
func (h *Housing) Refresh(ctx context.Context) error {
	var next built

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fig, snap, err := h.BuildSnapshotMap(gctx)
		if err != nil {
			return fmt.Errorf("snapshot map: %w", err)
		}
		next.snapshotFigure, next.snapshot = fig, snap
		return nil
	})
	g.Go(func() error {
		fig, series, err := h.BuildTimeSeriesMap(gctx)
		if err != nil {
			return fmt.Errorf("time series map: %w", err)
		}
		next.seriesFigure, next.series = fig, series
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	next.builtAt = time.Now()

	h.mu.Lock()
	h.current = next
	h.builds++
	h.mu.Unlock()

	return nil
}

func (h *Housing) Figure(name string) (*chart.Figure, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var fig *chart.Figure
	switch name {
	case ChartSnapshot:
		fig = h.current.snapshotFigure
	case ChartSeries:
		fig = h.current.seriesFigure
	}
	if fig == nil {
		return nil, errors.NotFound("chart not found").WithDetails("chart %q", name)
	}
	return fig, nil
}

func (h *Housing) Snapshot() *models.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.snapshot
}

func (h *Housing) Series() *models.Series {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.series
}

func (h *Housing) Charts() []ChartInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []ChartInfo
	if fig := h.current.snapshotFigure; fig != nil {
		out = append(out, ChartInfo{
			Name:    ChartSnapshot,
			Title:   fig.Layout.Title.Text,
			Frames:  1,
			Regions: len(h.current.snapshot.Totals),
			BuiltAt: h.current.builtAt,
		})
	}
	if fig := h.current.seriesFigure; fig != nil {
		out = append(out, ChartInfo{
			Name:    ChartSeries,
			Title:   fig.Layout.Title.Text,
			Frames:  len(fig.Frames),
			Regions: countRegions(h.current.series),
			BuiltAt: h.current.builtAt,
		})
	}
	return out
}

func countRegions(series *models.Series) int {
	regions := make([]string, 0, len(series.Points))
	for _, p := range series.Points {
		regions = append(regions, p.Region)
	}
	slices.Sort(regions)
	return len(slices.Compact(regions))
}

func (h *Housing) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := map[string]any{
		"input":      h.path,
		"builds":     h.builds,
		"last_built": h.current.builtAt,
	}
	if h.current.snapshot != nil {
		stats["latest_period"] = h.current.snapshot.Period
		stats["regions"] = len(h.current.snapshot.Totals)
	}
	if h.current.series != nil {
		stats["periods"] = len(h.current.series.Periods)
		stats["series_points"] = len(h.current.series.Points)
	}
	return stats
}
