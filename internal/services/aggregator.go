package services

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"housing-map/internal/config"
	"housing-map/internal/errors"
	"housing-map/internal/models"
)

// AggregateOptions selects the region column and the period columns of a table.
type AggregateOptions struct {
	RegionColumn string
	// MetadataColumns is the number of leading non-period columns skipped by the series.
	MetadataColumns int
	// PeriodColumns, when set, replaces positional period discovery.
	PeriodColumns []string
	PeriodOrder   string
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{
		RegionColumn:    "StateName",
		MetadataColumns: 5,
		PeriodOrder:     config.PeriodOrderPosition,
	}
}

type periodColumn struct {
	name  string
	index int
}

var periodLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2006",
	"2006",
}

// AggregateSnapshot sums the latest period per region. By default the latest
// period is the rightmost column of the table.
func AggregateSnapshot(table *models.SalesTable, opts AggregateOptions) (*models.Snapshot, error) {
	regionIdx, err := regionIndex(table, opts)
	if err != nil {
		return nil, err
	}

	var latest periodColumn
	if len(opts.PeriodColumns) == 0 && opts.PeriodOrder != config.PeriodOrderDate {
		if len(table.Columns) == 0 {
			return nil, errors.Aggregation("table has no columns")
		}
		last := len(table.Columns) - 1
		latest = periodColumn{name: table.Columns[last], index: last}
	} else {
		periods, err := resolvePeriods(table, opts, regionIdx)
		if err != nil {
			return nil, err
		}
		latest = periods[len(periods)-1]
	}

	if latest.index == regionIdx {
		return nil, errors.Aggregation("no measure column after the region column").
			WithDetails("column %q", opts.RegionColumn)
	}

	totals, err := sumByRegion(table, regionIdx, latest)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Period:  latest.name,
		Measure: latest.name,
		Totals:  totals,
	}, nil
}

// AggregateSeries sums every period column per region and concatenates the
// results in period order.
func AggregateSeries(table *models.SalesTable, opts AggregateOptions) (*models.Series, error) {
	regionIdx, err := regionIndex(table, opts)
	if err != nil {
		return nil, err
	}

	periods, err := resolvePeriods(table, opts, regionIdx)
	if err != nil {
		return nil, err
	}

	series := &models.Series{Periods: make([]string, 0, len(periods))}
	for _, p := range periods {
		totals, err := sumByRegion(table, regionIdx, p)
		if err != nil {
			return nil, err
		}
		series.Periods = append(series.Periods, p.name)
		for _, t := range totals {
			series.Points = append(series.Points, models.SeriesPoint{
				Region: t.Region,
				Period: p.name,
				Value:  t.Value,
			})
		}
	}

	return series, nil
}

func regionIndex(table *models.SalesTable, opts AggregateOptions) (int, error) {
	idx, ok := table.ColumnIndex(opts.RegionColumn)
	if !ok {
		return -1, errors.Aggregation("region identifier column not found").
			WithDetails("column %q", opts.RegionColumn)
	}
	return idx, nil
}

func resolvePeriods(table *models.SalesTable, opts AggregateOptions, regionIdx int) ([]periodColumn, error) {
	var periods []periodColumn

	if len(opts.PeriodColumns) > 0 {
		for _, name := range opts.PeriodColumns {
			idx, ok := table.ColumnIndex(name)
			if !ok {
				return nil, errors.Aggregation("period column not found").WithDetails("column %q", name)
			}
			if idx == regionIdx {
				return nil, errors.Aggregation("region column cannot be a period column").
					WithDetails("column %q", name)
			}
			periods = append(periods, periodColumn{name: name, index: idx})
		}
	} else {
		if len(table.Columns) < opts.MetadataColumns+1 {
			return nil, errors.Aggregation("table has no period columns").
				WithDetails("need more than %d metadata columns, got %d columns", opts.MetadataColumns, len(table.Columns))
		}
		for i := opts.MetadataColumns; i < len(table.Columns); i++ {
			if i == regionIdx {
				continue
			}
			periods = append(periods, periodColumn{name: table.Columns[i], index: i})
		}
		if len(periods) == 0 {
			return nil, errors.Aggregation("table has no period columns")
		}
	}

	if opts.PeriodOrder == config.PeriodOrderDate {
		return sortByDate(periods)
	}
	return periods, nil
}

func sortByDate(periods []periodColumn) ([]periodColumn, error) {
	dates := make(map[string]time.Time, len(periods))
	for _, p := range periods {
		t, ok := parsePeriod(p.name)
		if !ok {
			return nil, errors.Aggregation("period column is not a date").WithDetails("column %q", p.name)
		}
		dates[p.name] = t
	}

	sorted := slices.Clone(periods)
	slices.SortStableFunc(sorted, func(a, b periodColumn) int {
		return dates[a.name].Compare(dates[b.name])
	})
	return sorted, nil
}

func parsePeriod(s string) (time.Time, bool) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sumByRegion groups rows by region and sums one measure column. Missing
// values are skipped; rows without a region are ignored.
func sumByRegion(table *models.SalesTable, regionIdx int, measure periodColumn) ([]models.RegionTotal, error) {
	sums := make(map[string]float64)

	for i := 0; i < table.Len(); i++ {
		region := strings.TrimSpace(table.Cell(i, regionIdx))
		if region == "" {
			continue
		}

		raw := strings.TrimSpace(table.Cell(i, measure.index))
		if isMissing(raw) {
			continue
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.AggregationWrap(err, "non-numeric measure value").
				WithDetails("column %q, row %d, value %q", measure.name, i+2, raw)
		}
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return nil, errors.Aggregation("non-finite measure value").
				WithDetails("column %q, row %d, value %q", measure.name, i+2, raw)
		}
		sum := sums[region] + value
		if math.IsInf(sum, 0) {
			return nil, errors.Aggregation("measure sum overflows").
				WithDetails("column %q, region %q, row %d", measure.name, region, i+2)
		}
		sums[region] = sum
	}

	regions := make([]string, 0, len(sums))
	for region := range sums {
		regions = append(regions, region)
	}
	slices.Sort(regions)

	totals := make([]models.RegionTotal, 0, len(regions))
	for _, region := range regions {
		totals = append(totals, models.RegionTotal{Region: region, Value: sums[region]})
	}
	return totals, nil
}

// missingValues matches the cells pandas reads as NA by default.
var missingValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(v string) bool {
	_, ok := missingValues[v]
	return ok
}
