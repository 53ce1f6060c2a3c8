package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"housing-map/internal/config"
	"housing-map/internal/errors"
	"housing-map/internal/models"
)

func mustReadCSV(t *testing.T, content string) *models.SalesTable {
	t.Helper()
	table, err := ReadCSV(context.Background(), strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadCSV() failed: %v", err)
	}
	return table
}

func TestAggregateSnapshot_Scenario(t *testing.T) {
	table := mustReadCSV(t, sampleCSV)

	snap, err := AggregateSnapshot(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSnapshot() failed: %v", err)
	}

	if snap.Period != "2023-02" {
		t.Errorf("Period = %q, want 2023-02", snap.Period)
	}
	want := []models.RegionTotal{
		{Region: "CA", Value: 15},
		{Region: "NY", Value: 2},
	}
	if diff := cmp.Diff(want, snap.Totals); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateSeries_Scenario(t *testing.T) {
	table := mustReadCSV(t, sampleCSV)

	series, err := AggregateSeries(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSeries() failed: %v", err)
	}

	want := []models.SeriesPoint{
		{Region: "CA", Period: "2023-01", Value: 15},
		{Region: "NY", Period: "2023-01", Value: 3},
		{Region: "CA", Period: "2023-02", Value: 15},
		{Region: "NY", Period: "2023-02", Value: 2},
	}
	if diff := cmp.Diff(want, series.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2023-01", "2023-02"}, series.Periods); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_EmptyTable(t *testing.T) {
	table := mustReadCSV(t, "StateName,metaA,metaB,metaC,metaD,2023-01,2023-02\n")

	snap, err := AggregateSnapshot(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSnapshot() failed: %v", err)
	}
	if len(snap.Totals) != 0 {
		t.Errorf("expected no totals, got %v", snap.Totals)
	}

	series, err := AggregateSeries(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSeries() failed: %v", err)
	}
	if len(series.Points) != 0 {
		t.Errorf("expected no points, got %v", series.Points)
	}
	if len(series.Periods) != 2 {
		t.Errorf("periods should still be reported, got %v", series.Periods)
	}
}

func TestAggregate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		opts    func(*AggregateOptions)
		series  bool
		details string
	}{
		{
			name:    "missing region column snapshot",
			csv:     "State,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,1\n",
			details: `"StateName"`,
		},
		{
			name:    "missing region column series",
			csv:     "State,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,1\n",
			series:  true,
			details: `"StateName"`,
		},
		{
			name:    "non-numeric measure",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,lots\n",
			details: `"lots"`,
		},
		{
			name:    "non-numeric measure in early period",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01,2023-02\nCA,0,0,0,0,1,2\nNY,0,0,0,0,seven,3\n",
			series:  true,
			details: "row 3",
		},
		{
			name:   "too few columns for series",
			csv:    "StateName,metaA,metaB,2023-01\nCA,0,0,1\n",
			series: true,
		},
		{
			name: "region is the last column",
			csv:  "metaA,StateName\n0,CA\n",
		},
		{
			name:    "unknown explicit period",
			csv:     sampleCSV,
			opts:    func(o *AggregateOptions) { o.PeriodColumns = []string{"2023-01", "2024-01"} },
			series:  true,
			details: `"2024-01"`,
		},
		{
			name:   "undated header with date order",
			csv:    "StateName,metaA,metaB,metaC,metaD,2023-01,latest\nCA,0,0,0,0,1,2\n",
			opts:   func(o *AggregateOptions) { o.PeriodOrder = config.PeriodOrderDate },
			series: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustReadCSV(t, tt.csv)
			opts := DefaultAggregateOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			var err error
			if tt.series {
				_, err = AggregateSeries(table, opts)
			} else {
				_, err = AggregateSnapshot(table, opts)
			}

			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.HasCode(err, errors.CodeAggregation) {
				t.Fatalf("expected AGGREGATION_ERROR, got %v", err)
			}

			var appErr *errors.AppError
			if tt.details != "" {
				appErr = err.(*errors.AppError)
				if !strings.Contains(appErr.Details, tt.details) {
					t.Errorf("details = %q, want substring %q", appErr.Details, tt.details)
				}
			}
		})
	}
}

func TestAggregate_MissingValuesAndRegions(t *testing.T) {
	csv := `StateName,metaA,metaB,metaC,metaD,2023-01,2023-02
CA,0,0,0,0,1.5,
,0,0,0,0,100,100
TX,0,0,0,0,NaN,4
CA,0,0,0,0,2.5,
WA,0,0,0,0,,
`
	table := mustReadCSV(t, csv)

	snap, err := AggregateSnapshot(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSnapshot() failed: %v", err)
	}
	if diff := cmp.Diff([]models.RegionTotal{{Region: "TX", Value: 4}}, snap.Totals); diff != "" {
		t.Errorf("snapshot totals (-want +got):\n%s", diff)
	}

	series, err := AggregateSeries(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSeries() failed: %v", err)
	}
	want := []models.SeriesPoint{
		{Region: "CA", Period: "2023-01", Value: 4},
		{Region: "TX", Period: "2023-02", Value: 4},
	}
	if diff := cmp.Diff(want, series.Points); diff != "" {
		t.Errorf("series points (-want +got):\n%s", diff)
	}
}

func TestAggregate_RegionSetIsSubsetOfInput(t *testing.T) {
	table := mustReadCSV(t, sampleCSV)
	series, err := AggregateSeries(table, DefaultAggregateOptions())
	if err != nil {
		t.Fatal(err)
	}

	input := map[string]bool{}
	for i := 0; i < table.Len(); i++ {
		input[table.Cell(i, 0)] = true
	}

	for _, period := range series.Periods {
		got := map[string]bool{}
		for _, p := range seriesSlice(series, period) {
			if !input[p.Region] {
				t.Errorf("region %q not in input", p.Region)
			}
			got[p.Region] = true
		}
		if len(got) != len(input) {
			t.Errorf("period %s: %d regions, want %d", period, len(got), len(input))
		}
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	table := mustReadCSV(t, sampleCSV)
	opts := DefaultAggregateOptions()

	first, err := AggregateSeries(table, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := AggregateSeries(table, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("aggregating twice differs (-first +second):\n%s", diff)
	}
}

func TestAggregate_SnapshotMatchesSingleSeriesSlice(t *testing.T) {
	csv := `StateName,metaA,metaB,metaC,metaD,2023-01
CA,0,0,0,0,10
NY,0,0,0,0,3
CA,0,0,0,0,5
`
	table := mustReadCSV(t, csv)
	opts := DefaultAggregateOptions()

	snap, err := AggregateSnapshot(table, opts)
	if err != nil {
		t.Fatal(err)
	}
	series, err := AggregateSeries(table, opts)
	if err != nil {
		t.Fatal(err)
	}

	var fromSeries []models.RegionTotal
	for _, p := range seriesSlice(series, snap.Period) {
		fromSeries = append(fromSeries, models.RegionTotal{Region: p.Region, Value: p.Value})
	}
	if diff := cmp.Diff(snap.Totals, fromSeries); diff != "" {
		t.Errorf("snapshot vs series slice (-snapshot +series):\n%s", diff)
	}
}

func TestAggregate_PeriodSelection(t *testing.T) {
	csv := `StateName,metaA,metaB,metaC,metaD,2023-03,2023-01,2023-02
CA,0,0,0,0,30,10,20
`
	table := mustReadCSV(t, csv)

	tests := []struct {
		name        string
		opts        func(*AggregateOptions)
		wantLatest  string
		wantPeriods []string
	}{
		{
			name:        "positional",
			wantLatest:  "2023-02",
			wantPeriods: []string{"2023-03", "2023-01", "2023-02"},
		},
		{
			name:        "date order",
			opts:        func(o *AggregateOptions) { o.PeriodOrder = config.PeriodOrderDate },
			wantLatest:  "2023-03",
			wantPeriods: []string{"2023-01", "2023-02", "2023-03"},
		},
		{
			name:        "explicit columns",
			opts:        func(o *AggregateOptions) { o.PeriodColumns = []string{"2023-01", "2023-03"} },
			wantLatest:  "2023-03",
			wantPeriods: []string{"2023-01", "2023-03"},
		},
		{
			name:        "no metadata offset skips region column",
			opts:        func(o *AggregateOptions) { o.MetadataColumns = 0; o.PeriodColumns = nil },
			wantLatest:  "2023-02",
			wantPeriods: []string{"metaA", "metaB", "metaC", "metaD", "2023-03", "2023-01", "2023-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAggregateOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			snap, err := AggregateSnapshot(table, opts)
			if err != nil {
				t.Fatalf("AggregateSnapshot() failed: %v", err)
			}
			if snap.Period != tt.wantLatest {
				t.Errorf("latest = %q, want %q", snap.Period, tt.wantLatest)
			}

			series, err := AggregateSeries(table, opts)
			if err != nil {
				t.Fatalf("AggregateSeries() failed: %v", err)
			}
			if diff := cmp.Diff(tt.wantPeriods, series.Periods); diff != "" {
				t.Errorf("periods (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregate_PandasMissingMarkers(t *testing.T) {
	markers := []string{"N/A", "#N/A", "None", "<NA>", "-nan", "NULL", "n/a", "#NA", "1.#QNAN"}

	var sb strings.Builder
	sb.WriteString("StateName,metaA,metaB,metaC,metaD,2023-01\n")
	for _, m := range markers {
		sb.WriteString("CA,0,0,0,0," + m + "\n")
	}
	sb.WriteString("CA,0,0,0,0,2\n")

	snap, err := AggregateSnapshot(mustReadCSV(t, sb.String()), DefaultAggregateOptions())
	if err != nil {
		t.Fatalf("AggregateSnapshot() failed: %v", err)
	}
	if diff := cmp.Diff([]models.RegionTotal{{Region: "CA", Value: 2}}, snap.Totals); diff != "" {
		t.Errorf("totals (-want +got):\n%s", diff)
	}
}

func TestAggregate_NonFiniteValues(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		details string
	}{
		{
			name:    "infinity literal",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,Inf\n",
			details: `"Inf"`,
		},
		{
			name:    "spelled infinity",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,-Infinity\n",
			details: `"-Infinity"`,
		},
		{
			name:    "uppercase nan parses but is not a missing marker",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,NAN\n",
			details: `"NAN"`,
		},
		{
			name:    "sum overflow",
			csv:     "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,1e308\nCA,0,0,0,0,1e308\n",
			details: `region "CA", row 3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustReadCSV(t, tt.csv)

			for _, aggregate := range []func() error{
				func() error { _, err := AggregateSnapshot(table, DefaultAggregateOptions()); return err },
				func() error { _, err := AggregateSeries(table, DefaultAggregateOptions()); return err },
			} {
				err := aggregate()
				if !errors.HasCode(err, errors.CodeAggregation) {
					t.Fatalf("expected AGGREGATION_ERROR, got %v", err)
				}
				if appErr := err.(*errors.AppError); !strings.Contains(appErr.Details, tt.details) {
					t.Errorf("details = %q, want substring %q", appErr.Details, tt.details)
				}
			}
		})
	}
}
