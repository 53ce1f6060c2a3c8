package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"housing-map/internal/config"
	"housing-map/internal/errors"
	"housing-map/internal/middleware"
	"housing-map/internal/services"
)

const testCSV = `StateName,metaA,metaB,metaC,metaD,2023-01,2023-02
CA,0,0,0,0,10,15
NY,0,0,0,0,3,2
CA,0,0,0,0,5,0
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Input.File = path
	cfg.Output.Dir = filepath.Join(dir, "out")
	return cfg
}

func TestRun_WritesCharts(t *testing.T) {
	cfg := testConfig(t)

	if err := run(cfg, testLogger()); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	for _, name := range []string{"snapshot.html", "series.html"} {
		data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if !strings.Contains(string(data), "Plotly.newPlot") {
			t.Errorf("%s should draw the figure", name)
		}
	}

	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, workbookFile)); !os.IsNotExist(err) {
		t.Error("workbook should only be written when requested")
	}
}

func TestRun_Exports(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.XLSX = true
	cfg.Output.PNG = true

	if err := run(cfg, testLogger()); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	for _, name := range []string{workbookFile, pngFile} {
		info, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestRun_MissingRegionColumn(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Input.File, []byte("State,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(cfg, testLogger())
	if !errors.HasCode(err, errors.CodeAggregation) {
		t.Fatalf("expected AGGREGATION_ERROR, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Output.Dir, "snapshot.html")); !os.IsNotExist(statErr) {
		t.Error("no chart should be written when aggregation fails")
	}
}

func TestRun_MissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.File = filepath.Join(t.TempDir(), "missing.csv")

	if err := run(cfg, testLogger()); !errors.HasCode(err, errors.CodeParse) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestNewHandler(t *testing.T) {
	cfg := testConfig(t)
	housing := services.NewHousingFromConfig(cfg, testLogger())
	if err := housing.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	handler := newHandler(housing, middleware.NewRateLimiter(cfg.Security), testLogger())

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/charts/series", http.StatusOK},
		{"/api/charts/snapshot", http.StatusOK},
		{"/api/charts/pie", http.StatusNotFound},
		{"/health", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("request id header missing")
			}
			if w.Header().Get("Content-Security-Policy") == "" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestRun_NonFiniteMeasure(t *testing.T) {
	inputs := map[string]string{
		"infinity": "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,Inf\n",
		"overflow": "StateName,metaA,metaB,metaC,metaD,2023-01\nCA,0,0,0,0,1e308\nCA,0,0,0,0,1e308\n",
	}

	for name, content := range inputs {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			if err := os.WriteFile(cfg.Input.File, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			err := run(cfg, testLogger())
			if !errors.HasCode(err, errors.CodeAggregation) {
				t.Fatalf("expected AGGREGATION_ERROR, got %v", err)
			}
			if _, statErr := os.Stat(cfg.Output.Dir); !os.IsNotExist(statErr) {
				t.Error("no output should be written for a non-finite measure")
			}
		})
	}
}

func TestRenderOutputs_FailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	renderErr := stderrors.New("encode failed")

	jobs := []renderJob{
		{name: "snapshot.html", render: func(w io.Writer) error {
			_, err := io.WriteString(w, "<html></html>")
			return err
		}},
		{name: "series.html", render: func(w io.Writer) error {
			io.WriteString(w, "<html>")
			return renderErr
		}},
	}

	outputs, err := renderOutputs(dir, jobs)
	if !errors.HasCode(err, errors.CodeRender) {
		t.Fatalf("expected RENDER_ERROR, got %v", err)
	}
	if !stderrors.Is(err, renderErr) {
		t.Errorf("render cause should be kept, got %v", err)
	}
	if outputs != nil {
		t.Errorf("outputs = %v, want none", outputs)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("a failed render should leave nothing on disk")
	}
}

func TestCommitOutputs_ReplacesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path := filepath.Join(dir, "snapshot.html")

	for _, body := range []string{"first", "second"} {
		written, err := commitOutputs(dir, []output{{path: path, data: []byte(body)}})
		if err != nil {
			t.Fatalf("commitOutputs() failed: %v", err)
		}
		if len(written) != 1 || written[0] != path {
			t.Errorf("written = %v", written)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}
