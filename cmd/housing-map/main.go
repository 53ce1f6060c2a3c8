package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"housing-map/internal/config"
	"housing-map/internal/errors"
	"housing-map/internal/export"
	"housing-map/internal/middleware"
	"housing-map/internal/observability"
	"housing-map/internal/server"
	"housing-map/internal/services"
	"housing-map/internal/ui/templates"
)

const (
	buildTimeout = 30 * time.Second

	workbookFile = "housing_sales.xlsx"
	pngFile      = "snapshot.png"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		fmt.Fprintln(os.Stderr, "usage: housing-map -file <path> [-out dir] [-period-order position|date] [-xlsx] [-png] [-serve] [-config file.yaml]")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("housing-map failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	housing := services.NewHousingFromConfig(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	start := time.Now()
	if err := housing.Refresh(ctx); err != nil {
		return err
	}
	logger.Info("charts built",
		"input", cfg.Input.File,
		"duration", time.Since(start),
	)

	written, err := writeOutputs(cfg, housing)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Info("wrote output", "path", path)
	}

	if !cfg.Output.Serve {
		return nil
	}
	return serve(cfg, housing, logger)
}

type renderJob struct {
	name   string
	render func(io.Writer) error
}

type output struct {
	path string
	data []byte
}

// writeOutputs renders the standalone chart pages and any requested exports,
// then writes them into the output directory. Nothing is written unless every
// output renders.
func writeOutputs(cfg *config.Config, housing *services.Housing) ([]string, error) {
	jobs, err := outputJobs(cfg, housing)
	if err != nil {
		return nil, err
	}
	outputs, err := renderOutputs(cfg.Output.Dir, jobs)
	if err != nil {
		return nil, err
	}
	return commitOutputs(cfg.Output.Dir, outputs)
}

func outputJobs(cfg *config.Config, housing *services.Housing) ([]renderJob, error) {
	var jobs []renderJob
	for _, name := range []string{services.ChartSnapshot, services.ChartSeries} {
		fig, err := housing.Figure(name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, renderJob{name: name + ".html", render: func(w io.Writer) error {
			return templates.ChartPage(fig.Layout.Title.Text, name, fig, false).Render(context.Background(), w)
		}})
	}

	if cfg.Output.XLSX {
		jobs = append(jobs, renderJob{name: workbookFile, render: func(w io.Writer) error {
			return export.WriteWorkbook(w, housing.Snapshot(), housing.Series(), cfg.Input.RegionColumn)
		}})
	}
	if cfg.Output.PNG {
		jobs = append(jobs, renderJob{name: pngFile, render: func(w io.Writer) error {
			return export.WriteSnapshotPNG(w, housing.Snapshot(), cfg.Chart.MeasureLabel)
		}})
	}
	return jobs, nil
}

func renderOutputs(dir string, jobs []renderJob) ([]output, error) {
	outputs := make([]output, 0, len(jobs))
	for _, job := range jobs {
		var buf bytes.Buffer
		if err := job.render(&buf); err != nil {
			return nil, errors.RenderWrap(err, "render output").WithDetails("file %q", job.name)
		}
		outputs = append(outputs, output{path: filepath.Join(dir, job.name), data: buf.Bytes()})
	}
	return outputs, nil
}

func commitOutputs(dir string, outputs []output) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	written := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if err := writeFile(out.path, out.data); err != nil {
			return written, err
		}
		written = append(written, out.path)
	}
	return written, nil
}

// writeFile writes data next to path and renames it into place.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func newHandler(housing *services.Housing, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.RateLimit(limiter, logger),
	)
	return middlewareChain(server.NewServer(housing, logger))
}

func serve(cfg *config.Config, housing *services.Housing, logger *slog.Logger) error {
	limiter := middleware.NewRateLimiter(cfg.Security)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(housing, limiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go limiter.Run(sweepCtx)

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopSweep()
		return nil
	})

	logger.Info("viewer ready", "url", "http://"+cfg.Address()+"/")
	if err := gracefulServer.ListenAndServe(); err != nil {
		return err
	}

	logger.Info("viewer stopped")
	return nil
}
