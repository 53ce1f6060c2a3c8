package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"housing-map/internal/errors"
	"housing-map/internal/observability"
	"housing-map/internal/services"
	"housing-map/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	housing *services.Housing
	logger  *slog.Logger
}

func NewPageHandlers(housing *services.Housing, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		housing: housing,
		logger:  logger,
	}
}

func (h *PageHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(h.housing.Charts()).Render(ctx, w); err != nil {
		h.logger.Error("render index", "error", err)
	}
}

// HandleChart renders the live page for one chart.
func (h *PageHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	name := r.PathValue("name")
	fig, err := h.housing.Figure(name)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ChartPage(fig.Layout.Title.Text, name, fig, true).Render(ctx, w); err != nil {
		h.logger.Error("render chart page", "chart", name, "error", err)
	}
}
