package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"housing-map/internal/errors"
	"housing-map/internal/observability"
	"housing-map/internal/services"
)

const cacheMaxAge = "public, max-age=60"

type APIHandlers struct {
	housing *services.Housing
	logger  *slog.Logger
}

func NewAPIHandlers(housing *services.Housing, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		housing: housing,
		logger:  logger,
	}
}

// HandleCharts lists the built charts together with the pipeline stats.
func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"charts": h.housing.Charts(),
		"stats":  h.housing.Stats(),
	}
	errors.WriteSuccess(w, data)
}

// HandleChart returns the figure JSON for a single chart.
func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	fig, err := h.housing.Figure(r.PathValue("name"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	headers := map[string]string{
		"Cache-Control": cacheMaxAge,
	}
	errors.WriteSuccessWithHeaders(w, fig, headers)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.housing.Stats())
}
