package server

import (
	"log/slog"
	"net/http"

	"housing-map/internal/handlers"
	"housing-map/internal/services"
)

type Server struct {
	housing      *services.Housing
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	pageHandlers *handlers.PageHandlers
	sseHandlers  *handlers.SSEHandlers
}

func NewServer(housing *services.Housing, logger *slog.Logger) *Server {
	s := &Server{
		housing:      housing,
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(housing, logger),
		pageHandlers: handlers.NewPageHandlers(housing, logger),
		sseHandlers:  handlers.NewSSEHandlers(housing, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Pages
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleIndex)
	s.mux.HandleFunc("GET /charts/{name}", s.pageHandlers.HandleChart)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/charts", s.apiHandlers.HandleCharts)
	s.mux.HandleFunc("GET /api/charts/{name}", s.apiHandlers.HandleChart)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/charts/{name}", s.sseHandlers.HandleChartRefresh)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
