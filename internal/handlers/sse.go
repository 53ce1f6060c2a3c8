package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"housing-map/internal/services"
	"housing-map/internal/ui/templates"
)

var statusTemplate = template.Must(template.New("status").Parse(
	`<div id="{{.ID}}">{{.Title}}: {{.Frames}} frame(s), {{.Regions}} region(s), built {{.BuiltAt}}</div>`))

type SSEHandlers struct {
	housing *services.Housing
	logger  *slog.Logger
}

func NewSSEHandlers(housing *services.Housing, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		housing: housing,
		logger:  logger,
	}
}

type statusData struct {
	ID      string
	Title   string
	Frames  int
	Regions int
	BuiltAt string
}

func (h *SSEHandlers) renderStatus(info services.ChartInfo) (string, error) {
	var buf strings.Builder
	err := statusTemplate.Execute(&buf, statusData{
		ID:      templates.StatusElementID,
		Title:   info.Title,
		Frames:  info.Frames,
		Regions: info.Regions,
		BuiltAt: info.BuiltAt.Format(time.RFC3339),
	})
	return buf.String(), err
}

func (h *SSEHandlers) chartInfo(name string) (services.ChartInfo, bool) {
	for _, c := range h.housing.Charts() {
		if c.Name == name {
			return c, true
		}
	}
	return services.ChartInfo{}, false
}

// HandleChartRefresh rebuilds both charts from the input file and streams the
// requested figure back as a signal, followed by an updated status line.
func (h *SSEHandlers) HandleChartRefresh(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	sse := datastar.NewSSE(w, r)

	if err := h.housing.Refresh(r.Context()); err != nil {
		h.logger.Error("refresh charts", "chart", name, "error", err)
		sse.PatchElements(fmt.Sprintf(`<div id="%s">Refresh failed: %s</div>`,
			templates.StatusElementID, template.HTMLEscapeString(err.Error())))
		return
	}

	fig, err := h.housing.Figure(name)
	if err != nil {
		sse.PatchElements(fmt.Sprintf(`<div id="%s">Unknown chart %s</div>`,
			templates.StatusElementID, template.HTMLEscapeString(name)))
		return
	}

	figJSON, err := json.Marshal(fig)
	if err != nil {
		h.logger.Error("marshal figure", "chart", name, "error", err)
		return
	}
	signals, err := json.Marshal(map[string]any{
		"figure": string(figJSON),
	})
	if err != nil {
		h.logger.Error("marshal figure signal", "chart", name, "error", err)
		return
	}
	sse.PatchSignals(signals)

	if info, ok := h.chartInfo(name); ok {
		html, err := h.renderStatus(info)
		if err != nil {
			h.logger.Error("render status", "chart", name, "error", err)
			return
		}
		sse.PatchElements(html)
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
