// Package templates renders the viewer pages and the standalone chart files.
package templates

import (
	"strconv"
	"time"
)

const (
	// FigureElementID is the id of the JSON script element holding the figure.
	FigureElementID = "figure"
	// StatusElementID is patched by the reload stream.
	StatusElementID = "chart-status"
)

// reloadAction is the datastar expression that fetches a fresh figure for name.
func reloadAction(name string) string {
	return "@get('/sse/charts/" + name + "')"
}

func builtAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
