package export

import (
	"image/color"
	"io"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"housing-map/internal/errors"
	"housing-map/internal/models"
)

var barColor = color.RGBA{R: 68, G: 1, B: 84, A: 255}

// WriteSnapshotPNG renders the snapshot totals as a bar chart, largest region
// first, and writes it to w as PNG.
func WriteSnapshotPNG(w io.Writer, snap *models.Snapshot, measureLabel string) error {
	totals := slices.Clone(snap.Totals)
	slices.SortStableFunc(totals, func(a, b models.RegionTotal) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})

	p := plot.New()
	p.Title.Text = "Housing Sales by State (" + snap.Period + ")"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.Text = measureLabel

	values := make(plotter.Values, len(totals))
	names := make([]string, len(totals))
	for i, t := range totals {
		values[i] = t.Value
		names[i] = t.Region
	}

	if len(values) > 0 {
		bars, err := plotter.NewBarChart(values, vg.Points(12))
		if err != nil {
			return errors.RenderWrap(err, "build bar chart")
		}
		bars.Color = barColor
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalX(names...)
		p.X.Tick.Label.Rotation = math.Pi / 2
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	width := vg.Length(math.Max(8, float64(len(totals))*0.25)) * vg.Inch
	wt, err := p.WriterTo(width, 6*vg.Inch, "png")
	if err != nil {
		return errors.RenderWrap(err, "render png")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.RenderWrap(err, "write png")
	}
	return nil
}
