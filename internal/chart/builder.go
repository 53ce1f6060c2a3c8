package chart

import (
	"fmt"

	"housing-map/internal/models"
)

const (
	traceType  = "choropleth"
	colorAxis  = "coloraxis"
	geoSubplot = "geo"
)

// BuildSnapshot produces a static choropleth of one period's totals.
func BuildSnapshot(snap *models.Snapshot, opts ...Option) *Figure {
	o := applyOptions(opts)

	locations := make([]string, len(snap.Totals))
	values := make([]float64, len(snap.Totals))
	for i, t := range snap.Totals {
		locations[i] = t.Region
		values[i] = t.Value
	}

	title := o.Title
	if title == "" {
		title = fmt.Sprintf("Housing Sales by State (%s)", snap.Period)
	}

	return &Figure{
		Data:   []Trace{newTrace(o, "", locations, values)},
		Layout: newLayout(o, title),
	}
}

// BuildSeries produces an animated choropleth with one frame per period, in
// the order periods first appear in the series.
func BuildSeries(series *models.Series, opts ...Option) *Figure {
	o := applyOptions(opts)

	order, byPeriod := groupByPeriod(series)

	title := o.Title
	if title == "" {
		title = "Housing Sales by State Over Time"
	}

	fig := &Figure{Layout: newLayout(o, title)}

	if len(order) == 0 {
		fig.Data = []Trace{newTrace(o, "", []string{}, []float64{})}
		return fig
	}

	fig.Frames = make([]Frame, 0, len(order))
	for _, period := range order {
		points := byPeriod[period]
		locations := make([]string, len(points))
		values := make([]float64, len(points))
		for i, p := range points {
			locations[i] = p.Region
			values[i] = p.Value
		}
		fig.Frames = append(fig.Frames, Frame{
			Name: period,
			Data: []Trace{newTrace(o, period, locations, values)},
		})
	}

	fig.Data = fig.Frames[0].Data

	if lo, hi, ok := valueRange(series.Points); ok {
		fig.Layout.ColorAxis.CMin = &lo
		fig.Layout.ColorAxis.CMax = &hi
	}

	fig.Layout.UpdateMenus = []UpdateMenu{playMenu(o.Animation)}
	fig.Layout.Sliders = []Slider{periodSlider(order, o.Animation)}

	return fig
}

func groupByPeriod(series *models.Series) ([]string, map[string][]models.SeriesPoint) {
	var order []string
	byPeriod := make(map[string][]models.SeriesPoint)
	for _, p := range series.Points {
		if _, seen := byPeriod[p.Period]; !seen {
			order = append(order, p.Period)
		}
		byPeriod[p.Period] = append(byPeriod[p.Period], p)
	}
	return order, byPeriod
}

func newTrace(o Options, name string, locations []string, values []float64) Trace {
	return Trace{
		Type:          traceType,
		Name:          name,
		Locations:     locations,
		Z:             values,
		LocationMode:  o.LocationMode,
		ColorAxis:     colorAxis,
		Geo:           geoSubplot,
		HoverTemplate: fmt.Sprintf("%s=%%{location}<br>%s=%%{z}<extra></extra>", o.RegionLabel, o.MeasureLabel),
	}
}

func newLayout(o Options, title string) Layout {
	return Layout{
		Title:  Title{Text: title},
		Width:  o.Width,
		Height: o.Height,
		Geo: Geo{
			Scope:     o.Scope,
			ShowLakes: o.ShowLakes,
			LakeColor: o.LakeColor,
		},
		ColorAxis: ColorAxis{
			ColorScale: o.ColorScale,
			ColorBar:   ColorBar{Title: Title{Text: o.MeasureLabel}},
		},
	}
}

func animateArgs(a Animation, fromCurrent bool) AnimateArgs {
	return AnimateArgs{
		Frame:       FrameArgs{Duration: a.FrameDuration.Milliseconds(), Redraw: true},
		Transition:  TransitionArgs{Duration: a.TransitionDuration.Milliseconds()},
		Mode:        "immediate",
		FromCurrent: fromCurrent,
	}
}

func playMenu(a Animation) UpdateMenu {
	pause := AnimateArgs{
		Frame:      FrameArgs{Duration: 0, Redraw: false},
		Transition: TransitionArgs{Duration: 0},
		Mode:       "immediate",
	}
	return UpdateMenu{
		Type:       "buttons",
		ShowActive: false,
		X:          0.1,
		Y:          0,
		XAnchor:    "right",
		YAnchor:    "top",
		Buttons: []Button{
			{Label: "Play", Method: "animate", Args: []any{nil, animateArgs(a, true)}},
			{Label: "Pause", Method: "animate", Args: []any{[]any{nil}, pause}},
		},
	}
}

func periodSlider(periods []string, a Animation) Slider {
	steps := make([]SliderStep, len(periods))
	for i, p := range periods {
		steps[i] = SliderStep{
			Label:  p,
			Method: "animate",
			Args:   []any{[]string{p}, animateArgs(a, false)},
		}
	}
	return Slider{
		Active:       0,
		X:            0.1,
		Y:            0,
		Len:          0.9,
		XAnchor:      "left",
		YAnchor:      "top",
		CurrentValue: SliderCurrentValue{Prefix: "Date=", Visible: true},
		Steps:        steps,
	}
}

func valueRange(points []models.SeriesPoint) (lo, hi float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	lo, hi = points[0].Value, points[0].Value
	for _, p := range points[1:] {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	return lo, hi, true
}
