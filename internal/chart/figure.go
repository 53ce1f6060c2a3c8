// Package chart builds declarative choropleth figures. The JSON shape follows
// the Plotly.js figure schema (data, layout, frames) so a page can hand a
// Figure straight to Plotly.newPlot.
package chart

type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Frames []Frame `json:"frames,omitempty"`
}

// Trace is a single choropleth layer.
type Trace struct {
	Type          string    `json:"type"`
	Name          string    `json:"name,omitempty"`
	Locations     []string  `json:"locations"`
	Z             []float64 `json:"z"`
	LocationMode  string    `json:"locationmode"`
	ColorAxis     string    `json:"coloraxis"`
	Geo           string    `json:"geo"`
	HoverTemplate string    `json:"hovertemplate"`
}

type Frame struct {
	Name string  `json:"name"`
	Data []Trace `json:"data"`
}

type Layout struct {
	Title       Title        `json:"title"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Geo         Geo          `json:"geo"`
	ColorAxis   ColorAxis    `json:"coloraxis"`
	UpdateMenus []UpdateMenu `json:"updatemenus,omitempty"`
	Sliders     []Slider     `json:"sliders,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

type Geo struct {
	Scope     string `json:"scope"`
	ShowLakes bool   `json:"showlakes"`
	LakeColor string `json:"lakecolor,omitempty"`
}

type ColorAxis struct {
	ColorScale string   `json:"colorscale"`
	CMin       *float64 `json:"cmin,omitempty"`
	CMax       *float64 `json:"cmax,omitempty"`
	ColorBar   ColorBar `json:"colorbar"`
}

type ColorBar struct {
	Title Title `json:"title"`
}

// UpdateMenu is a row of buttons; the series figure carries one with Play and Pause.
type UpdateMenu struct {
	Type       string   `json:"type"`
	ShowActive bool     `json:"showactive"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	XAnchor    string   `json:"xanchor"`
	YAnchor    string   `json:"yanchor"`
	Buttons    []Button `json:"buttons"`
}

// Button calls Method with Args, e.g. Plotly.animate(frames, AnimateArgs).
type Button struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type Slider struct {
	Active       int                `json:"active"`
	X            float64            `json:"x"`
	Y            float64            `json:"y"`
	Len          float64            `json:"len"`
	XAnchor      string             `json:"xanchor"`
	YAnchor      string             `json:"yanchor"`
	CurrentValue SliderCurrentValue `json:"currentvalue"`
	Steps        []SliderStep       `json:"steps"`
}

type SliderCurrentValue struct {
	Prefix  string `json:"prefix"`
	Visible bool   `json:"visible"`
}

type SliderStep struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// AnimateArgs is the options object passed to Plotly.animate.
type AnimateArgs struct {
	Frame       FrameArgs      `json:"frame"`
	Transition  TransitionArgs `json:"transition"`
	Mode        string         `json:"mode"`
	FromCurrent bool           `json:"fromcurrent,omitempty"`
}

type FrameArgs struct {
	Duration int64 `json:"duration"`
	Redraw   bool  `json:"redraw"`
}

type TransitionArgs struct {
	Duration int64 `json:"duration"`
}

// PlayButton returns the first button of the first update menu, if any.
func (f *Figure) PlayButton() (Button, bool) {
	if len(f.Layout.UpdateMenus) == 0 || len(f.Layout.UpdateMenus[0].Buttons) == 0 {
		return Button{}, false
	}
	return f.Layout.UpdateMenus[0].Buttons[0], true
}

// FrameNames lists frame names in animation order.
func (f *Figure) FrameNames() []string {
	names := make([]string, len(f.Frames))
	for i, fr := range f.Frames {
		names[i] = fr.Name
	}
	return names
}
