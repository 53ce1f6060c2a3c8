package chart

import "time"

// Option configures a figure builder.
type Option func(*Options)

// Animation holds the timing used by the play control and the period slider.
type Animation struct {
	FrameDuration      time.Duration
	TransitionDuration time.Duration
}

type Options struct {
	Width        int
	Height       int
	Scope        string
	LocationMode string
	ColorScale   string
	ShowLakes    bool
	LakeColor    string
	RegionLabel  string
	MeasureLabel string
	Title        string
	Animation    Animation
}

func defaultOptions() Options {
	return Options{
		Width:        1000,
		Height:       600,
		Scope:        "usa",
		LocationMode: "USA-states",
		ColorScale:   "Viridis",
		ShowLakes:    true,
		LakeColor:    "rgb(255, 255, 255)",
		RegionLabel:  "StateName",
		MeasureLabel: "Number of Houses Sold",
		Animation: Animation{
			FrameDuration:      500 * time.Millisecond,
			TransitionDuration: 100 * time.Millisecond,
		},
	}
}

func WithSize(width, height int) Option {
	return func(o *Options) {
		o.Width = width
		o.Height = height
	}
}

// WithGeo sets the map scope (e.g. "usa") and how locations are matched (e.g. "USA-states").
func WithGeo(scope, locationMode string) Option {
	return func(o *Options) {
		o.Scope = scope
		o.LocationMode = locationMode
	}
}

func WithColorScale(scale string) Option {
	return func(o *Options) {
		o.ColorScale = scale
	}
}

func WithLakes(show bool, color string) Option {
	return func(o *Options) {
		o.ShowLakes = show
		o.LakeColor = color
	}
}

func WithLabels(region, measure string) Option {
	return func(o *Options) {
		o.RegionLabel = region
		o.MeasureLabel = measure
	}
}

// WithTitle overrides the generated figure title.
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

func WithAnimation(a Animation) Option {
	return func(o *Options) {
		o.Animation = a
	}
}

func applyOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
