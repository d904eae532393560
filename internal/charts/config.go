// Package charts turns aggregation results into chart descriptions and
// renders them as SVG.
package charts

import (
	"github.com/dvloznov/coffee-dashboard/internal/analytics"
)

// Kind is the visual form of a chart.
type Kind string

const (
	Bar        Kind = "bar"
	HBar       Kind = "hbar"
	StackedBar Kind = "stacked_bar"
	Line       Kind = "line"
	Pie        Kind = "pie"
	KPI        Kind = "kpi"
)

// Valid reports whether k is a known chart kind.
func (k Kind) Valid() bool {
	switch k {
	case Bar, HBar, StackedBar, Line, Pie, KPI:
		return true
	}
	return false
}

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Point is one labelled value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a named run of points sharing the config's categories.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"data"`
	Color  string  `json:"color"`
}

// Config is a renderer-independent chart description. API clients get it
// as JSON; RenderSVG draws it.
type Config struct {
	Kind       Kind     `json:"chartType"`
	Title      string   `json:"title"`
	XLabel     string   `json:"xAxis,omitempty"`
	YLabel     string   `json:"yAxis,omitempty"`
	Measure    string   `json:"measure,omitempty"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
	ShowLegend bool     `json:"showLegend"`
	ShowGrid   bool     `json:"showGrid"`
}

// Empty reports whether the chart has nothing to draw.
func (c *Config) Empty() bool {
	if c == nil || len(c.Categories) == 0 {
		return true
	}
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Total sums every point of every series.
func (c *Config) Total() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, s := range c.Series {
		for _, p := range s.Points {
			total += p.Value
		}
	}
	return total
}

// BuildConfig produces a chart description from an aggregation result.
// Two-dimension results become one series per second key; a nil or empty
// result gives a config with no categories.
func BuildConfig(title, xLabel, yLabel string, kind Kind, res *analytics.Result) *Config {
	if !kind.Valid() {
		kind = Bar
	}

	cfg := &Config{
		Kind:       kind,
		Title:      title,
		XLabel:     xLabel,
		YLabel:     yLabel,
		Categories: []string{},
		Series:     []Series{},
		ShowGrid:   kind != Pie && kind != KPI,
	}
	if res == nil {
		return cfg
	}
	cfg.Measure = res.Measure

	seriesName := yLabel
	if seriesName == "" {
		seriesName = "Value"
	}

	if kind == KPI {
		cfg.Categories = []string{title}
		cfg.Series = []Series{{
			Name:   seriesName,
			Points: []Point{{Label: title, Value: analytics.RoundTo2(res.Total())}},
			Color:  defaultColors[0],
		}}
		return cfg
	}

	pv := res.Pivot(seriesName)
	cfg.Categories = pv.Categories
	for i, s := range pv.Series {
		points := make([]Point, len(pv.Categories))
		for j, cat := range pv.Categories {
			points[j] = Point{Label: cat, Value: analytics.RoundTo2(s.Values[j])}
		}
		cfg.Series = append(cfg.Series, Series{
			Name:   s.Name,
			Points: points,
			Color:  defaultColors[i%len(defaultColors)],
		})
	}
	cfg.ShowLegend = kind == Pie || len(cfg.Series) > 1
	return cfg
}

// Colors returns n palette colors, cycling when n exceeds the palette.
func Colors(n int) []string {
	colors := make([]string, n)
	for i := 0; i < n; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
