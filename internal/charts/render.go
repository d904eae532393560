package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default SVG size in points.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// RenderOptions tune label formatting.
type RenderOptions struct {
	Currency string
}

// RenderSVG draws cfg as an SVG document. Empty charts render as a titled
// frame with a "No data" label.
func RenderSVG(w io.Writer, cfg *Config, width, height vg.Length, opts RenderOptions) error {
	if cfg == nil {
		return fmt.Errorf("RenderSVG: nil config")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = cfg.XLabel
	p.Y.Label.Text = cfg.YLabel

	var err error
	switch {
	case cfg.Empty():
		err = addNoData(p)
	case cfg.Kind == Bar || cfg.Kind == StackedBar:
		err = addBars(p, cfg, width, false, opts)
	case cfg.Kind == HBar:
		err = addBars(p, cfg, height, true, opts)
	case cfg.Kind == Line:
		err = addLines(p, cfg)
	case cfg.Kind == Pie:
		addPie(p, cfg)
	case cfg.Kind == KPI:
		err = addKPI(p, cfg, opts)
	default:
		err = fmt.Errorf("unknown chart kind %q", cfg.Kind)
	}
	if err != nil {
		return fmt.Errorf("RenderSVG: %s: %w", cfg.Title, err)
	}

	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return fmt.Errorf("RenderSVG: create writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("RenderSVG: write svg: %w", err)
	}
	return nil
}

func addNoData(p *plot.Plot) error {
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{"No data"},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].XAlign = draw.XCenter
	labels.TextStyle[0].YAlign = draw.YCenter
	labels.TextStyle[0].Color = color.Gray{Y: 128}
	p.Add(labels)
	return nil
}

func addBars(p *plot.Plot, cfg *Config, span vg.Length, horizontal bool, opts RenderOptions) error {
	n := len(cfg.Categories)
	slots := n
	if cfg.Kind != StackedBar {
		slots = n * len(cfg.Series)
	}
	barWidth := span * 0.6 / vg.Length(slots+1)
	if barWidth > vg.Points(40) {
		barWidth = vg.Points(40)
	}
	if barWidth < vg.Points(2) {
		barWidth = vg.Points(2)
	}

	if cfg.ShowGrid {
		p.Add(plotter.NewGrid())
	}

	var below *plotter.BarChart
	for i, s := range cfg.Series {
		values := make(plotter.Values, len(s.Points))
		for j, pt := range s.Points {
			values[j] = pt.Value
		}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return err
		}
		bars.Color = parseColor(s.Color)
		bars.LineStyle.Width = vg.Length(0)
		bars.Horizontal = horizontal

		switch {
		case cfg.Kind == StackedBar && below != nil:
			bars.StackOn(below)
		case cfg.Kind != StackedBar && len(cfg.Series) > 1:
			bars.Offset = vg.Length(float64(i)-float64(len(cfg.Series)-1)/2) * barWidth
		}
		below = bars

		p.Add(bars)
		if cfg.ShowLegend {
			p.Legend.Add(s.Name, bars)
		}
	}

	if horizontal {
		p.NominalY(cfg.Categories...)
	} else {
		p.NominalX(cfg.Categories...)
		if n > 6 {
			p.X.Tick.Label.Rotation = math.Pi / 4
			p.X.Tick.Label.XAlign = draw.XRight
			p.X.Tick.Label.YAlign = draw.YCenter
		}
	}
	p.Legend.Top = true

	if len(cfg.Series) == 1 {
		return addValueLabels(p, cfg, horizontal, opts)
	}
	return nil
}

// addValueLabels writes each bar's value at its tip.
func addValueLabels(p *plot.Plot, cfg *Config, horizontal bool, opts RenderOptions) error {
	s := cfg.Series[0]
	xys := make([]plotter.XY, len(s.Points))
	text := make([]string, len(s.Points))
	for i, pt := range s.Points {
		if horizontal {
			xys[i] = plotter.XY{X: pt.Value, Y: float64(i)}
		} else {
			xys[i] = plotter.XY{X: float64(i), Y: pt.Value}
		}
		text[i] = FormatValue(pt.Value, cfg.Measure, opts.Currency)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(8)
		if horizontal {
			labels.TextStyle[i].YAlign = draw.YCenter
		} else {
			labels.TextStyle[i].XAlign = draw.XCenter
		}
	}
	if horizontal {
		labels.Offset = vg.Point{X: vg.Points(3)}
	} else {
		labels.Offset = vg.Point{Y: vg.Points(2)}
	}
	p.Add(labels)
	return nil
}

func addLines(p *plot.Plot, cfg *Config) error {
	if cfg.ShowGrid {
		p.Add(plotter.NewGrid())
	}
	for _, s := range cfg.Series {
		xys := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			xys[i] = plotter.XY{X: float64(i), Y: pt.Value}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		c := parseColor(s.Color)
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(3)

		p.Add(line, points)
		if cfg.ShowLegend {
			p.Legend.Add(s.Name, line, points)
		}
	}
	p.NominalX(cfg.Categories...)
	if len(cfg.Categories) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Min = math.Min(p.Y.Min, 0)
	return nil
}

func addKPI(p *plot.Plot, cfg *Config, opts RenderOptions) error {
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{FormatValue(cfg.Total(), cfg.Measure, opts.Currency)},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].Font.Size = vg.Points(32)
	labels.TextStyle[0].XAlign = draw.XCenter
	labels.TextStyle[0].YAlign = draw.YCenter
	p.Add(labels)
	return nil
}

// parseColor parses "#RRGGBB", falling back to black.
func parseColor(hex string) color.Color {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
