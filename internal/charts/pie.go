package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// pieChart is a plot.Plotter drawing one wedge per value, clockwise from
// twelve o'clock, each labelled with its share of the total.
type pieChart struct {
	values    []float64
	colors    []color.Color
	textStyle text.Style
}

func addPie(p *plot.Plot, cfg *Config) {
	p.HideAxes()
	s := cfg.Series[0]

	pc := &pieChart{
		values:    make([]float64, len(s.Points)),
		colors:    make([]color.Color, len(s.Points)),
		textStyle: p.Legend.TextStyle,
	}
	pc.textStyle.Font.Size = vg.Points(9)
	pc.textStyle.Color = color.White
	pc.textStyle.XAlign = draw.XCenter
	pc.textStyle.YAlign = draw.YCenter

	palette := Colors(len(s.Points))
	for i, pt := range s.Points {
		pc.values[i] = pt.Value
		pc.colors[i] = parseColor(palette[i])
		p.Legend.Add(pt.Label, wedgeThumb{color: pc.colors[i]})
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Add(pc)
}

// Plot implements plot.Plotter.
func (pc *pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	var total float64
	for _, v := range pc.values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return
	}

	size := c.Size()
	radius := vg.Length(math.Min(float64(size.X), float64(size.Y))) * 0.45
	center := vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: (c.Min.Y + c.Max.Y) / 2}

	start := math.Pi / 2
	for i, v := range pc.values {
		if v <= 0 {
			continue
		}
		sweep := 2 * math.Pi * v / total

		var path vg.Path
		path.Move(center)
		path.Arc(center, radius, start, -sweep)
		path.Close()
		c.SetColor(pc.colors[i])
		c.Fill(path)

		share := v / total
		if share >= 0.03 {
			mid := start - sweep/2
			at := vg.Point{
				X: center.X + radius*0.65*vg.Length(math.Cos(mid)),
				Y: center.Y + radius*0.65*vg.Length(math.Sin(mid)),
			}
			c.FillText(pc.textStyle, at, fmt.Sprintf("%.1f%%", share*100))
		}
		start -= sweep
	}
}

// wedgeThumb is the legend swatch for a pie wedge.
type wedgeThumb struct {
	color color.Color
}

// Thumbnail implements plot.Thumbnailer.
func (w wedgeThumb) Thumbnail(c *draw.Canvas) {
	c.SetColor(w.color)
	c.Fill(c.Rectangle.Path())
}
