// Package plot renders frames as charts with gonum/plot and writes them as
// standalone HTML pages with the chart inlined as SVG.
package plot

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/apache/arrow-go/v18/arrow"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/leapstack-labs/leapframe/pkg/frame"
)

// Default page size of a rendered chart.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// ErrNoPoints is returned when no row of a frame can be plotted.
var ErrNoPoints = errors.New("no plottable rows")

// Scatter describes a scatter plot of two numeric columns, optionally split
// into one colored series per distinct value of a group column.
type Scatter struct {
	X     string
	Y     string
	Group string

	// Opacity of the markers in [0, 1]. Zero means fully opaque.
	Opacity float64
	// Size is the marker diameter in points. Zero means 6.
	Size float64
	// Colors are cycled over groups in order of first appearance.
	// Empty uses the plotutil palette.
	Colors []color.Color

	Title       string
	XTitle      string
	YTitle      string
	LegendTitle string
}

// Plot builds the chart. Rows with a null in the X, Y or Group column are skipped.
func (s Scatter) Plot(f *frame.Frame) (*gonumplot.Plot, error) {
	xs, err := numericColumn(f, s.X)
	if err != nil {
		return nil, err
	}
	ys, err := numericColumn(f, s.Y)
	if err != nil {
		return nil, err
	}

	var keys []string
	series := make(map[string]plotter.XYs)
	groupCol, err := s.groupColumn(f)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(f.NumRows()); i++ {
		x, okX := frame.Float64At(xs, i)
		y, okY := frame.Float64At(ys, i)
		if !okX || !okY {
			continue
		}
		key := ""
		if groupCol != nil {
			if groupCol.IsNull(i) {
				continue
			}
			key = groupCol.ValueStr(i)
		}
		if _, seen := series[key]; !seen {
			keys = append(keys, key)
		}
		series[key] = append(series[key], plotter.XY{X: x, Y: y})
	}
	if len(keys) == 0 {
		return nil, ErrNoPoints
	}

	p := gonumplot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = axisTitle(s.XTitle, s.X)
	p.Y.Label.Text = axisTitle(s.YTitle, s.Y)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	if s.LegendTitle != "" && groupCol != nil {
		p.Legend.Add(s.LegendTitle)
	}

	size := s.Size
	if size <= 0 {
		size = 6
	}
	for i, key := range keys {
		sc, err := plotter.NewScatter(series[key])
		if err != nil {
			return nil, fmt.Errorf("failed to build series %q: %w", key, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  withOpacity(s.colorAt(i), s.Opacity),
			Radius: vg.Points(size / 2),
			Shape:  draw.CircleGlyph{},
		}
		p.Add(sc)
		if groupCol != nil {
			p.Legend.Add(key, sc)
		}
	}
	return p, nil
}

func (s Scatter) groupColumn(f *frame.Frame) (arrow.Array, error) {
	if s.Group == "" {
		return nil, nil
	}
	return f.Column(s.Group)
}

func (s Scatter) colorAt(i int) color.Color {
	if len(s.Colors) == 0 {
		return plotutil.Color(i)
	}
	return s.Colors[i%len(s.Colors)]
}

func withOpacity(c color.Color, opacity float64) color.Color {
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*opacity + 0.5)
	return n
}

func axisTitle(title, column string) string {
	if title != "" {
		return title
	}
	return column
}
