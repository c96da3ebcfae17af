package plot

import (
	"fmt"
	"image/color"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/leapstack-labs/leapframe/pkg/frame"
)

// DefaultTimeLayouts parse clock times with optional fractional seconds and
// full RFC 3339 timestamps.
var DefaultTimeLayouts = []string{"15:04:05", time.RFC3339Nano}

// TimeSeries describes a line chart of a numeric column over a column of
// time strings.
type TimeSeries struct {
	X string
	Y string

	Title  string
	XTitle string
	YTitle string

	// TimeLayouts are tried in order to parse X. Empty uses DefaultTimeLayouts.
	TimeLayouts []string
	// TickFormat formats X tick labels. Empty means "15:04:05".
	TickFormat string
	// Color of the line. Nil means blue.
	Color color.Color
}

// Plot builds the chart. Rows with a null in X or Y are skipped; an X that
// matches no layout fails.
func (ts TimeSeries) Plot(f *frame.Frame) (*gonumplot.Plot, error) {
	times, err := f.Column(ts.X)
	if err != nil {
		return nil, err
	}
	ys, err := numericColumn(f, ts.Y)
	if err != nil {
		return nil, err
	}

	layouts := ts.TimeLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	var pts plotter.XYs
	for i := 0; i < times.Len(); i++ {
		y, ok := frame.Float64At(ys, i)
		if !ok || times.IsNull(i) {
			continue
		}
		at, err := parseTime(times.ValueStr(i), layouts)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", ts.X, i, err)
		}
		pts = append(pts, plotter.XY{X: at, Y: y})
	}
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}

	p := gonumplot.New()
	p.Title.Text = ts.Title
	p.X.Label.Text = axisTitle(ts.XTitle, ts.X)
	p.Y.Label.Text = axisTitle(ts.YTitle, ts.Y)

	format := ts.TickFormat
	if format == "" {
		format = "15:04:05"
	}
	p.X.Tick.Marker = gonumplot.TimeTicks{Format: format}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = ts.Color
	if line.LineStyle.Color == nil {
		line.LineStyle.Color = color.RGBA{R: 65, G: 105, B: 225, A: 255}
	}
	p.Add(line)
	return p, nil
}

// parseTime returns Unix seconds. A clock time without a date is placed on
// 1970-01-01 UTC so tick labels show it unchanged.
func parseTime(s string, layouts []string) (float64, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(1970, 0, 0)
		}
		return float64(t.UnixNano()) / float64(time.Second), nil
	}
	return 0, fmt.Errorf("unrecognized time %q: %w", s, firstErr)
}

func numericColumn(f *frame.Frame, name string) (arrow.Array, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	switch col.DataType().ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return col, nil
	default:
		return nil, fmt.Errorf("column %q has non-numeric type %s", name, col.DataType())
	}
}
