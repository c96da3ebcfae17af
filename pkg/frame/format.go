package frame

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jedib0t/go-pretty/v6/table"
)

// DefaultMaxRows is the number of rows Format shows before eliding the middle.
const DefaultMaxRows = 10

// FormatOptions controls how Format renders a Frame.
type FormatOptions struct {
	// Markdown renders a GitHub-flavored markdown table instead of box drawing.
	Markdown bool
	// MaxRows caps the rows shown. Zero uses DefaultMaxRows; negative shows all.
	MaxRows int
}

// Format writes a preview of f: a shape line, then a table whose header
// holds each column's name and type. When f has more than MaxRows rows, the
// first and last rows are shown around an ellipsis row.
func Format(w io.Writer, f *Frame, opts FormatOptions) error {
	limit := opts.MaxRows
	if limit == 0 {
		limit = DefaultMaxRows
	}

	if _, err := fmt.Fprintf(w, "shape: (%d, %d)\n", f.NumRows(), f.NumCols()); err != nil {
		return err
	}
	if f.NumCols() == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	names := make(table.Row, f.NumCols())
	types := make(table.Row, f.NumCols())
	for i, fld := range f.Schema().Fields() {
		names[i] = fld.Name
		types[i] = typeLabel(fld.Type)
	}
	t.AppendHeader(names)
	t.AppendHeader(types)

	rows := int(f.NumRows())
	head, tail := rows, 0
	if limit > 0 && rows > limit {
		head = (limit + 1) / 2
		tail = limit - head
	}

	for r := 0; r < head; r++ {
		t.AppendRow(f.row(r))
	}
	if head+tail < rows {
		gap := make(table.Row, f.NumCols())
		for i := range gap {
			gap[i] = "…"
		}
		t.AppendRow(gap)
	}
	for r := rows - tail; r < rows; r++ {
		t.AppendRow(f.row(r))
	}

	var out string
	if opts.Markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// String renders f with the default text options.
func (f *Frame) String() string {
	var sb strings.Builder
	_ = Format(&sb, f, FormatOptions{})
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Frame) row(r int) table.Row {
	row := make(table.Row, f.NumCols())
	for c, col := range f.rec.Columns() {
		if col.IsNull(r) {
			row[c] = "null"
			continue
		}
		row[c] = col.ValueStr(r)
	}
	return row
}

func typeLabel(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "str"
	case arrow.INT8:
		return "i8"
	case arrow.INT16:
		return "i16"
	case arrow.INT32:
		return "i32"
	case arrow.INT64:
		return "i64"
	case arrow.UINT8:
		return "u8"
	case arrow.UINT16:
		return "u16"
	case arrow.UINT32:
		return "u32"
	case arrow.UINT64:
		return "u64"
	case arrow.FLOAT32:
		return "f32"
	case arrow.FLOAT64:
		return "f64"
	case arrow.BOOL:
		return "bool"
	default:
		return dt.String()
	}
}
