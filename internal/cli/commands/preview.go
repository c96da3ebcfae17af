package commands

import (
	"errors"

	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/pkg/frame"
	"github.com/leapstack-labs/leapframe/pkg/interchange"
)

// FramePreview is the JSON form of a frame preview.
type FramePreview struct {
	Rows    int64            `json:"rows"`
	Columns []ColumnOutput   `json:"columns"`
	Head    []map[string]any `json:"head"`
}

// ColumnOutput names a column and its Arrow type.
type ColumnOutput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// renderFrame previews f: a table in text and markdown modes, the schema and
// leading rows in JSON mode. maxRows follows frame.FormatOptions.
func renderFrame(r *output.Renderer, f *frame.Frame, maxRows int) error {
	if r.EffectiveMode() != output.ModeJSON {
		return frame.Format(r.Writer(), f, frame.FormatOptions{
			Markdown: r.EffectiveMode() == output.ModeMarkdown,
			MaxRows:  maxRows,
		})
	}

	preview := FramePreview{Rows: f.NumRows(), Head: []map[string]any{}}
	for _, fld := range f.Schema().Fields() {
		preview.Columns = append(preview.Columns, ColumnOutput{Name: fld.Name, Type: fld.Type.String()})
	}

	n := int64(maxRows)
	if n == 0 {
		n = frame.DefaultMaxRows
	}
	head := f.Slice(0, n)
	defer head.Release()
	if head.NumRows() == 0 {
		return r.JSON(preview)
	}

	rows, err := headRows(head)
	if err != nil {
		return err
	}
	preview.Head = rows
	return r.JSON(preview)
}

// headRows converts f to row maps through go-gota, falling back to the text
// form of each value for columns go-gota cannot hold.
func headRows(f *frame.Frame) ([]map[string]any, error) {
	tbl, err := interchange.FromFrame(f)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	df, err := tbl.DataFrame()
	var unsupported *interchange.UnsupportedTypeError
	switch {
	case err == nil:
		return df.Maps(), nil
	case !errors.As(err, &unsupported):
		return nil, err
	}

	rows := make([]map[string]any, f.NumRows())
	for i := range rows {
		rows[i] = make(map[string]any, f.NumCols())
	}
	for _, name := range f.Columns() {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			if col.IsNull(i) {
				rows[i][name] = nil
				continue
			}
			rows[i][name] = col.ValueStr(i)
		}
	}
	return rows, nil
}
