// Package frame provides an immutable dataframe over a single Arrow record.
//
// Every operation returns a new Frame and leaves its receiver untouched.
// Frames are reference counted like the Arrow values they wrap: each Frame
// returned by this package must be released by its owner.
package frame

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrLengthMismatch is returned when a column's length differs from the frame's row count.
	ErrLengthMismatch = errors.New("column length does not match row count")
	// ErrSchemaMismatch is returned when frames with different columns are combined.
	ErrSchemaMismatch = errors.New("frames have different schemas")
	// ErrNullValue is returned when a null is found where none is allowed.
	ErrNullValue = errors.New("unexpected null value")
	// ErrNoFiles is returned when a scan matches no files.
	ErrNoFiles = errors.New("no files found")
)

// Frame is a table of named, typed columns of equal length.
type Frame struct {
	rec arrow.Record
	mem memory.Allocator
}

// New wraps rec in a Frame. The Frame takes its own reference to rec.
func New(rec arrow.Record) *Frame {
	rec.Retain()
	return &Frame{rec: rec, mem: memory.DefaultAllocator}
}

// wrap takes ownership of rec without retaining it.
func wrap(rec arrow.Record, mem memory.Allocator) *Frame {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Frame{rec: rec, mem: mem}
}

// FromColumns builds a Frame from parallel names and arrays. The Frame takes
// its own references to cols.
func FromColumns(names []string, cols []arrow.Array) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%d names for %d columns", len(names), len(cols))
	}

	fields := make([]arrow.Field, len(cols))
	rows := int64(-1)
	for i, c := range cols {
		if rows >= 0 && int64(c.Len()) != rows {
			return nil, fmt.Errorf("column %q: %w", names[i], ErrLengthMismatch)
		}
		rows = int64(c.Len())
		fields[i] = arrow.Field{Name: names[i], Type: c.DataType(), Nullable: true}
	}
	if rows < 0 {
		rows = 0
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, rows)
	return wrap(rec, nil), nil
}

// Empty returns a Frame with schema and no rows.
func Empty(schema *arrow.Schema) *Frame {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	return wrap(b.NewRecord(), nil)
}

// WithAllocator returns a Frame sharing f's data whose operations allocate from mem.
func (f *Frame) WithAllocator(mem memory.Allocator) *Frame {
	f.rec.Retain()
	return wrap(f.rec, mem)
}

// Record returns the underlying record. The record is borrowed: callers that
// keep it past the Frame's lifetime must retain it.
func (f *Frame) Record() arrow.Record { return f.rec }

// Schema returns the frame's schema.
func (f *Frame) Schema() *arrow.Schema { return f.rec.Schema() }

// NumRows returns the number of rows.
func (f *Frame) NumRows() int64 { return f.rec.NumRows() }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return int(f.rec.NumCols()) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, f.NumCols())
	for i := range names {
		names[i] = f.rec.ColumnName(i)
	}
	return names
}

// Column returns the named column. The array is borrowed from the Frame.
func (f *Frame) Column(name string) (arrow.Array, error) {
	i, err := f.index(name)
	if err != nil {
		return nil, err
	}
	return f.rec.Column(i), nil
}

// Release drops the Frame's reference to its record.
func (f *Frame) Release() {
	if f.rec != nil {
		f.rec.Release()
		f.rec = nil
	}
}

func (f *Frame) index(name string) (int, error) {
	idx := f.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return 0, fmt.Errorf("%q: %w", name, ErrColumnNotFound)
	}
	return idx[0], nil
}

// project builds a Frame from the given fields and columns, retaining each column.
func (f *Frame) project(fields []arrow.Field, cols []arrow.Array, rows int64) *Frame {
	meta := f.rec.Schema().Metadata()
	rec := array.NewRecord(arrow.NewSchema(fields, &meta), cols, rows)
	return wrap(rec, f.mem)
}
