package frame

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Select returns a Frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		idx, err := f.index(name)
		if err != nil {
			return nil, err
		}
		fields[i] = f.rec.Schema().Field(idx)
		cols[i] = f.rec.Column(idx)
	}
	return f.project(fields, cols, f.NumRows()), nil
}

// Drop returns a Frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := f.index(name); err != nil {
			return nil, err
		}
		drop[name] = true
	}

	var (
		fields []arrow.Field
		cols   []arrow.Array
	)
	for i, fld := range f.rec.Schema().Fields() {
		if drop[fld.Name] {
			continue
		}
		fields = append(fields, fld)
		cols = append(cols, f.rec.Column(i))
	}
	return f.project(fields, cols, f.NumRows()), nil
}

// DropNulls returns a Frame without the rows holding a null in any of the
// named columns. With no names every column is checked.
func (f *Frame) DropNulls(names ...string) (*Frame, error) {
	if len(names) == 0 {
		names = f.Columns()
	}

	checked := make([]arrow.Array, len(names))
	for i, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		checked[i] = col
	}

	return f.Where(func(row int) bool {
		for _, c := range checked {
			if c.IsNull(row) {
				return false
			}
		}
		return true
	})
}

// Cast returns a Frame with the named column converted to typ. The cast is
// safe: overflow, truncation and unparsable strings fail.
func (f *Frame) Cast(name string, typ arrow.DataType) (*Frame, error) {
	idx, err := f.index(name)
	if err != nil {
		return nil, err
	}

	src := f.rec.Column(idx)
	if arrow.TypeEqual(src.DataType(), typ) {
		f.rec.Retain()
		return wrap(f.rec, f.mem), nil
	}

	ctx := compute.WithAllocator(context.Background(), f.mem)
	out, err := compute.CastArray(ctx, src, compute.SafeCastOptions(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to cast %q to %s: %w", name, typ, err)
	}
	defer out.Release()

	return f.replace(idx, name, out), nil
}

// WithRowIndex returns a Frame with a leading uint32 column counting rows from 0.
func (f *Frame) WithRowIndex(name string) (*Frame, error) {
	if idx := f.rec.Schema().FieldIndices(name); len(idx) > 0 {
		return nil, fmt.Errorf("column %q already exists", name)
	}

	b := array.NewUint32Builder(f.mem)
	defer b.Release()
	b.Reserve(int(f.NumRows()))
	for i := int64(0); i < f.NumRows(); i++ {
		b.UnsafeAppend(uint32(i))
	}
	index := b.NewArray()
	defer index.Release()

	fields := append([]arrow.Field{{Name: name, Type: arrow.PrimitiveTypes.Uint32}}, f.rec.Schema().Fields()...)
	cols := append([]arrow.Array{index}, f.rec.Columns()...)
	return f.project(fields, cols, f.NumRows()), nil
}

// Slice returns the rows [offset, offset+n) without copying. Bounds are
// clamped to the frame; a negative n selects through the last row.
func (f *Frame) Slice(offset, n int64) *Frame {
	rows := f.NumRows()
	offset = max(0, min(offset, rows))
	end := rows
	if n >= 0 {
		end = min(rows, offset+n)
	}
	return wrap(f.rec.NewSlice(offset, end), f.mem)
}

// Filter returns the rows where mask is true. Null mask slots drop the row.
func (f *Frame) Filter(mask *array.Boolean) (*Frame, error) {
	if int64(mask.Len()) != f.NumRows() {
		return nil, fmt.Errorf("mask of %d rows for %d rows: %w", mask.Len(), f.NumRows(), ErrLengthMismatch)
	}

	ctx := compute.WithAllocator(context.Background(), f.mem)
	out, err := compute.FilterRecordBatch(ctx, f.rec, mask, compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to filter rows: %w", err)
	}
	return wrap(out, f.mem), nil
}

// Where returns the rows for which keep returns true.
func (f *Frame) Where(keep func(row int) bool) (*Frame, error) {
	mask := buildMask(f.mem, int(f.NumRows()), keep)
	defer mask.Release()
	return f.Filter(mask)
}

// WhereColumn returns the rows whose value in the named column satisfies pred.
// pred receives the column and the row index; null slots are passed too.
func (f *Frame) WhereColumn(name string, pred func(col arrow.Array, row int) bool) (*Frame, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return f.Where(func(row int) bool { return pred(col, row) })
}

// InRange returns the rows whose numeric value in the named column lies in
// [lo, hi). Nulls are dropped.
func (f *Frame) InRange(name string, lo, hi float64) (*Frame, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if !isNumeric(col.DataType()) {
		return nil, fmt.Errorf("column %q has non-numeric type %s", name, col.DataType())
	}
	return f.Where(func(row int) bool {
		v, ok := Float64At(col, row)
		return ok && v >= lo && v < hi
	})
}

// WithColumn returns a Frame with arr stored under name, replacing an
// existing column in place or appending a new one.
func (f *Frame) WithColumn(name string, arr arrow.Array) (*Frame, error) {
	if int64(arr.Len()) != f.NumRows() {
		return nil, fmt.Errorf("column %q: %w", name, ErrLengthMismatch)
	}

	if idx := f.rec.Schema().FieldIndices(name); len(idx) > 0 {
		return f.replace(idx[0], name, arr), nil
	}

	fields := append(f.rec.Schema().Fields(), arrow.Field{Name: name, Type: arr.DataType(), Nullable: true})
	cols := append(f.rec.Columns()[:f.NumCols():f.NumCols()], arr)
	return f.project(fields, cols, f.NumRows()), nil
}

func (f *Frame) replace(idx int, name string, arr arrow.Array) *Frame {
	fields := f.rec.Schema().Fields()
	fields[idx] = arrow.Field{Name: name, Type: arr.DataType(), Nullable: true, Metadata: fields[idx].Metadata}

	cols := make([]arrow.Array, f.NumCols())
	copy(cols, f.rec.Columns())
	cols[idx] = arr
	return f.project(fields, cols, f.NumRows())
}

// Concat stacks frames vertically. All frames must have the same column
// names and types in the same order.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}

	first := frames[0]
	for i, fr := range frames[1:] {
		if err := sameColumns(first.Schema(), fr.Schema()); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
	}

	mem := first.mem
	n := first.NumCols()
	cols := make([]arrow.Array, n)
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	var rows int64
	for _, fr := range frames {
		rows += fr.NumRows()
	}

	fields := make([]arrow.Field, n)
	for c := 0; c < n; c++ {
		parts := make([]arrow.Array, len(frames))
		nullable := false
		for i, fr := range frames {
			parts[i] = fr.rec.Column(c)
			nullable = nullable || fr.Schema().Field(c).Nullable
		}
		out, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate column %q: %w", first.rec.ColumnName(c), err)
		}
		cols[c] = out
		fields[c] = arrow.Field{Name: first.rec.ColumnName(c), Type: out.DataType(), Nullable: nullable}
	}

	meta := first.Schema().Metadata()
	rec := array.NewRecord(arrow.NewSchema(fields, &meta), cols, rows)
	return wrap(rec, mem), nil
}

func sameColumns(a, b *arrow.Schema) error {
	if a.NumFields() != b.NumFields() {
		return fmt.Errorf("%d columns vs %d: %w", a.NumFields(), b.NumFields(), ErrSchemaMismatch)
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || !arrow.TypeEqual(fa.Type, fb.Type) {
			return fmt.Errorf("column %d is %s %s vs %s %s: %w", i, fa.Name, fa.Type, fb.Name, fb.Type, ErrSchemaMismatch)
		}
	}
	return nil
}

func buildMask(mem memory.Allocator, n int, keep func(int) bool) *array.Boolean {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		b.UnsafeAppend(keep(i))
	}
	return b.NewBooleanArray()
}
