package interchange

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
)

// Conform rebinds the table to schema. Columns are matched by position and
// must carry the same names. A column whose type already equals the target
// is shared; any other is rebuilt with a safe cast.
func (t *Interchange) Conform(schema *arrow.Schema) (*Interchange, error) {
	if t.schema.NumFields() != schema.NumFields() {
		return nil, fmt.Errorf("%d columns for %d target columns: %w",
			t.schema.NumFields(), schema.NumFields(), ErrIncompatibleSchema)
	}
	for i := 0; i < schema.NumFields(); i++ {
		if got, want := t.schema.Field(i).Name, schema.Field(i).Name; got != want {
			return nil, fmt.Errorf("column %d is %q, want %q: %w", i, got, want, ErrIncompatibleSchema)
		}
	}

	ctx := compute.WithAllocator(context.Background(), t.mem)
	out := make([]arrow.Record, 0, len(t.batches))
	for _, rec := range t.batches {
		conformed, err := conformRecord(ctx, rec, schema)
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, conformed)
	}

	return &Interchange{schema: schema, batches: out, mem: t.mem}, nil
}

func conformRecord(ctx context.Context, rec arrow.Record, schema *arrow.Schema) (arrow.Record, error) {
	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, fld := range schema.Fields() {
		src := rec.Column(i)
		if !fld.Nullable && src.NullN() > 0 {
			return nil, fmt.Errorf("column %q has %d nulls but the target is not nullable: %w",
				fld.Name, src.NullN(), ErrIncompatibleSchema)
		}

		if arrow.TypeEqual(src.DataType(), fld.Type) {
			src.Retain()
			cols[i] = src
			continue
		}

		cast, err := compute.CastArray(ctx, src, compute.SafeCastOptions(fld.Type))
		if err != nil {
			return nil, fmt.Errorf("column %q: cannot cast %s to %s: %w: %w",
				fld.Name, src.DataType(), fld.Type, ErrIncompatibleSchema, err)
		}
		cols[i] = cast
	}

	return array.NewRecord(schema, cols, rec.NumRows()), nil
}
