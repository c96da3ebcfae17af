package interchange

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withField(schema *arrow.Schema, i int, fld arrow.Field) *arrow.Schema {
	fields := schema.Fields()
	fields[i] = fld
	return arrow.NewSchema(fields, nil)
}

func TestConform(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	batches := penguinBatches(t, mem)
	defer release(batches)

	src, err := FromRecords(batches)
	require.NoError(t, err)
	src.SetAllocator(mem)
	defer src.Release()

	target := withField(penguinSchema, 1, arrow.Field{Name: "flipper_length_mm", Type: arrow.PrimitiveTypes.Int64, Nullable: true})

	out, err := src.Conform(target)
	require.NoError(t, err)
	defer out.Release()

	assert.True(t, out.Schema().Equal(target))
	recs := out.Records()
	defer release(recs)
	require.Len(t, recs, 2)

	for i, rec := range recs {
		assert.Same(t, batches[i].Column(0), rec.Column(0), "equal-typed column is shared")
		assert.Same(t, batches[i].Column(2), rec.Column(2), "equal-typed column is shared")

		flipper := rec.Column(1)
		require.Equal(t, arrow.INT64, flipper.DataType().ID())
		assert.Equal(t, batches[i].Column(1).NullN(), flipper.NullN())
	}
	assert.Equal(t, int64(181), recs[0].Column(1).(*array.Int64).Value(0))
}

func TestConform_Errors(t *testing.T) {
	batches := penguinBatches(t, memory.DefaultAllocator)
	defer release(batches)

	src, err := FromRecords(batches)
	require.NoError(t, err)
	defer src.Release()

	tests := []struct {
		name   string
		schema *arrow.Schema
	}{
		{
			name:   "fewer columns",
			schema: arrow.NewSchema(penguinSchema.Fields()[:3], nil),
		},
		{
			name:   "renamed column",
			schema: withField(penguinSchema, 2, arrow.Field{Name: "mass", Type: arrow.PrimitiveTypes.Int64, Nullable: true}),
		},
		{
			name:   "unparsable cast",
			schema: withField(penguinSchema, 0, arrow.Field{Name: "species", Type: arrow.PrimitiveTypes.Int64, Nullable: true}),
		},
		{
			name:   "lossy cast",
			schema: withField(penguinSchema, 3, arrow.Field{Name: "bill_depth_mm", Type: arrow.PrimitiveTypes.Int32, Nullable: true}),
		},
		{
			name:   "nulls into non-nullable",
			schema: withField(penguinSchema, 2, arrow.Field{Name: "body_mass_g", Type: arrow.PrimitiveTypes.Int64}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Conform(tt.schema)
			assert.ErrorIs(t, err, ErrIncompatibleSchema)
		})
	}
}

func TestConform_StringNumbers(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "used", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)
	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema, strings.NewReader(`[{"used": "1048576"}, {"used": null}]`))
	require.NoError(t, err)
	defer rec.Release()

	src, err := FromRecords([]arrow.Record{rec})
	require.NoError(t, err)
	defer src.Release()

	target := arrow.NewSchema([]arrow.Field{{Name: "used", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)
	out, err := src.Conform(target)
	require.NoError(t, err)
	defer out.Release()

	recs := out.Records()
	defer release(recs)
	assert.Equal(t, int64(1048576), recs[0].Column(0).(*array.Int64).Value(0))
	assert.True(t, recs[0].Column(0).IsNull(1))
}
