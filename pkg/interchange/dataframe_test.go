package interchange

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFrame(t *testing.T) {
	batches := penguinBatches(t, memory.DefaultAllocator)
	defer release(batches)

	tbl, err := FromRecords(batches)
	require.NoError(t, err)
	defer tbl.Release()

	df, err := tbl.DataFrame()
	require.NoError(t, err)

	assert.Equal(t, []string{"species", "flipper_length_mm", "body_mass_g", "bill_depth_mm", "male"}, df.Names())
	assert.Equal(t, []series.Type{series.String, series.Int, series.Int, series.Float, series.Bool}, df.Types())
	assert.Equal(t, 5, df.Nrow())

	flipper := df.Col("flipper_length_mm")
	assert.True(t, flipper.Elem(1).IsNA())
	v, err := flipper.Elem(4).Int()
	require.NoError(t, err)
	assert.Equal(t, 230, v)

	species := df.Col("species")
	assert.False(t, species.Elem(2).IsNA(), "empty string is a value")
	assert.True(t, species.Elem(3).IsNA())
}

func TestDataFrameRoundTrip(t *testing.T) {
	batches := penguinBatches(t, memory.DefaultAllocator)
	defer release(batches)

	src, err := FromRecords(batches)
	require.NoError(t, err)
	defer src.Release()

	df, err := src.DataFrame()
	require.NoError(t, err)

	back, err := FromDataFrame(df)
	require.NoError(t, err)
	defer back.Release()

	flipper := back.Schema().Field(1)
	assert.Equal(t, arrow.INT64, flipper.Type.ID(), "gota widens every integer to int64")

	conformed, err := back.Conform(src.Schema())
	require.NoError(t, err)
	defer conformed.Release()

	requireSameContent(t, src, conformed)
}

// TestDataFrameRoundTrip_Random checks round-trip identity over randomly
// generated tables with randomly placed nulls.
func TestDataFrameRoundTrip_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 25; iter++ {
		t.Run(fmt.Sprintf("table_%d", iter), func(t *testing.T) {
			rows := 1 + rng.Intn(60)
			rec := randomRecord(rng, rows)
			defer rec.Release()

			src, err := FromRecords([]arrow.Record{rec})
			require.NoError(t, err)
			defer src.Release()

			df, err := src.DataFrame()
			require.NoError(t, err)

			back, err := FromDataFrame(df)
			require.NoError(t, err)
			defer back.Release()

			conformed, err := back.Conform(src.Schema())
			require.NoError(t, err)
			defer conformed.Release()

			requireSameContent(t, src, conformed)
		})
	}
}

func randomRecord(rng *rand.Rand, rows int) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "i8", Type: arrow.PrimitiveTypes.Int8, Nullable: true},
		{Name: "i64", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "u32", Type: arrow.PrimitiveTypes.Uint32, Nullable: true},
		{Name: "f32", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
		{Name: "f64", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "b", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	null := func() bool { return rng.Intn(5) == 0 }
	for r := 0; r < rows; r++ {
		for c, fb := range b.Fields() {
			if null() {
				fb.AppendNull()
				continue
			}
			switch c {
			case 0:
				fb.(*array.StringBuilder).Append(strings.Repeat("x", rng.Intn(4)))
			case 1:
				fb.(*array.Int8Builder).Append(int8(rng.Intn(256) - 128))
			case 2:
				fb.(*array.Int64Builder).Append(rng.Int63() - rng.Int63())
			case 3:
				fb.(*array.Uint32Builder).Append(rng.Uint32())
			case 4:
				fb.(*array.Float32Builder).Append(rng.Float32() * 100)
			case 5:
				fb.(*array.Float64Builder).Append(rng.NormFloat64() * 1e6)
			case 6:
				fb.(*array.BooleanBuilder).Append(rng.Intn(2) == 1)
			}
		}
	}
	return b.NewRecord()
}

func TestDataFrame_Unsupported(t *testing.T) {
	mem := memory.DefaultAllocator
	tests := []struct {
		name   string
		build  func() arrow.Array
		reason bool
	}{
		{"date type", func() arrow.Array {
			b := array.NewDate32Builder(mem)
			defer b.Release()
			b.Append(arrow.Date32(1))
			return b.NewArray()
		}, false},
		{"binary type", func() arrow.Array {
			b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
			defer b.Release()
			b.Append([]byte{1, 2})
			return b.NewArray()
		}, false},
		{"float NaN", func() arrow.Array {
			b := array.NewFloat64Builder(mem)
			defer b.Release()
			b.AppendValues([]float64{1.5, math.NaN()}, nil)
			return b.NewArray()
		}, true},
		{"string NaN", func() arrow.Array {
			b := array.NewStringBuilder(mem)
			defer b.Release()
			b.AppendValues([]string{"a", "NaN"}, nil)
			return b.NewArray()
		}, true},
		{"uint64 above int range", func() arrow.Array {
			b := array.NewUint64Builder(mem)
			defer b.Release()
			b.Append(math.MaxUint64)
			return b.NewArray()
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := tt.build()
			defer arr.Release()

			schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arr.DataType(), Nullable: true}}, nil)
			rec := array.NewRecord(schema, []arrow.Array{arr}, int64(arr.Len()))
			defer rec.Release()

			tbl, err := FromRecords([]arrow.Record{rec})
			require.NoError(t, err)
			defer tbl.Release()

			_, err = tbl.DataFrame()
			var unsupported *UnsupportedTypeError
			require.True(t, errors.As(err, &unsupported), "got %v", err)
			assert.Equal(t, "v", unsupported.Column)
			assert.Equal(t, tt.reason, unsupported.Reason != "")
		})
	}
}

func TestDataFrame_RejectsColumnNames(t *testing.T) {
	arr, _, err := array.FromJSON(memory.DefaultAllocator, arrow.PrimitiveTypes.Int64, strings.NewReader(`[1]`))
	require.NoError(t, err)
	defer arr.Release()

	tests := []struct {
		name       string
		columns    []string
		wantReason string
	}{
		{"duplicate", []string{"v", "v"}, "duplicate column name"},
		{"empty first", []string{"", "a"}, "empty column name"},
		{"empty after a gota default name", []string{"X0", ""}, "empty column name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := make([]arrow.Field, len(tt.columns))
			cols := make([]arrow.Array, len(tt.columns))
			for i, name := range tt.columns {
				fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64}
				cols[i] = arr
			}
			rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, 1)
			defer rec.Release()

			tbl, err := FromRecords([]arrow.Record{rec})
			require.NoError(t, err)
			defer tbl.Release()

			_, err = tbl.DataFrame()
			var unsupported *UnsupportedTypeError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tt.wantReason, unsupported.Reason)
		})
	}
}

func TestFromDataFrame(t *testing.T) {
	df := dataframe.New(
		series.New([]interface{}{"Adelie", nil, "Gentoo"}, series.String, "species"),
		series.New([]interface{}{181, 195, nil}, series.Int, "flipper_length_mm"),
		series.New([]interface{}{3.75, nil, 5.4}, series.Float, "body_mass_kg"),
		series.New([]interface{}{true, false, nil}, series.Bool, "male"),
	)
	require.NoError(t, df.Err)

	tbl, err := FromDataFrame(df)
	require.NoError(t, err)
	defer tbl.Release()

	want := arrow.NewSchema([]arrow.Field{
		{Name: "species", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "flipper_length_mm", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "body_mass_kg", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "male", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)
	assert.True(t, tbl.Schema().Equal(want), "got %s", tbl.Schema())

	recs := tbl.Records()
	defer release(recs)
	require.Len(t, recs, 1)
	rec := recs[0]

	assert.True(t, rec.Column(0).IsNull(1))
	assert.Equal(t, int64(195), rec.Column(1).(*array.Int64).Value(1))
	assert.True(t, rec.Column(1).IsNull(2))
	assert.InDelta(t, 5.4, rec.Column(2).(*array.Float64).Value(2), 0)
	assert.True(t, rec.Column(3).IsNull(2))
}

func TestFromDataFrame_Error(t *testing.T) {
	_, err := FromDataFrame(dataframe.DataFrame{Err: errors.New("broken")})
	assert.Error(t, err)
}

func TestDataFrame_Int64Range(t *testing.T) {
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues([]int64{math.MaxInt64, math.MinInt64}, nil)
	arr := b.NewArray()
	defer arr.Release()

	schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)
	rec := array.NewRecord(schema, []arrow.Array{arr}, 2)
	defer rec.Release()

	tbl, err := FromRecords([]arrow.Record{rec})
	require.NoError(t, err)
	defer tbl.Release()

	df, err := tbl.DataFrame()
	if math.MaxInt < math.MaxInt64 {
		assert.Error(t, err)
		return
	}
	require.NoError(t, err)

	back, err := FromDataFrame(df)
	require.NoError(t, err)
	defer back.Release()
	requireSameContent(t, tbl, back)
}
