package adapter_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapframe/pkg/adapter"

	// Register the adapters through their init functions.
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/sqlite"
)

func TestSelfRegistration(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres", "sqlite"} {
		assert.True(t, adapter.IsRegistered(name), "%s should register itself", name)
		assert.Contains(t, adapter.ListAdapters(), name)

		adp, err := adapter.NewAdapter(adapter.Config{Type: name}, nil)
		require.NoError(t, err)
		assert.Equal(t, name, adp.DialectName())
	}
	assert.False(t, adapter.IsRegistered("mysql"))
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := adapter.NewAdapter(adapter.Config{Type: "mysql"}, nil)

	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "mysql", unknownErr.Type)
	assert.Contains(t, unknownErr.Available, "duckdb")
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := adapter.Open(context.Background(), adapter.Config{Type: "oracle"}, nil)
	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
}

// TestOpen_RoundTrip writes a penguin batch through the Adapter interface of
// every in-process database and reads it back as Arrow.
func TestOpen_RoundTrip(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "species", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "body_mass_g", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"Adelie", "Gentoo"}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{3750, 5400}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	for _, typ := range []string{"duckdb", "sqlite"} {
		t.Run(typ, func(t *testing.T) {
			ctx := context.Background()
			adp, err := adapter.Open(ctx, adapter.Config{Type: typ, Path: ":memory:"}, nil)
			require.NoError(t, err)
			defer func() { _ = adp.Close() }()

			require.NoError(t, adp.CreateTable(ctx, "penguins", schema, true))
			require.NoError(t, adp.WriteRecord(ctx, "penguins", rec))

			recs, err := adp.ReadArrow(ctx, "SELECT species, body_mass_g FROM penguins ORDER BY body_mass_g")
			require.NoError(t, err)
			defer func() {
				for _, r := range recs {
					r.Release()
				}
			}()

			var rows int64
			for _, r := range recs {
				rows += r.NumRows()
			}
			assert.Equal(t, int64(2), rows)
			assert.Equal(t, "Adelie", recs[0].Column(0).ValueStr(0))

			meta, err := adp.GetTableMetadata(ctx, "penguins")
			require.NoError(t, err)
			assert.Len(t, meta.Columns, 2)
			assert.Equal(t, int64(2), meta.RowCount)
		})
	}
}
