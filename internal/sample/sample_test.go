package sample

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapframe/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapframe/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapframe/pkg/core"
)

func TestHasMigrations(t *testing.T) {
	tests := []struct {
		dialect string
		want    bool
	}{
		{"postgres", true},
		{"sqlite", true},
		{"duckdb", false},
		{"oracle", false},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMigrations(tt.dialect))
		})
	}
}

func TestSchema(t *testing.T) {
	s := Schema()
	require.Equal(t, len(Columns), s.NumFields())
	for i, name := range Columns {
		assert.Equal(t, name, s.Field(i).Name)
	}
}

func TestProvision_SQLite(t *testing.T) {
	ctx := context.Background()
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, Provision(ctx, adp))
	require.NoError(t, adp.Exec(ctx, "INSERT INTO penguins VALUES ('Adelie', 181, 3750)"))

	// A second run starts from an empty table again.
	require.NoError(t, Provision(ctx, adp))
	meta, err := adp.GetTableMetadata(ctx, Table)
	require.NoError(t, err)
	assert.Equal(t, int64(0), meta.RowCount)
	assert.Len(t, meta.Columns, 3)
}

func TestProvision_DuckDB(t *testing.T) {
	ctx := context.Background()
	adp := duckdb.New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, Provision(ctx, adp))
	meta, err := adp.GetTableMetadata(ctx, Table)
	require.NoError(t, err)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "BIGINT", meta.Columns[1].Type)
}
