package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapframe/internal/sample"
	"github.com/leapstack-labs/leapframe/internal/testutil"
	"github.com/leapstack-labs/leapframe/pkg/adapter"
	"github.com/leapstack-labs/leapframe/pkg/frame"
)

const penguinRows = 344

type targets struct {
	parquet string
	duckdb  adapter.Config
	sqlite  adapter.Config
	plot    string
}

func newTargets(t *testing.T) targets {
	dir := t.TempDir()
	return targets{
		parquet: filepath.Join(dir, "data", "penguins.parquet"),
		duckdb:  adapter.Config{Type: "duckdb", Path: filepath.Join(dir, "data", "penguins.duckdb")},
		sqlite:  adapter.Config{Type: "sqlite", Path: filepath.Join(dir, "data", "penguins.sqlite")},
		plot:    filepath.Join(dir, "plot.html"),
	}
}

func runSetup(t *testing.T, tg targets) *SetupResult {
	t.Helper()
	csv := testutil.WritePenguinsCSV(t, t.TempDir(), penguinRows)
	res, err := Setup(context.Background(), SetupConfig{
		CSVPath:     csv,
		ParquetPath: tg.parquet,
		DuckDB:      tg.duckdb,
		Relational:  tg.sqlite,
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	return res
}

func TestSetup(t *testing.T) {
	tg := newTargets(t)
	res := runSetup(t, tg)

	complete := int64(testutil.CompletePenguins(penguinRows))
	assert.Equal(t, int64(DefaultFirstSplit), res.ParquetRows)
	assert.Equal(t, int64(DefaultSecondSplit-DefaultFirstSplit), res.DuckDBRows)
	assert.Equal(t, complete-DefaultSecondSplit, res.RelationalRows)

	part, err := frame.ReadParquet(context.Background(), tg.parquet)
	require.NoError(t, err)
	defer part.Release()
	assert.Equal(t, sample.Columns, part.Columns())
	assert.Equal(t, "int64", part.Schema().Field(1).Type.String())
	assert.Zero(t, part.Record().Column(1).NullN())

	// Running again replaces every target instead of appending.
	again := runSetup(t, tg)
	assert.Equal(t, res, again)
}

func TestSetup_SplitOrder(t *testing.T) {
	_, err := Setup(context.Background(), SetupConfig{FirstSplit: 10, SecondSplit: 5}, nil)
	assert.Error(t, err)
}

func TestSetup_MissingCSV(t *testing.T) {
	tg := newTargets(t)
	_, err := Setup(context.Background(), SetupConfig{
		CSVPath:     filepath.Join(t.TempDir(), "missing.csv"),
		ParquetPath: tg.parquet,
		DuckDB:      tg.duckdb,
		Relational:  tg.sqlite,
	}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, tg.parquet)
}

func TestInterchange(t *testing.T) {
	tg := newTargets(t)
	runSetup(t, tg)

	res, err := Interchange(context.Background(), InterchangeConfig{
		ParquetPath: tg.parquet,
		DuckDB:      tg.duckdb,
		Relational:  tg.sqlite,
		PlotPath:    tg.plot,
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer res.Release()

	assert.Equal(t, int64(testutil.CompletePenguins(penguinRows)), res.Penguins.NumRows())
	assert.Equal(t, sample.Columns, res.Penguins.Columns())

	keys := make([]string, len(res.Groups))
	for i, g := range res.Groups {
		keys[i] = g.Key
	}
	assert.Equal(t, testutil.PenguinSpecies, keys)

	require.NotNil(t, res.ANOVA)
	assert.Equal(t, DefaultAlpha, res.ANOVA.Alpha)
	assert.Greater(t, res.ANOVA.FStatistic, 100.0)
	assert.Less(t, res.ANOVA.PValue, 1e-6)
	assert.True(t, res.ANOVA.RejectNull)

	page, err := os.ReadFile(tg.plot)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<svg")
	assert.Contains(t, string(page), PenguinScatter.Title)
}

func TestInterchange_MissingTarget(t *testing.T) {
	tg := newTargets(t)
	runSetup(t, tg)

	_, err := Interchange(context.Background(), InterchangeConfig{
		ParquetPath: tg.parquet,
		DuckDB:      tg.duckdb,
		Relational:  adapter.Config{Type: "oracle"},
	}, nil)
	var unknown *adapter.UnknownAdapterError
	assert.ErrorAs(t, err, &unknown)
}

func TestMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem_log", "prog_type.txt")

	got, err := ReadMarker(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, WriteMarker(path, MarkerLoad))
	got, err = ReadMarker(path)
	require.NoError(t, err)
	assert.Equal(t, MarkerLoad, got)

	require.NoError(t, WriteMarker(path, MarkerDone))
	got, err = ReadMarker(path)
	require.NoError(t, err)
	assert.Equal(t, MarkerDone, got)
}
