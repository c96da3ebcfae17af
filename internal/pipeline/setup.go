package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/leapstack-labs/leapframe/internal/sample"
	"github.com/leapstack-labs/leapframe/pkg/adapter"
	"github.com/leapstack-labs/leapframe/pkg/frame"
)

// Row boundaries of the three sample parts.
const (
	DefaultFirstSplit  = 111
	DefaultSecondSplit = 222
)

const rowIndex = "index"

// SetupConfig configures Setup.
type SetupConfig struct {
	// CSVPath is the penguins CSV to load.
	CSVPath string
	// ParquetPath receives the first part.
	ParquetPath string
	// DuckDB receives the second part.
	DuckDB adapter.Config
	// Relational receives the third part.
	Relational adapter.Config

	// FirstSplit and SecondSplit bound the parts: rows [0, FirstSplit),
	// [FirstSplit, SecondSplit) and [SecondSplit, end). Zero uses the defaults.
	FirstSplit  int64
	SecondSplit int64
}

// SetupResult reports the rows written to each target.
type SetupResult struct {
	ParquetRows    int64
	DuckDBRows     int64
	RelationalRows int64
}

// Setup loads the penguins CSV, keeps the complete species, flipper length
// and body mass rows, and splits them across a Parquet file, a DuckDB table
// and a relational table.
func Setup(ctx context.Context, cfg SetupConfig, logger *slog.Logger) (*SetupResult, error) {
	logger = loggerOrDiscard(logger)
	first, second := cfg.FirstSplit, cfg.SecondSplit
	if first == 0 {
		first = DefaultFirstSplit
	}
	if second == 0 {
		second = DefaultSecondSplit
	}
	if first > second {
		return nil, fmt.Errorf("first split %d is after second split %d", first, second)
	}

	penguins, err := loadPenguins(cfg.CSVPath)
	if err != nil {
		return nil, err
	}
	defer penguins.Release()
	logger.Info("loaded penguins", slog.String("path", cfg.CSVPath), slog.Int64("rows", penguins.NumRows()))

	bounds := [][2]float64{
		{0, float64(first)},
		{float64(first), float64(second)},
		{float64(second), math.Inf(1)},
	}
	parts := make([]*frame.Frame, len(bounds))
	defer func() {
		for _, p := range parts {
			if p != nil {
				p.Release()
			}
		}
	}()
	for i, b := range bounds {
		parts[i], err = splitPart(penguins, b[0], b[1])
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ParquetPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := frame.WriteParquet(cfg.ParquetPath, parts[0]); err != nil {
		return nil, err
	}
	logger.Info("wrote parquet", slog.String("path", cfg.ParquetPath), slog.Int64("rows", parts[0].NumRows()))

	if err := removeDatabaseFile(cfg.DuckDB); err != nil {
		return nil, err
	}
	if err := writeTarget(ctx, cfg.DuckDB, parts[1], logger); err != nil {
		return nil, err
	}
	if err := writeTarget(ctx, cfg.Relational, parts[2], logger); err != nil {
		return nil, err
	}

	return &SetupResult{
		ParquetRows:    parts[0].NumRows(),
		DuckDBRows:     parts[1].NumRows(),
		RelationalRows: parts[2].NumRows(),
	}, nil
}

// loadPenguins reads the sample columns, drops rows missing a measurement,
// casts both measurements to int64 and numbers the rows.
func loadPenguins(path string) (*frame.Frame, error) {
	raw, err := frame.ReadCSV(path, frame.CSVOptions{
		ColumnTypes: map[string]arrow.DataType{
			sample.Species:       arrow.BinaryTypes.String,
			sample.FlipperLength: arrow.PrimitiveTypes.Float64,
			sample.BodyMass:      arrow.PrimitiveTypes.Float64,
		},
	})
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	steps := []func(*frame.Frame) (*frame.Frame, error){
		func(f *frame.Frame) (*frame.Frame, error) { return f.Select(sample.Columns...) },
		func(f *frame.Frame) (*frame.Frame, error) { return f.DropNulls(sample.FlipperLength, sample.BodyMass) },
		func(f *frame.Frame) (*frame.Frame, error) { return f.Cast(sample.FlipperLength, arrow.PrimitiveTypes.Int64) },
		func(f *frame.Frame) (*frame.Frame, error) { return f.Cast(sample.BodyMass, arrow.PrimitiveTypes.Int64) },
		func(f *frame.Frame) (*frame.Frame, error) { return f.WithRowIndex(rowIndex) },
	}
	return apply(raw, steps...)
}

func splitPart(f *frame.Frame, lo, hi float64) (*frame.Frame, error) {
	return apply(f,
		func(f *frame.Frame) (*frame.Frame, error) { return f.InRange(rowIndex, lo, hi) },
		func(f *frame.Frame) (*frame.Frame, error) { return f.Drop(rowIndex) },
	)
}

// apply runs steps in order, releasing each intermediate frame. f itself is
// left to the caller.
func apply(f *frame.Frame, steps ...func(*frame.Frame) (*frame.Frame, error)) (*frame.Frame, error) {
	cur := f
	for _, step := range steps {
		next, err := step(cur)
		if cur != f {
			cur.Release()
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if cur == f {
		return f.WithAllocator(nil), nil
	}
	return cur, nil
}

// removeDatabaseFile deletes the database file of a file-backed target so it
// is recreated from scratch.
func removeDatabaseFile(cfg adapter.Config) error {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return nil
	}
	for _, path := range []string{cfg.Path, cfg.Path + ".wal"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// writeTarget provisions the penguins table on the target and bulk-writes part.
func writeTarget(ctx context.Context, cfg adapter.Config, part *frame.Frame, logger *slog.Logger) error {
	adp, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	if err := sample.Provision(ctx, adp); err != nil {
		return err
	}
	if err := adp.WriteRecord(ctx, sample.Table, part.Record()); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", sample.Table, cfg.Type, err)
	}

	logger.Info("wrote table", slog.String("type", cfg.Type), slog.String("table", sample.Table),
		slog.Int64("rows", part.NumRows()))
	return nil
}
