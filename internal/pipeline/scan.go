package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapframe/pkg/frame"
)

// Defaults of the survey year window kept by Scan.
const (
	DefaultScanColumn = "survyear"
	DefaultScanFrom   = 2006
	DefaultScanTo     = 2018
)

// ScanConfig configures Scan.
type ScanConfig struct {
	// Dir is searched recursively for Parquet files.
	Dir string
	// MarkerPath receives MarkerLoad before the scan and MarkerDone after it.
	// Empty skips the markers.
	MarkerPath string
	// Column is filtered to [From, To). Empty uses DefaultScanColumn; a zero
	// window uses the default years.
	Column string
	From   int64
	To     int64
}

// Scan reads every Parquet file under cfg.Dir, keeping the rows whose
// column value lies in the configured window. The caller must release the
// returned frame.
func Scan(ctx context.Context, cfg ScanConfig, logger *slog.Logger) (*frame.Frame, error) {
	logger = loggerOrDiscard(logger)
	column := cfg.Column
	if column == "" {
		column = DefaultScanColumn
	}
	from, to := cfg.From, cfg.To
	if from == 0 && to == 0 {
		from, to = DefaultScanFrom, DefaultScanTo
	}
	if from > to {
		return nil, fmt.Errorf("scan window [%d, %d) is empty", from, to)
	}

	if cfg.MarkerPath != "" {
		if err := WriteMarker(cfg.MarkerPath, MarkerLoad); err != nil {
			return nil, err
		}
	}

	logger.Info("scanning parquet", slog.String("dir", cfg.Dir), slog.String("column", column),
		slog.Int64("from", from), slog.Int64("to", to))
	out, err := frame.ScanParquet(ctx, cfg.Dir, func(f *frame.Frame) (*frame.Frame, error) {
		return f.InRange(column, float64(from), float64(to))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("scanned parquet", slog.Int64("rows", out.NumRows()))

	if cfg.MarkerPath != "" {
		if err := WriteMarker(cfg.MarkerPath, MarkerDone); err != nil {
			out.Release()
			return nil, err
		}
	}
	return out, nil
}
