// Package pipeline implements the leapframe pipelines: provisioning the
// penguins sample across storage targets, reading it back through the
// interchange layer, scanning a Parquet directory and graphing a memory log.
//
// Each pipeline is a single linear run that stops at the first error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapframe/internal/sample"
	"github.com/leapstack-labs/leapframe/pkg/adapter"
	"github.com/leapstack-labs/leapframe/pkg/interchange"

	// Register the storage targets a pipeline can open.
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/sqlite"
)

// Progress markers written by Scan and read by MemLog.
const (
	MarkerLoad  = "load"
	MarkerDone  = "done"
	MarkerBuild = "build"
)

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// penguinsQuery selects the sample columns in table order.
func penguinsQuery() string {
	cols := make([]string, len(sample.Columns))
	for i, c := range sample.Columns {
		cols[i] = adapter.QuoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), adapter.QuoteIdent(sample.Table))
}

// readTarget reads the penguins table from the target described by cfg
// through the adapter's native Arrow path.
func readTarget(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (*interchange.Interchange, error) {
	adp, err := adapter.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = adp.Close() }()

	recs, err := adp.ReadArrow(ctx, penguinsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", sample.Table, cfg.Type, err)
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	tbl, err := interchange.FromRecords(recs)
	if err != nil {
		return nil, fmt.Errorf("failed to adapt %s batches: %w", cfg.Type, err)
	}
	logger.Debug("read target", slog.String("type", cfg.Type),
		slog.Int("batches", tbl.NumBatches()), slog.Int64("rows", tbl.NumRows()))
	return tbl, nil
}

// WriteMarker replaces the contents of the progress marker file at path.
func WriteMarker(path, marker string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(marker), 0o600); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

// ReadMarker returns the trimmed contents of the marker file, or "" when it
// does not exist.
func ReadMarker(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the caller
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
