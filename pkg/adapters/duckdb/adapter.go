// Package duckdb provides a DuckDB database adapter for leapframe.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	connector *duckdb.Connector
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
// Extensions and settings from cfg.Params are applied to every pooled
// connection; secrets are created once per database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path),
		slog.Int("extensions", len(params.Extensions)), slog.Int("settings", len(params.Settings)))

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		return initConn(execer, params)
	})
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	db := sql.OpenDB(connector)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = connector.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, secret := range params.Secrets {
		if _, err := db.ExecContext(ctx, buildCreateSecretSQL(secret)); err != nil {
			_ = db.Close()
			_ = connector.Close()
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	a.connector = connector
	return nil
}

// initConn runs for every connection the pool opens, outside any caller context.
func initConn(execer driver.ExecerContext, params *Params) error {
	ctx := context.Background()
	for _, ext := range params.Extensions {
		if _, err := execer.ExecContext(ctx, "INSTALL "+ext, nil); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := execer.ExecContext(ctx, "LOAD "+ext, nil); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for _, stmt := range settingStatements(params.Settings) {
		if _, err := execer.ExecContext(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to apply setting: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool and the underlying database.
func (a *Adapter) Close() error {
	err := a.BaseSQLAdapter.Close()
	if a.connector != nil {
		if cerr := a.connector.Close(); err == nil {
			err = cerr
		}
		a.connector = nil
	}
	return err
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, "main", adapter.QuestionPlaceholder)
}

// LoadCSV loads data from a CSV file into a table.
// DuckDB will automatically infer the schema from the CSV file.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)",
		adapter.QuoteQualified(tableName),
		quoteLiteral(absPath),
	)

	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}

	return nil
}

// CreateTable creates a table mirroring schema using DuckDB column types.
func (a *Adapter) CreateTable(ctx context.Context, table string, schema *arrow.Schema, replace bool) error {
	return a.CreateTableCommon(ctx, table, schema, replace, TypeName)
}

// WriteRecord appends every row of rec to table through the DuckDB Appender.
func (a *Adapter) WriteRecord(ctx context.Context, table string, rec arrow.Record) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	schema, name := adapter.ParseQualifiedName(table, "")

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		app, err := duckdb.NewAppenderFromConn(dc, schema, name)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}

		row := make([]driver.Value, rec.NumCols())
		for r := 0; r < int(rec.NumRows()); r++ {
			for c := range row {
				v, err := adapter.RowValue(rec.Column(c), r)
				if err != nil {
					_ = app.Close()
					return fmt.Errorf("column %q: %w", rec.ColumnName(c), err)
				}
				row[c] = v
			}
			if err := app.AppendRow(row...); err != nil {
				_ = app.Close()
				return fmt.Errorf("failed to append row %d: %w", r, err)
			}
		}

		// Close flushes the remaining rows.
		if err := app.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.Logger.Debug("appended rows", slog.String("table", table), slog.Int64("rows", rec.NumRows()))
	return nil
}

// ReadArrow runs query through DuckDB's native Arrow interface. A query with
// no result rows yields one empty batch carrying the result schema.
func (a *Adapter) ReadArrow(ctx context.Context, query string) ([]arrow.Record, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var recs []arrow.Record
	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		ar, err := duckdb.NewArrowFromConn(dc)
		if err != nil {
			return fmt.Errorf("failed to open arrow interface: %w", err)
		}

		rdr, err := ar.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		defer rdr.Release()

		for rdr.Next() {
			rec := rdr.Record()
			rec.Retain()
			recs = append(recs, rec)
		}
		if err := rdr.Err(); err != nil {
			return fmt.Errorf("failed to read arrow batches: %w", err)
		}

		if len(recs) == 0 {
			b := array.NewRecordBuilder(a.Allocator(), rdr.Schema())
			defer b.Release()
			recs = append(recs, b.NewRecord())
		}
		return nil
	})
	if err != nil {
		for _, r := range recs {
			r.Release()
		}
		return nil, err
	}

	a.Logger.Debug("read arrow batches", slog.Int("batches", len(recs)))
	return recs, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
