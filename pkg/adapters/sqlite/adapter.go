// Package sqlite provides a SQLite database adapter for leapframe, used as a
// serverless stand-in for PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/leapstack-labs/leapframe/pkg/adapter"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
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
	return "sqlite"
}

// Connect opens the SQLite database at cfg.Path.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetTableMetadata retrieves metadata for a specified table from
// pragma_table_info.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	schema, name := adapter.ParseQualifiedName(table, "main")

	rows, err := a.DB.QueryContext(ctx,
		`SELECT name, type, "notnull", pk, cid FROM pragma_table_info(?, ?) ORDER BY cid`, name, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}

	var columns []adapter.Column
	for rows.Next() {
		var (
			col     adapter.Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk, &col.Position); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		col.Position++
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	_ = rows.Close()

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", adapter.QuoteIdent(schema), adapter.QuoteIdent(name)) //nolint:gosec // identifiers are quoted
	var rowCount int64
	if err := a.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &adapter.Metadata{
		Schema:   schema,
		Name:     name,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

// LoadCSV loads a CSV file into a freshly created table of TEXT columns.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	file, err := os.Open(filePath) //nolint:gosec // path is provided by the caller
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	headers, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make([]string, len(headers))
	params := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = adapter.QuoteIdent(h)
		params[i] = "?"
	}
	quoted := adapter.QuoteQualified(tableName)

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s TEXT)", quoted, strings.Join(cols, " TEXT, "))); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoted, strings.Join(params, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(headers))
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		for i := range args {
			args[i] = record[i]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CreateTable creates a table mirroring schema using SQLite column affinities.
func (a *Adapter) CreateTable(ctx context.Context, table string, schema *arrow.Schema, replace bool) error {
	return a.CreateTableCommon(ctx, table, schema, replace, TypeName)
}

// WriteRecord inserts every row of rec inside one transaction.
func (a *Adapter) WriteRecord(ctx context.Context, table string, rec arrow.Record) error {
	return a.WriteRecordInsert(ctx, table, rec, adapter.QuestionPlaceholder)
}

// Migrate applies the goose migrations in dir of fsys.
func (a *Adapter) Migrate(ctx context.Context, fsys fs.FS, dir string, reset bool) error {
	return a.MigrateWithDialect(ctx, fsys, dir, "sqlite", reset)
}

// TypeName maps an Arrow type to a SQLite column type.
func TypeName(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "TEXT", nil
	case arrow.BOOL, arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "INTEGER", nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return "REAL", nil
	case arrow.BINARY:
		return "BLOB", nil
	default:
		return "", &adapter.UnsupportedColumnTypeError{Dialect: "sqlite", Type: dt}
	}
}

// Ensure Adapter implements the adapter and migrator interfaces
var (
	_ adapter.Adapter  = (*Adapter)(nil)
	_ adapter.Migrator = (*Adapter)(nil)
)
