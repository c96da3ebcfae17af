package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/leapframe/pkg/core"
)

// ErrNotConnected is returned by operations on an adapter before Connect succeeds.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter carries the database/sql plumbing shared by the adapters.
// Concrete adapters embed it and set DB in Connect.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
	Mem    memory.Allocator
}

func (b *BaseSQLAdapter) conn() (*sql.DB, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	return b.DB, nil
}

func (b *BaseSQLAdapter) debug(msg string, attrs ...any) {
	if b.Logger != nil {
		b.Logger.Debug(msg, attrs...)
	}
}

// Close releases the connection pool. Closing an unconnected adapter is a no-op.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	b.debug("closing database connection", slog.String("type", b.Cfg.Type))
	return b.DB.Close()
}

// Exec runs a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query runs a statement and hands its rows to the caller, who must close them.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, sqlStr) //nolint:rowserrcheck // the caller iterates and checks Err
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// ReadArrow runs a query through database/sql and converts the result set
// into Arrow record batches using the driver-reported column types.
func (b *BaseSQLAdapter) ReadArrow(ctx context.Context, query string) ([]arrow.Record, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	recs, err := RecordsFromRows(rows, b.Allocator(), DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	b.debug("read arrow batches", slog.Int("batches", len(recs)))
	return recs, nil
}

// Allocator returns the Arrow allocator used for result batches.
func (b *BaseSQLAdapter) Allocator() memory.Allocator {
	if b.Mem == nil {
		return memory.DefaultAllocator
	}
	return b.Mem
}

// IsConnected reports whether Connect has succeeded and Close has not run.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

// QuoteIdent quotes a single SQL identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes each dot-separated part of a table reference.
func QuoteQualified(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// CreateTableCommon creates a table from an Arrow schema using typeName to
// translate each column type into the dialect's SQL type.
func (b *BaseSQLAdapter) CreateTableCommon(ctx context.Context, table string, schema *arrow.Schema, replace bool, typeName TypeNameFunc) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	ddl, err := CreateTableSQL(table, schema, typeName)
	if err != nil {
		return err
	}

	if replace {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteQualified(table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	b.debug("creating table", slog.String("table", table), slog.Int("columns", schema.NumFields()))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// MigrateWithDialect applies the goose migrations found in dir of fsys.
// With reset set, every applied migration is rolled back first.
func (b *BaseSQLAdapter) MigrateWithDialect(ctx context.Context, fsys fs.FS, dir, dialect string, reset bool) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	goose.SetBaseFS(fsys)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if reset {
		if err := goose.ResetContext(ctx, db, dir); err != nil {
			return fmt.Errorf("failed to reset migrations: %w", err)
		}
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// columnsQuery lists a table's columns from information_schema; %s are the
// dialect's placeholders for the schema and table name.
const columnsQuery = `SELECT column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema = %s AND table_name = %s
ORDER BY ordinal_position`

// GetTableMetadataCommon describes table through information_schema. An
// unqualified name is looked up in defaultSchema. A failing row count is
// reported as zero rather than an error.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table, defaultSchema string, placeholder func(int) string) (*core.TableMetadata, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	schema, name := ParseQualifiedName(table, defaultSchema)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(columnsQuery, placeholder(1), placeholder(2)), schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := &core.TableMetadata{Schema: schema, Name: name}
	for rows.Next() {
		var (
			col      core.Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	count := "SELECT COUNT(*) FROM " + QuoteIdent(schema) + "." + QuoteIdent(name)
	if err := db.QueryRowContext(ctx, count).Scan(&meta.RowCount); err != nil {
		b.debug("row count unavailable", slog.String("table", table), slog.Any("error", err))
		meta.RowCount = 0
	}
	return meta, nil
}

// QuestionPlaceholder formats positional parameters as "?".
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder formats positional parameters as "$n".
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }
