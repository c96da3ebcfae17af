// Package postgres provides a PostgreSQL database adapter for leapframe.
package postgres

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// copyNull marks a NULL cell in the CSV stream fed to COPY, keeping empty
// strings distinct from nulls.
const copyNull = `\N`

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Connect opens a pgx-backed connection pool and checks it with a ping.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres settings: %w", err)
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host), slog.Int("port", int(connCfg.Port)), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN renders cfg as a keyword/value connection string. A
// schema other than public becomes the session search_path, and Options are
// passed through as extra keywords.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	opts := map[string]string{"sslmode": "disable"}
	for k, v := range cfg.Options {
		opts[k] = v
	}
	if cfg.Schema != "" && cfg.Schema != "public" {
		opts["search_path"] = cfg.Schema
	}

	parts := []string{
		"host=" + dsnValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + dsnValue(cfg.Database),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(opts[k]))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes v when libpq keyword/value syntax requires it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.defaultSchema(), adapter.DollarPlaceholder)
}

func (a *Adapter) defaultSchema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return "public"
}

// LoadCSV loads data from a CSV file into a table using COPY FROM STDIN.
// Every column is created as varchar.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // absPath is derived from user-provided filePath, which is expected
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	if err := a.createTextTable(ctx, tableName, headers); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	copySQL := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true)", adapter.QuoteQualified(tableName))
	if err := a.copyFrom(ctx, file, copySQL); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	return nil
}

// createTextTable creates or replaces a table with one varchar column per header.
func (a *Adapter) createTextTable(ctx context.Context, tableName string, columns []string) error {
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return a.CreateTable(ctx, tableName, arrow.NewSchema(fields, nil), true)
}

// CreateTable creates a table mirroring schema using PostgreSQL column types.
func (a *Adapter) CreateTable(ctx context.Context, table string, schema *arrow.Schema, replace bool) error {
	return a.CreateTableCommon(ctx, table, schema, replace, TypeName)
}

// WriteRecord bulk-loads rec into an existing table. The record is encoded
// as CSV with a header row and streamed through COPY FROM STDIN.
func (a *Adapter) WriteRecord(ctx context.Context, table string, rec arrow.Record) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	var buf bytes.Buffer
	w := arrowcsv.NewWriter(&buf, rec.Schema(),
		arrowcsv.WithHeader(true),
		arrowcsv.WithNullWriter(copyNull),
	)
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("failed to encode record as csv: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to encode record as csv: %w", err)
	}

	cols := make([]string, rec.NumCols())
	for i := range cols {
		cols[i] = adapter.QuoteIdent(rec.ColumnName(i))
	}
	copySQL := fmt.Sprintf(`COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true, NULL '%s')`,
		adapter.QuoteQualified(table), strings.Join(cols, ", "), copyNull)

	if err := a.copyFrom(ctx, &buf, copySQL); err != nil {
		return fmt.Errorf("failed to copy into %s: %w", table, err)
	}

	a.Logger.Debug("copied rows", slog.String("table", table), slog.Int64("rows", rec.NumRows()))
	return nil
}

// copyFrom streams r into a COPY ... FROM STDIN statement on a raw pgx connection.
func (a *Adapter) copyFrom(ctx context.Context, r io.Reader, copySQL string) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()
		_, err := pgxConn.PgConn().CopyFrom(ctx, r, copySQL)
		return err
	})
}

// Migrate applies the goose migrations in dir of fsys.
func (a *Adapter) Migrate(ctx context.Context, fsys fs.FS, dir string, reset bool) error {
	return a.MigrateWithDialect(ctx, fsys, dir, "postgres", reset)
}

// Ensure Adapter implements the adapter and migrator interfaces
var (
	_ adapter.Adapter  = (*Adapter)(nil)
	_ adapter.Migrator = (*Adapter)(nil)
)
