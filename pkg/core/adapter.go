package core

import (
	"context"
	"database/sql"

	"github.com/apache/arrow-go/v18/arrow"
)

// Adapter is a connection to a relational store that pipelines read frames
// from and write frames to. Implementations live under pkg/adapters and
// are not safe for concurrent Connect/Close.
type Adapter interface {
	Connect(ctx context.Context, cfg AdapterConfig) error
	Close() error

	// Exec runs a statement and discards any result rows.
	Exec(ctx context.Context, sql string) error
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata describes a table, optionally schema-qualified.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// LoadCSV creates or replaces table from a CSV file with a header row.
	LoadCSV(ctx context.Context, table, path string) error

	// CreateTable creates table with one column per schema field, dropping
	// an existing table first when replace is set.
	CreateTable(ctx context.Context, table string, schema *arrow.Schema, replace bool) error

	// WriteRecord appends the rows of rec to an existing table.
	WriteRecord(ctx context.Context, table string, rec arrow.Record) error

	// ReadArrow runs query and returns its result batches. The caller
	// releases them.
	ReadArrow(ctx context.Context, query string) ([]arrow.Record, error)

	DialectName() string
}

// AdapterConfig is what an adapter needs to connect. File-backed stores use
// Path; server-backed stores use the network fields.
type AdapterConfig struct {
	Type string
	Path string

	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string

	// Options are passed to the driver as connection keywords.
	Options map[string]string
	// Params carry adapter-specific settings such as DuckDB extensions.
	Params map[string]any
}

// Column describes one column of a stored table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// TableMetadata describes a stored table.
type TableMetadata struct {
	Schema    string
	Name      string
	Columns   []Column
	RowCount  int64
	SizeBytes int64
}

// Rows is the result of Adapter.Query.
type Rows struct {
	*sql.Rows
}
