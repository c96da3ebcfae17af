// Package adapter provides storage adapter interfaces and implementations
// for leapframe's data pipelines.
//
// This package contains the public contract that all storage adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
//
// Core types (Config, Column, Metadata, Rows) are defined in pkg/core and
// re-exported here via type aliases.
package adapter

import (
	"context"
	"io/fs"

	"github.com/leapstack-labs/leapframe/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
	// Column is an alias for core.Column.
	Column = core.Column
	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
	// Rows is an alias for core.Rows.
	Rows = core.Rows
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)

// Migrator is implemented by adapters that can apply embedded goose migrations.
type Migrator interface {
	Migrate(ctx context.Context, fsys fs.FS, dir string, reset bool) error
}
