package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// Importing the package for side effects makes the "duckdb" target type available.
func init() {
	adapter.Register("duckdb", adapter.Factory(func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	}))
}
