package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// Importing the package for side effects makes the "postgres" target type available.
func init() {
	adapter.Register("postgres", adapter.Factory(func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	}))
}
