package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// Importing the package for side effects makes the "sqlite" target type available.
func init() {
	adapter.Register("sqlite", adapter.Factory(func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	}))
}
