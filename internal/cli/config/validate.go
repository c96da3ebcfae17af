package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	if strings.EqualFold(dbType, "postgres") {
		return "public"
	}
	return "main"
}

// ApplyTargetDefaults fills the schema and, for PostgreSQL, the port.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(name string, t *TargetConfig) error {
	if t == nil {
		return fmt.Errorf("%s: target is required", name)
	}
	if t.Type == "" {
		return fmt.Errorf("%s: target type is required", name)
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return fmt.Errorf("%s: %w", name, &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		})
	}
	return nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %v", c.Alpha)
	}
	if err := ValidateTarget("duckdb", c.DuckDB); err != nil {
		return err
	}
	return ValidateTarget("relational", c.Relational)
}
