// Package sample defines the penguins sample dataset and provisions its
// table on a storage target.
package sample

import (
	"context"
	"embed"
	"fmt"
	"path"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

//go:embed migrations
var migrations embed.FS

// Table is the name of the penguins table on every target.
const Table = "penguins"

// Column names of the penguins sample.
const (
	Species       = "species"
	FlipperLength = "flipper_length_mm"
	BodyMass      = "body_mass_g"
)

// Columns lists the sample columns in table order.
var Columns = []string{Species, FlipperLength, BodyMass}

// Schema returns the in-memory schema of the penguins sample.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: Species, Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: FlipperLength, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: BodyMass, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
}

// HasMigrations reports whether versioned DDL exists for dialect.
func HasMigrations(dialect string) bool {
	entries, err := migrations.ReadDir(path.Join("migrations", dialect))
	return err == nil && len(entries) > 0
}

// Provision drops and recreates the penguins table on adp. Targets with
// embedded migrations are reset and migrated up; the others get a table
// created from Schema.
func Provision(ctx context.Context, adp adapter.Adapter) error {
	dialect := adp.DialectName()

	if m, ok := adp.(adapter.Migrator); ok && HasMigrations(dialect) {
		if err := m.Migrate(ctx, migrations, path.Join("migrations", dialect), true); err != nil {
			return fmt.Errorf("failed to provision %s on %s: %w", Table, dialect, err)
		}
		return nil
	}

	if err := adp.CreateTable(ctx, Table, Schema(), true); err != nil {
		return fmt.Errorf("failed to provision %s on %s: %w", Table, dialect, err)
	}
	return nil
}
