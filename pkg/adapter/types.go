package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// TypeNameFunc translates an Arrow type into a dialect's column type.
type TypeNameFunc func(arrow.DataType) (string, error)

// UnsupportedColumnTypeError is returned when a dialect has no column type
// for an Arrow type.
type UnsupportedColumnTypeError struct {
	Dialect string
	Type    arrow.DataType
}

func (e *UnsupportedColumnTypeError) Error() string {
	return fmt.Sprintf("%s: no column type for arrow type %s", e.Dialect, e.Type)
}

// CreateTableSQL renders a CREATE TABLE statement whose columns mirror schema.
func CreateTableSQL(table string, schema *arrow.Schema, typeName TypeNameFunc) (string, error) {
	if schema == nil || schema.NumFields() == 0 {
		return "", fmt.Errorf("cannot create table %s without columns", table)
	}

	cols := make([]string, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		t, err := typeName(f.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", f.Name, err)
		}
		col := QuoteIdent(f.Name) + " " + t
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteQualified(table), strings.Join(cols, ", ")), nil
}

// InsertSQL renders a parameterized INSERT for every column of schema.
func InsertSQL(table string, schema *arrow.Schema, placeholder func(int) string) string {
	names := make([]string, schema.NumFields())
	params := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = QuoteIdent(f.Name)
		params[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteQualified(table), strings.Join(names, ", "), strings.Join(params, ", "))
}

// WriteRecordInsert appends rec to table through a prepared INSERT executed
// once per row inside a single transaction.
func (b *BaseSQLAdapter) WriteRecordInsert(ctx context.Context, table string, rec arrow.Record, placeholder func(int) string) error {
	if b.DB == nil {
		return ErrNotConnected
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, InsertSQL(table, rec.Schema(), placeholder))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, rec.NumCols())
	for row := 0; row < int(rec.NumRows()); row++ {
		for c := range args {
			v, err := RowValue(rec.Column(c), row)
			if err != nil {
				return fmt.Errorf("column %q: %w", rec.ColumnName(c), err)
			}
			args[c] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}
	if b.Logger != nil {
		b.Logger.Debug("inserted rows", slog.String("table", table), slog.Int64("rows", rec.NumRows()))
	}
	return nil
}
