package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// ReadArrow runs query on a raw pgx connection and decodes the typed result
// set straight into Arrow record batches, choosing each column's Arrow type
// from its PostgreSQL type OID. integer columns stay int32.
func (a *Adapter) ReadArrow(ctx context.Context, query string) ([]arrow.Record, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var recs []arrow.Record
	err = conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		rows, err := pgxConn.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		defer rows.Close()

		recs, err = readRecords(rows, a.Allocator(), adapter.DefaultBatchSize)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("read arrow batches", slog.Int("batches", len(recs)))
	return recs, nil
}

func readRecords(rows pgx.Rows, mem memory.Allocator, batchSize int) ([]arrow.Record, error) {
	fds := rows.FieldDescriptions()
	fields := make([]arrow.Field, len(fds))
	for i, fd := range fds {
		fields[i] = arrow.Field{Name: fd.Name, Type: arrowTypeForOID(fd.DataTypeOID), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	var (
		recs []arrow.Record
		n    int
	)
	fail := func(err error) ([]arrow.Record, error) {
		for _, r := range recs {
			r.Release()
		}
		return nil, err
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fail(fmt.Errorf("failed to decode row: %w", err))
		}
		for i, v := range values {
			if err := appendPG(bldr.Field(i), v); err != nil {
				return fail(fmt.Errorf("column %q: %w", fields[i].Name, err))
			}
		}
		n++
		if n == batchSize {
			recs = append(recs, bldr.NewRecord())
			n = 0
		}
	}
	if err := rows.Err(); err != nil {
		return fail(fmt.Errorf("error iterating rows: %w", err))
	}

	if n > 0 || len(recs) == 0 {
		recs = append(recs, bldr.NewRecord())
	}
	return recs, nil
}

// appendPG appends a value decoded by pgx to the builder for its column.
func appendPG(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch bb := b.(type) {
	case *array.Int16Builder:
		if x, ok := v.(int16); ok {
			bb.Append(x)
			return nil
		}
	case *array.Int32Builder:
		if x, ok := v.(int32); ok {
			bb.Append(x)
			return nil
		}
	case *array.Float32Builder:
		if x, ok := v.(float32); ok {
			bb.Append(x)
			return nil
		}
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			bb.Append(x)
			return nil
		case pgtype.Numeric:
			f, err := x.Float64Value()
			if err != nil {
				return err
			}
			if !f.Valid {
				bb.AppendNull()
				return nil
			}
			bb.Append(f.Float64)
			return nil
		}
	case *array.Date32Builder:
		if x, ok := v.(time.Time); ok {
			bb.Append(arrow.Date32FromTime(x))
			return nil
		}
	case *array.TimestampBuilder:
		if x, ok := v.(time.Time); ok {
			ts, err := arrow.TimestampFromTime(x, arrow.Microsecond)
			if err != nil {
				return err
			}
			bb.Append(ts)
			return nil
		}
	default:
		return adapter.AppendValue(b, v)
	}
	return fmt.Errorf("unexpected value %T for %s", v, b.Type())
}
