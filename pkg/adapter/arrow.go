package adapter

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultBatchSize is the number of rows per record batch produced by
// RecordsFromRows.
const DefaultBatchSize = 65536

// ArrowTypeFor maps a driver-reported column type name to the Arrow type
// used to hold it. Unknown or empty type names map to utf8.
func ArrowTypeFor(dbType string) arrow.DataType {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "BOOL", "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "INT", "INTEGER", "INT2", "INT4", "INT8", "TINYINT", "SMALLINT",
		"MEDIUMINT", "BIGINT", "UTINYINT", "USMALLINT", "UINTEGER":
		return arrow.PrimitiveTypes.Int64
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION",
		"NUMERIC", "DECIMAL":
		return arrow.PrimitiveTypes.Float64
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// RecordsFromRows drains rows into Arrow record batches of at most batchSize
// rows. A result with no rows yields a single empty batch so the schema is
// never lost. The caller owns the returned records.
func RecordsFromRows(rows *sql.Rows, mem memory.Allocator, batchSize int) ([]arrow.Record, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	fields := make([]arrow.Field, len(colTypes))
	for i, ct := range colTypes {
		fields[i] = arrow.Field{Name: ct.Name(), Type: ArrowTypeFor(ct.DatabaseTypeName()), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	var (
		recs []arrow.Record
		n    int
	)
	release := func() {
		for _, r := range recs {
			r.Release()
		}
	}

	values := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			release()
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if err := AppendValue(bldr.Field(i), v); err != nil {
				release()
				return nil, fmt.Errorf("column %q: %w", fields[i].Name, err)
			}
		}
		n++
		if n == batchSize {
			recs = append(recs, bldr.NewRecord())
			n = 0
		}
	}
	if err := rows.Err(); err != nil {
		release()
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if n > 0 || len(recs) == 0 {
		recs = append(recs, bldr.NewRecord())
	}
	return recs, nil
}

// AppendValue appends a database/sql driver value to an Arrow builder,
// converting between the representations drivers commonly return.
func AppendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch bb := b.(type) {
	case *array.Int64Builder:
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		bb.Append(i)
	case *array.Float64Builder:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		bb.Append(f)
	case *array.BooleanBuilder:
		switch x := v.(type) {
		case bool:
			bb.Append(x)
		case int64:
			bb.Append(x != 0)
		default:
			p, err := strconv.ParseBool(toString(v))
			if err != nil {
				return fmt.Errorf("cannot convert %T to bool: %w", v, err)
			}
			bb.Append(p)
		}
	case *array.BinaryBuilder:
		switch x := v.(type) {
		case []byte:
			bb.Append(x)
		default:
			bb.AppendString(toString(v))
		}
	case *array.StringBuilder:
		bb.Append(toString(v))
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("cannot convert %v to int64 without truncation", x)
		}
		return int64(x), nil
	case []byte, string:
		i, err := strconv.ParseInt(toString(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64: %w", toString(v), err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case []byte, string:
		f, err := strconv.ParseFloat(toString(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float64: %w", toString(v), err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// RowValue returns the value at row i of arr as a database/sql driver value.
// Null slots return nil.
func RowValue(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return a.Value(i), nil
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return int64(a.Value(i)), nil
	case *array.Uint16:
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
}
