package duckdb

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// TypeName maps an Arrow type to the DuckDB column type that holds it.
func TypeName(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "VARCHAR", nil
	case arrow.BOOL:
		return "BOOLEAN", nil
	case arrow.INT8:
		return "TINYINT", nil
	case arrow.INT16:
		return "SMALLINT", nil
	case arrow.INT32:
		return "INTEGER", nil
	case arrow.INT64:
		return "BIGINT", nil
	case arrow.UINT8:
		return "UTINYINT", nil
	case arrow.UINT16:
		return "USMALLINT", nil
	case arrow.UINT32:
		return "UINTEGER", nil
	case arrow.FLOAT32:
		return "FLOAT", nil
	case arrow.FLOAT64:
		return "DOUBLE", nil
	case arrow.BINARY:
		return "BLOB", nil
	default:
		return "", &adapter.UnsupportedColumnTypeError{Dialect: "duckdb", Type: dt}
	}
}
