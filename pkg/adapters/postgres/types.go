package postgres

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

// TypeName maps an Arrow type to the PostgreSQL column type that holds it.
func TypeName(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "varchar", nil
	case arrow.BOOL:
		return "boolean", nil
	case arrow.INT8, arrow.INT16, arrow.UINT8:
		return "smallint", nil
	case arrow.INT32, arrow.UINT16:
		return "integer", nil
	case arrow.INT64, arrow.UINT32:
		return "bigint", nil
	case arrow.FLOAT32:
		return "real", nil
	case arrow.FLOAT64:
		return "double precision", nil
	case arrow.BINARY:
		return "bytea", nil
	case arrow.DATE32:
		return "date", nil
	default:
		return "", &adapter.UnsupportedColumnTypeError{Dialect: "postgres", Type: dt}
	}
}

// arrowTypeForOID maps a PostgreSQL type OID to the Arrow type a result
// column is decoded into. Types without a dedicated mapping are read as text.
func arrowTypeForOID(oid uint32) arrow.DataType {
	switch oid {
	case pgtype.BoolOID:
		return arrow.FixedWidthTypes.Boolean
	case pgtype.Int2OID:
		return arrow.PrimitiveTypes.Int16
	case pgtype.Int4OID:
		return arrow.PrimitiveTypes.Int32
	case pgtype.Int8OID:
		return arrow.PrimitiveTypes.Int64
	case pgtype.Float4OID:
		return arrow.PrimitiveTypes.Float32
	case pgtype.Float8OID, pgtype.NumericOID:
		return arrow.PrimitiveTypes.Float64
	case pgtype.ByteaOID:
		return arrow.BinaryTypes.Binary
	case pgtype.DateOID:
		return arrow.FixedWidthTypes.Date32
	case pgtype.TimestampOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case pgtype.TimestamptzOID:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	default:
		return arrow.BinaryTypes.String
	}
}
