package frame

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Group is one key of a grouped column and its values in row order.
type Group struct {
	Key    string
	Values []float64
}

// Float64At returns the value of a numeric array at row as a float64.
// ok is false for null slots and non-numeric arrays.
func Float64At(arr arrow.Array, row int) (v float64, ok bool) {
	if arr.IsNull(row) {
		return 0, false
	}
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(row)), true
	case *array.Int16:
		return float64(a.Value(row)), true
	case *array.Int32:
		return float64(a.Value(row)), true
	case *array.Int64:
		return float64(a.Value(row)), true
	case *array.Uint8:
		return float64(a.Value(row)), true
	case *array.Uint16:
		return float64(a.Value(row)), true
	case *array.Uint32:
		return float64(a.Value(row)), true
	case *array.Uint64:
		return float64(a.Value(row)), true
	case *array.Float32:
		return float64(a.Value(row)), true
	case *array.Float64:
		return a.Value(row), true
	default:
		return 0, false
	}
}

func isNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

// Float64s returns a numeric column as float64 values. Nulls become NaN.
func (f *Frame) Float64s(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if !isNumeric(col.DataType()) {
		return nil, fmt.Errorf("column %q has non-numeric type %s", name, col.DataType())
	}

	out := make([]float64, col.Len())
	for i := range out {
		v, ok := Float64At(col, i)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Int64s returns an integer column as int64 values. A null fails with ErrNullValue.
func (f *Frame) Int64s(name string) ([]int64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}

	out := make([]int64, col.Len())
	for i := range out {
		if col.IsNull(i) {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, ErrNullValue)
		}
		switch a := col.(type) {
		case *array.Int8:
			out[i] = int64(a.Value(i))
		case *array.Int16:
			out[i] = int64(a.Value(i))
		case *array.Int32:
			out[i] = int64(a.Value(i))
		case *array.Int64:
			out[i] = a.Value(i)
		case *array.Uint8:
			out[i] = int64(a.Value(i))
		case *array.Uint16:
			out[i] = int64(a.Value(i))
		case *array.Uint32:
			out[i] = int64(a.Value(i))
		default:
			return nil, fmt.Errorf("column %q has non-integer type %s", name, col.DataType())
		}
	}
	return out, nil
}

// Strings returns the values of a column as strings. Nulls become "".
// Non-string columns are rendered with the array's value formatting.
func (f *Frame) Strings(name string) ([]string, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}

	out := make([]string, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		switch a := col.(type) {
		case *array.String:
			out[i] = a.Value(i)
		case *array.LargeString:
			out[i] = a.Value(i)
		default:
			out[i] = col.ValueStr(i)
		}
	}
	return out, nil
}

// GroupFloat64 splits the numeric value column by the distinct values of the
// key column. Groups appear in the order their key first appears; rows with
// a null key or value are dropped.
func (f *Frame) GroupFloat64(key, value string) ([]Group, error) {
	keys, err := f.Column(key)
	if err != nil {
		return nil, err
	}
	vals, err := f.Column(value)
	if err != nil {
		return nil, err
	}
	if !isNumeric(vals.DataType()) {
		return nil, fmt.Errorf("column %q has non-numeric type %s", value, vals.DataType())
	}

	var groups []Group
	pos := make(map[string]int)
	for i := 0; i < keys.Len(); i++ {
		if keys.IsNull(i) {
			continue
		}
		v, ok := Float64At(vals, i)
		if !ok {
			continue
		}

		k := keys.ValueStr(i)
		g, seen := pos[k]
		if !seen {
			g = len(groups)
			pos[k] = g
			groups = append(groups, Group{Key: k})
		}
		groups[g].Values = append(groups[g].Values, v)
	}
	return groups, nil
}
