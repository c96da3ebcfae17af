package interchange

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const gotaTarget = "gota dataframe"

// gotaNA is the text gota reads as a missing value in every series type.
const gotaNA = "NaN"

// DataFrame rebuilds the table as a go-gota DataFrame. Strings map to
// series.String, integers up to 64 bits to series.Int, floats to
// series.Float and booleans to series.Bool; nulls become NA. Values gota
// would silently read as NA fail instead.
func (t *Interchange) DataFrame() (dataframe.DataFrame, error) {
	if t.schema.NumFields() == 0 {
		return dataframe.DataFrame{}, &UnsupportedTypeError{Target: gotaTarget, Reason: "a dataframe needs at least one column"}
	}

	seen := make(map[string]bool, t.schema.NumFields())
	cols := make([]series.Series, t.schema.NumFields())
	for i, fld := range t.schema.Fields() {
		// gota renames unnamed columns to X0, X1, ...
		if fld.Name == "" {
			return dataframe.DataFrame{}, &UnsupportedTypeError{Column: fld.Name, Type: fld.Type, Target: gotaTarget, Reason: "empty column name"}
		}
		if seen[fld.Name] {
			return dataframe.DataFrame{}, &UnsupportedTypeError{Column: fld.Name, Type: fld.Type, Target: gotaTarget, Reason: "duplicate column name"}
		}
		seen[fld.Name] = true

		typ, err := seriesType(fld)
		if err != nil {
			return dataframe.DataFrame{}, err
		}

		vals := make([]interface{}, 0, t.NumRows())
		for _, rec := range t.batches {
			vals, err = appendSeriesValues(vals, fld, rec.Column(i))
			if err != nil {
				return dataframe.DataFrame{}, err
			}
		}
		cols[i] = series.New(vals, typ, fld.Name)
		if cols[i].Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to build series %q: %w", fld.Name, cols[i].Err)
		}
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to build dataframe: %w", df.Err)
	}
	return df, nil
}

func seriesType(fld arrow.Field) (series.Type, error) {
	switch fld.Type.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return series.String, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return series.Int, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return series.Float, nil
	case arrow.BOOL:
		return series.Bool, nil
	default:
		return "", &UnsupportedTypeError{Column: fld.Name, Type: fld.Type, Target: gotaTarget}
	}
}

// appendSeriesValues appends the column's values in the Go types gota's
// element setters accept: string, int, float64, bool, or nil for NA.
func appendSeriesValues(vals []interface{}, fld arrow.Field, col arrow.Array) ([]interface{}, error) {
	bad := func(reason string, row int) error {
		return &UnsupportedTypeError{Column: fld.Name, Type: fld.Type, Target: gotaTarget, Reason: fmt.Sprintf("%s at row %d", reason, row)}
	}

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			vals = append(vals, nil)
			continue
		}

		var v interface{}
		switch a := col.(type) {
		case *array.String:
			if a.Value(i) == gotaNA {
				return nil, bad("the string "+gotaNA+" reads back as NA", i)
			}
			v = a.Value(i)
		case *array.LargeString:
			if a.Value(i) == gotaNA {
				return nil, bad("the string "+gotaNA+" reads back as NA", i)
			}
			v = a.Value(i)
		case *array.Int8:
			v = int(a.Value(i))
		case *array.Int16:
			v = int(a.Value(i))
		case *array.Int32:
			v = int(a.Value(i))
		case *array.Int64:
			if a.Value(i) > math.MaxInt || a.Value(i) < math.MinInt {
				return nil, bad("value out of int range", i)
			}
			v = int(a.Value(i))
		case *array.Uint8:
			v = int(a.Value(i))
		case *array.Uint16:
			v = int(a.Value(i))
		case *array.Uint32:
			if uint64(a.Value(i)) > math.MaxInt {
				return nil, bad("value out of int range", i)
			}
			v = int(a.Value(i))
		case *array.Uint64:
			if a.Value(i) > math.MaxInt {
				return nil, bad("value out of int range", i)
			}
			v = int(a.Value(i))
		case *array.Float32:
			if math.IsNaN(float64(a.Value(i))) {
				return nil, bad("NaN reads back as NA", i)
			}
			v = float64(a.Value(i))
		case *array.Float64:
			if math.IsNaN(a.Value(i)) {
				return nil, bad("NaN reads back as NA", i)
			}
			v = a.Value(i)
		case *array.Boolean:
			v = a.Value(i)
		default:
			return nil, &UnsupportedTypeError{Column: fld.Name, Type: fld.Type, Target: gotaTarget}
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// FromDataFrame rebuilds a go-gota DataFrame as a single-batch table.
// String, Int, Float and Bool series become utf8, int64, float64 and bool
// columns; NA becomes null.
func FromDataFrame(df dataframe.DataFrame) (*Interchange, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("dataframe has error: %w", df.Err)
	}

	mem := memory.DefaultAllocator
	names := df.Names()
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, name := range names {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %q: %w", name, s.Err)
		}
		arr, err := seriesToArray(mem, s)
		if err != nil {
			return nil, err
		}
		cols[i] = arr
		fields[i] = arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(df.Nrow()))
	defer rec.Release()
	return adopt(rec.Schema(), []arrow.Record{rec}), nil
}

func seriesToArray(mem memory.Allocator, s series.Series) (arrow.Array, error) {
	n := s.Len()
	switch s.Type() {
	case series.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			if e := s.Elem(i); e.IsNA() {
				b.AppendNull()
			} else {
				b.Append(e.String())
			}
		}
		return b.NewArray(), nil

	case series.Int:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				b.AppendNull()
				continue
			}
			v, err := e.Int()
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", s.Name, i, err)
			}
			b.Append(int64(v))
		}
		return b.NewArray(), nil

	case series.Float:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			if e := s.Elem(i); e.IsNA() {
				b.AppendNull()
			} else {
				b.Append(e.Float())
			}
		}
		return b.NewArray(), nil

	case series.Bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				b.AppendNull()
				continue
			}
			v, err := e.Bool()
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", s.Name, i, err)
			}
			b.Append(v)
		}
		return b.NewArray(), nil

	default:
		return nil, fmt.Errorf("column %q: unknown series type %q", s.Name, s.Type())
	}
}
