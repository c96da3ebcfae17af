// Package interchange moves a columnar table between in-memory
// representations: Arrow record batches, record readers, chunked tables,
// frames, go-gota dataframes and the Arrow IPC stream format.
//
// Arrow-based representations share buffers with the source; nothing is
// copied. Representations with their own memory layout are rebuilt column by
// column. Every conversion is all-or-nothing: on error no value is returned.
package interchange

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/leapstack-labs/leapframe/pkg/frame"
)

var (
	// ErrIncompatibleSchema is returned when a table cannot be bound to a target schema.
	ErrIncompatibleSchema = errors.New("incompatible schema")
	// ErrSchemaMismatch is returned when record batches of one table disagree on their schema.
	ErrSchemaMismatch = errors.New("record batches have different schemas")
	// ErrNoBatches is returned when a table is built from zero record batches
	// and no schema is available.
	ErrNoBatches = errors.New("no record batches")
)

// UnsupportedTypeError is returned when a column's type or value cannot be
// expressed by the target representation.
type UnsupportedTypeError struct {
	Column string
	Type   arrow.DataType
	Target string
	// Reason is set when the type is supported but a value is not.
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("column %q (%s) cannot be converted to %s: %s", e.Column, e.Type, e.Target, e.Reason)
	}
	return fmt.Sprintf("column %q has type %s, which %s cannot represent", e.Column, e.Type, e.Target)
}

// Interchange is a columnar table held as Arrow record batches sharing one
// schema. It owns a reference to each batch until Release.
type Interchange struct {
	schema  *arrow.Schema
	batches []arrow.Record
	mem     memory.Allocator
}

// FromRecords adopts record batches, such as the result of a DuckDB Arrow
// query. The batches are retained, not copied.
func FromRecords(recs []arrow.Record) (*Interchange, error) {
	if len(recs) == 0 {
		return nil, ErrNoBatches
	}

	schema := recs[0].Schema()
	for i, rec := range recs[1:] {
		if err := sameColumns(schema, rec.Schema()); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i+1, err)
		}
	}

	return adopt(schema, recs), nil
}

// FromReader drains rdr, retaining each batch. A reader with no batches
// yields an empty table with the reader's schema.
func FromReader(rdr array.RecordReader) (*Interchange, error) {
	schema := rdr.Schema()
	var recs []arrow.Record
	for rdr.Next() {
		rec := rdr.Record()
		if err := sameColumns(schema, rec.Schema()); err != nil {
			releaseAll(recs)
			return nil, fmt.Errorf("batch %d: %w", len(recs), err)
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil {
		releaseAll(recs)
		return nil, fmt.Errorf("failed to read record batches: %w", err)
	}

	return &Interchange{schema: schema, batches: recs, mem: memory.DefaultAllocator}, nil
}

// FromTable adopts a chunked table. Batches follow the table's chunk
// boundaries and slice its arrays without copying.
func FromTable(tbl arrow.Table) (*Interchange, error) {
	rdr := array.NewTableReader(tbl, -1)
	defer rdr.Release()
	return FromReader(rdr)
}

// FromFrame adopts the single record of f.
func FromFrame(f *frame.Frame) (*Interchange, error) {
	return FromRecords([]arrow.Record{f.Record()})
}

// adopt retains recs into a new Interchange.
func adopt(schema *arrow.Schema, recs []arrow.Record) *Interchange {
	batches := make([]arrow.Record, len(recs))
	for i, rec := range recs {
		rec.Retain()
		batches[i] = rec
	}
	return &Interchange{schema: schema, batches: batches, mem: memory.DefaultAllocator}
}

// SetAllocator sets the allocator for arrays built by conversions that copy.
func (t *Interchange) SetAllocator(mem memory.Allocator) {
	if mem != nil {
		t.mem = mem
	}
}

// Schema returns the table's schema.
func (t *Interchange) Schema() *arrow.Schema { return t.schema }

// NumRows returns the total number of rows across batches.
func (t *Interchange) NumRows() int64 {
	var n int64
	for _, rec := range t.batches {
		n += rec.NumRows()
	}
	return n
}

// NumBatches returns the number of record batches.
func (t *Interchange) NumBatches() int { return len(t.batches) }

// Records returns the table's batches. Each is retained for the caller,
// who must release it.
func (t *Interchange) Records() []arrow.Record {
	out := make([]arrow.Record, len(t.batches))
	for i, rec := range t.batches {
		rec.Retain()
		out[i] = rec
	}
	return out
}

// Reader returns a stream over the table's batches.
func (t *Interchange) Reader() (array.RecordReader, error) {
	rdr, err := array.NewRecordReader(t.schema, t.batches)
	if err != nil {
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}
	return rdr, nil
}

// Table returns the batches as a chunked table, one chunk per batch.
func (t *Interchange) Table() arrow.Table {
	return array.NewTableFromRecords(t.schema, t.batches)
}

// Frame returns the table as a single contiguous Frame. A single batch is
// shared; several batches are concatenated column by column.
func (t *Interchange) Frame() (*frame.Frame, error) {
	switch len(t.batches) {
	case 0:
		return frame.Empty(t.schema), nil
	case 1:
		return frame.New(t.batches[0]), nil
	}

	tbl := t.Table()
	defer tbl.Release()
	return frame.FromTable(tbl, t.mem)
}

// Release drops the table's references to its batches.
func (t *Interchange) Release() {
	releaseAll(t.batches)
	t.batches = nil
}

func releaseAll(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}

func sameColumns(a, b *arrow.Schema) error {
	if a.NumFields() != b.NumFields() {
		return fmt.Errorf("%d columns vs %d: %w", a.NumFields(), b.NumFields(), ErrSchemaMismatch)
	}
	for i := 0; i < a.NumFields(); i++ {
		fa, fb := a.Field(i), b.Field(i)
		if fa.Name != fb.Name || !arrow.TypeEqual(fa.Type, fb.Type) {
			return fmt.Errorf("column %d is %s %s vs %s %s: %w", i, fa.Name, fa.Type, fb.Name, fb.Type, ErrSchemaMismatch)
		}
	}
	return nil
}
