package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// CSVOptions controls how ReadCSV parses a delimited file.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// NullValues are the cell texts read as null.
	NullValues []string
	// ColumnTypes fixes the type of the named columns instead of inferring it.
	ColumnTypes map[string]arrow.DataType
	// Allocator used for the resulting columns. Nil uses the default allocator.
	Allocator memory.Allocator
}

// DefaultNullValues are the null markers recognized when CSVOptions.NullValues is empty.
var DefaultNullValues = []string{"", "NA", "NULL", "null", "NaN"}

// ReadCSV reads a delimited file with a header row into a Frame. Column
// types are inferred from the first data row unless fixed by opts.ColumnTypes.
func ReadCSV(path string, opts CSVOptions) (*Frame, error) {
	file, err := os.Open(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() { _ = file.Close() }()

	f, err := DecodeCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	return f, nil
}

// DecodeCSV reads delimited text with a header row from r into a Frame.
func DecodeCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	comma := opts.Comma
	if comma == 0 {
		comma = ','
	}
	nulls := opts.NullValues
	if len(nulls) == 0 {
		nulls = DefaultNullValues
	}

	readerOpts := []csv.Option{
		csv.WithHeader(true),
		csv.WithComma(comma),
		csv.WithNullReader(true, nulls...),
		csv.WithChunk(-1),
		csv.WithAllocator(mem),
	}
	if len(opts.ColumnTypes) > 0 {
		readerOpts = append(readerOpts, csv.WithColumnTypes(opts.ColumnTypes))
	}

	rdr := csv.NewInferringReader(r, readerOpts...)
	defer rdr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch len(recs) {
	case 0:
		schema := rdr.Schema()
		if schema == nil {
			return nil, fmt.Errorf("no header row")
		}
		return Empty(schema), nil
	case 1:
		recs[0].Retain()
		return wrap(recs[0], mem), nil
	default:
		frames := make([]*Frame, len(recs))
		for i, rec := range recs {
			frames[i] = New(rec)
			defer frames[i].Release()
		}
		return Concat(frames...)
	}
}

// WriteCSV writes f as comma-separated text with a header row. Nulls are
// written as empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w, f.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(f.rec); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ReadParquet reads a Parquet file into a Frame.
func ReadParquet(ctx context.Context, path string) (*Frame, error) {
	file, err := os.Open(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	defer func() { _ = file.Close() }()

	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, file, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}
	defer tbl.Release()

	return FromTable(tbl, mem)
}

// WriteParquet writes f to path as a Snappy-compressed Parquet file with a
// single row group.
func WriteParquet(path string, f *Frame) error {
	file, err := os.Create(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return fmt.Errorf("failed to create parquet: %w", err)
	}
	defer func() { _ = file.Close() }()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(f.mem),
	)
	fw, err := pqarrow.NewFileWriter(f.Schema(), file, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := fw.Write(f.rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet %s: %w", path, err)
	}
	return nil
}

// FromTable concatenates the chunks of tbl into a single contiguous Frame.
func FromTable(tbl arrow.Table, mem memory.Allocator) (*Frame, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	n := int(tbl.NumCols())
	cols := make([]arrow.Array, n)
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := 0; i < n; i++ {
		chunks := tbl.Column(i).Data().Chunks()
		switch len(chunks) {
		case 1:
			chunks[0].Retain()
			cols[i] = chunks[0]
		case 0:
			cols[i] = array.MakeArrayOfNull(mem, tbl.Schema().Field(i).Type, 0)
		default:
			out, err := array.Concatenate(chunks, mem)
			if err != nil {
				return nil, fmt.Errorf("failed to concatenate column %q: %w", tbl.Schema().Field(i).Name, err)
			}
			cols[i] = out
		}
	}

	rec := array.NewRecord(tbl.Schema(), cols, tbl.NumRows())
	return wrap(rec, mem), nil
}

// ParquetFiles lists every *.parquet file under dir in lexical path order.
func ParquetFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ScanParquet reads every Parquet file under dir, applies filter to each
// file's rows, and concatenates what remains. A nil filter keeps every row.
func ScanParquet(ctx context.Context, dir string, filter func(*Frame) (*Frame, error)) (*Frame, error) {
	files, err := ParquetFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoFiles)
	}

	parts := make([]*Frame, 0, len(files))
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part, err := ReadParquet(ctx, path)
		if err != nil {
			return nil, err
		}
		if filter != nil {
			filtered, err := filter(part)
			part.Release()
			if err != nil {
				return nil, fmt.Errorf("failed to filter %s: %w", path, err)
			}
			part = filtered
		}
		parts = append(parts, part)
	}

	return Concat(parts...)
}
