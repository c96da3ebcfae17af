// Package parquetinfo reads the footer of a Parquet file: its schema, row
// groups and column chunk statistics.
package parquetinfo

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// FileInfo describes a Parquet file.
type FileInfo struct {
	Path         string     `json:"path" yaml:"path"`
	Size         int64      `json:"size" yaml:"size"`
	CreatedBy    string     `json:"created_by" yaml:"created_by"`
	NumRows      int64      `json:"num_rows" yaml:"num_rows"`
	Schema       string     `json:"schema" yaml:"schema"`
	Columns      []Column   `json:"columns" yaml:"columns"`
	RowGroups    []RowGroup `json:"row_groups" yaml:"row_groups"`
	MetadataKeys []string   `json:"metadata_keys,omitempty" yaml:"metadata_keys,omitempty"`
}

// Column is a leaf column of the file schema. Nested names use dot notation.
type Column struct {
	Name         string `json:"name" yaml:"name"`
	PhysicalType string `json:"physical_type" yaml:"physical_type"`
	LogicalType  string `json:"logical_type,omitempty" yaml:"logical_type,omitempty"`
	Optional     bool   `json:"optional" yaml:"optional"`
	Repeated     bool   `json:"repeated" yaml:"repeated"`
}

// RowGroup describes one row group.
type RowGroup struct {
	NumRows       int64         `json:"num_rows" yaml:"num_rows"`
	TotalByteSize int64         `json:"total_byte_size" yaml:"total_byte_size"`
	Chunks        []ColumnChunk `json:"chunks" yaml:"chunks"`
}

// ColumnChunk describes the data of one column within a row group.
type ColumnChunk struct {
	Path             string `json:"path" yaml:"path"`
	Type             string `json:"type" yaml:"type"`
	Codec            string `json:"codec" yaml:"codec"`
	NumValues        int64  `json:"num_values" yaml:"num_values"`
	CompressedSize   int64  `json:"compressed_size" yaml:"compressed_size"`
	UncompressedSize int64  `json:"uncompressed_size" yaml:"uncompressed_size"`
}

// CompressionRatio returns uncompressed over compressed size, or 0 when
// nothing was written.
func (c ColumnChunk) CompressionRatio() float64 {
	if c.CompressedSize == 0 {
		return 0
	}
	return float64(c.UncompressedSize) / float64(c.CompressedSize)
}

// Inspect opens path and reads its footer.
func Inspect(path string) (*FileInfo, error) {
	file, err := os.Open(path) //nolint:gosec // path is provided by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	meta := pf.Metadata()
	info := &FileInfo{
		Path:      path,
		Size:      stat.Size(),
		CreatedBy: meta.CreatedBy,
		NumRows:   pf.NumRows(),
		Schema:    pf.Schema().String(),
	}

	for _, field := range pf.Schema().Fields() {
		info.Columns = append(info.Columns, leafColumns(field, "", false)...)
	}

	for _, rg := range meta.RowGroups {
		group := RowGroup{NumRows: rg.NumRows, TotalByteSize: rg.TotalByteSize}
		for _, cc := range rg.Columns {
			md := cc.MetaData
			group.Chunks = append(group.Chunks, ColumnChunk{
				Path:             strings.Join(md.PathInSchema, "."),
				Type:             md.Type.String(),
				Codec:            md.Codec.String(),
				NumValues:        md.NumValues,
				CompressedSize:   md.TotalCompressedSize,
				UncompressedSize: md.TotalUncompressedSize,
			})
		}
		info.RowGroups = append(info.RowGroups, group)
	}

	for _, kv := range meta.KeyValueMetadata {
		info.MetadataKeys = append(info.MetadataKeys, kv.Key)
	}
	sort.Strings(info.MetadataKeys)

	return info, nil
}

func leafColumns(field parquet.Field, prefix string, parentRepeated bool) []Column {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var cols []Column
		for _, child := range children {
			cols = append(cols, leafColumns(child, name, repeated)...)
		}
		return cols
	}

	col := Column{
		Name:     name,
		Optional: field.Optional(),
		Repeated: repeated,
	}
	if typ := field.Type(); typ != nil {
		col.PhysicalType = typ.Kind().String()
		if lt := typ.LogicalType(); lt != nil {
			col.LogicalType = lt.String()
		}
	}
	return []Column{col}
}
