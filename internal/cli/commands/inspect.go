package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/pkg/parquetinfo"
)

// Inspect output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Show the schema and row groups of a Parquet file",
		Long: `Read the footer of a Parquet file and show its schema, leaf columns and,
for each row group, the codec, value count and sizes of every column chunk.`,
		Example: `  leapframe inspect data/penguins.parquet
  leapframe inspect data/penguins.parquet --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			info, err := parquetinfo.Inspect(args[0])
			if err != nil {
				return err
			}

			switch {
			case format == formatYAML:
				enc := yaml.NewEncoder(cc.Renderer.Writer())
				enc.SetIndent(2)
				if err := enc.Encode(info); err != nil {
					return fmt.Errorf("failed to encode yaml: %w", err)
				}
				return enc.Close()
			case format == formatJSON || (format == formatTable && !cmd.Flags().Changed("format") &&
				cc.Renderer.EffectiveMode() == output.ModeJSON):
				return cc.Renderer.JSON(info)
			case format == formatTable:
				renderFileInfo(cc.Renderer, info)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format (table|json|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatJSON, formatYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderFileInfo(r *output.Renderer, info *parquetinfo.FileInfo) {
	r.Header(1, info.Path)
	r.KeyValue("Created by", info.CreatedBy)
	r.KeyValue("Rows", r.Count(info.NumRows))
	r.KeyValue("Size", r.Count(info.Size)+" bytes")
	r.KeyValue("Row groups", r.Count(int64(len(info.RowGroups))))
	if len(info.MetadataKeys) > 0 {
		r.KeyValue("Metadata", strings.Join(info.MetadataKeys, ", "))
	}
	r.Println()

	r.Header(2, "Columns")
	cols := table.NewWriter()
	cols.AppendHeader(table.Row{"Name", "Physical", "Logical", "Repetition"})
	for _, c := range info.Columns {
		rep := "required"
		switch {
		case c.Repeated:
			rep = "repeated"
		case c.Optional:
			rep = "optional"
		}
		cols.AppendRow(table.Row{c.Name, c.PhysicalType, c.LogicalType, rep})
	}
	r.Table(cols)

	for i, rg := range info.RowGroups {
		r.Println()
		r.Header(2, fmt.Sprintf("Row group %d (%s rows)", i, r.Count(rg.NumRows)))
		chunks := table.NewWriter()
		chunks.AppendHeader(table.Row{"Column", "Type", "Codec", "Values", "Compressed", "Uncompressed", "Ratio"})
		for _, c := range rg.Chunks {
			chunks.AppendRow(table.Row{
				c.Path, c.Type, c.Codec,
				r.Count(c.NumValues), r.Count(c.CompressedSize), r.Count(c.UncompressedSize),
				fmt.Sprintf("%.2f", c.CompressionRatio()),
			})
		}
		r.Table(chunks)
	}
}
