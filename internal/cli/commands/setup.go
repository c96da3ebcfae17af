package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/internal/pipeline"
)

// SetupOutput is the JSON form of the setup command's result.
type SetupOutput struct {
	CSV            string `json:"csv"`
	Parquet        string `json:"parquet"`
	ParquetRows    int64  `json:"parquet_rows"`
	DuckDB         string `json:"duckdb"`
	DuckDBRows     int64  `json:"duckdb_rows"`
	Relational     string `json:"relational"`
	RelationalRows int64  `json:"relational_rows"`
}

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	var first, second int64

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Split the penguins sample across Parquet, DuckDB and a relational database",
		Long: `Load the penguins CSV, keep the species, flipper length and body mass of
every complete row, and write three consecutive parts of it: the first to a
Parquet file, the second to a DuckDB table and the rest to the relational
target. Every target is replaced on each run.`,
		Example: `  # Use ./data/penguins.csv and a local PostgreSQL
  leapframe setup

  # Keep everything on disk
  LEAPFRAME_RELATIONAL__TYPE=sqlite LEAPFRAME_RELATIONAL__DATABASE=data/penguins.sqlite leapframe setup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if !fileExists(cc.Cfg.CSVPath) {
				return fmt.Errorf("penguins csv not found at %s\nHint: Download penguins.csv into the data directory or set csv in leapframe.yaml", cc.Cfg.CSVPath)
			}

			res, err := pipeline.Setup(cmd.Context(), pipeline.SetupConfig{
				CSVPath:     cc.Cfg.CSVPath,
				ParquetPath: cc.Cfg.ParquetPath,
				DuckDB:      adapterConfig(cc.Cfg.DuckDB),
				Relational:  adapterConfig(cc.Cfg.Relational),
				FirstSplit:  first,
				SecondSplit: second,
			}, cc.Logger)
			if err != nil {
				return err
			}

			out := SetupOutput{
				CSV:            cc.Cfg.CSVPath,
				Parquet:        cc.Cfg.ParquetPath,
				ParquetRows:    res.ParquetRows,
				DuckDB:         cc.Cfg.DuckDB.Database,
				DuckDBRows:     res.DuckDBRows,
				Relational:     describeTarget(cc.Cfg.Relational),
				RelationalRows: res.RelationalRows,
			}
			return renderSetup(cc.Renderer, out)
		},
	}

	cmd.Flags().Int64Var(&first, "first-split", pipeline.DefaultFirstSplit, "First row of the DuckDB part")
	cmd.Flags().Int64Var(&second, "second-split", pipeline.DefaultSecondSplit, "First row of the relational part")
	return cmd
}

func renderSetup(r *output.Renderer, out SetupOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Header(1, "Setup")
	r.KeyValue("Parquet", fmt.Sprintf("%s rows -> %s", r.Count(out.ParquetRows), out.Parquet))
	r.KeyValue("DuckDB", fmt.Sprintf("%s rows -> %s", r.Count(out.DuckDBRows), out.DuckDB))
	r.KeyValue("Relational", fmt.Sprintf("%s rows -> %s", r.Count(out.RelationalRows), out.Relational))
	return nil
}
