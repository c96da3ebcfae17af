package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/pipeline"
)

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	var (
		column   string
		from, to int64
		maxRows  int
	)

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a Parquet directory for a range of survey years",
		Long: `Read every Parquet file under a directory and keep the rows whose survey
year lies in [from, to). The progress marker in the memory log directory is
set to "load" before the scan and "done" after it, so a running memlog labels
its samples.`,
		Example: `  leapframe scan data/lfs_large/part
  leapframe scan --from 2010 --to 2012 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			dir := cc.Cfg.Scan.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			scanCfg := pipeline.ScanConfig{
				Dir:        dir,
				MarkerPath: cc.Cfg.MarkerPath(),
				Column:     cc.Cfg.Scan.Column,
				From:       cc.Cfg.Scan.From,
				To:         cc.Cfg.Scan.To,
			}
			if cmd.Flags().Changed("column") {
				scanCfg.Column = column
			}
			if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
				scanCfg.From, scanCfg.To = from, to
			}

			out, err := pipeline.Scan(cmd.Context(), scanCfg, cc.Logger)
			if err != nil {
				return err
			}
			defer out.Release()
			return renderFrame(cc.Renderer, out, maxRows)
		},
	}

	cmd.Flags().StringVar(&column, "column", pipeline.DefaultScanColumn, "Column holding the survey year")
	cmd.Flags().Int64Var(&from, "from", pipeline.DefaultScanFrom, "First year kept")
	cmd.Flags().Int64Var(&to, "to", pipeline.DefaultScanTo, "Year after the last one kept")
	cmd.Flags().IntVarP(&maxRows, "rows", "n", 0, "Rows to preview (0 for the default, -1 for all)")
	return cmd
}
