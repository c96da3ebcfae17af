package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/internal/pipeline"
)

// NewMemGraphCommand creates the memgraph command.
func NewMemGraphCommand() *cobra.Command {
	var (
		exclude string
		maxRows int
	)

	cmd := &cobra.Command{
		Use:   "memgraph [log]",
		Short: "Plot a memory usage log",
		Long: `Read a space separated memory log with a "time type used" header, drop the
samples taken while building, convert used bytes to MiB and plot memory use
over time next to the log.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			logPath := cc.Cfg.MemLogPath()
			if len(args) == 1 {
				logPath = args[0]
			}
			log, err := pipeline.MemGraph(pipeline.MemGraphConfig{
				LogPath:     logPath,
				PlotPath:    cc.Cfg.MemLogPlotPath(),
				ExcludeType: exclude,
			}, cc.Logger)
			if err != nil {
				return err
			}
			defer log.Release()

			if err := renderFrame(cc.Renderer, log, maxRows); err != nil {
				return err
			}
			if cc.Renderer.EffectiveMode() != output.ModeJSON {
				cc.Renderer.Success("wrote " + cc.Cfg.MemLogPlotPath())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exclude, "exclude", pipeline.MarkerBuild, "Sample type to drop")
	cmd.Flags().IntVarP(&maxRows, "rows", "n", 0, "Rows to preview (0 for the default, -1 for all)")
	return cmd
}
