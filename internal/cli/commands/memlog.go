package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/pipeline"
)

// NewMemLogCommand creates the memlog command.
func NewMemLogCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "memlog",
		Short: "Record memory usage until a scan finishes",
		Long: `Sample used system memory into the memory log, labelling each sample with
the current progress marker. Recording stops after the first sample taken
once the marker reads "done", or on interrupt.`,
		Example: `  # In one terminal
  leapframe memlog
  # In another
  leapframe scan && leapframe memgraph`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if err := pipeline.WriteMarker(cc.Cfg.MarkerPath(), pipeline.MarkerBuild); err != nil {
				return err
			}
			if err := pipeline.MemLog(cmd.Context(), pipeline.MemLogConfig{
				LogPath:    cc.Cfg.MemLogPath(),
				MarkerPath: cc.Cfg.MarkerPath(),
				Interval:   interval,
			}, cc.Logger); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			cc.Renderer.Success("wrote " + cc.Cfg.MemLogPath())
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", pipeline.DefaultMemLogInterval, "Time between samples")
	return cmd
}
