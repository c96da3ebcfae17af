// Package cli provides the command-line interface for leapframe.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/cli/commands"
	"github.com/leapstack-labs/leapframe/internal/cli/config"
	"github.com/leapstack-labs/leapframe/internal/cli/output"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "leapframe",
		Short: "leapframe - columnar data interchange pipelines",
		Long: `leapframe moves a columnar sample between Parquet, DuckDB and a relational
database, reads it back through a common Arrow interchange layer, and plots
and tests the result.

It also scans Parquet directories, inspects Parquet files and graphs memory
usage logs.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			return attachCommandContext(cmd, cfgFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leapframe.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the penguins sample (default: ./data)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		modes := make([]string, len(output.Modes))
		for i, m := range output.Modes {
			modes[i] = string(m)
		}
		return modes, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewSetupCommand())
	rootCmd.AddCommand(commands.NewInterchangeCommand())
	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewMemGraphCommand())
	rootCmd.AddCommand(commands.NewMemLogCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// skipsConfig reports whether cmd runs without a project configuration.
func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd, "version":
		return true
	}
	return false
}

// attachCommandContext loads the configuration and stores it on cmd's
// context with a run-scoped logger and a renderer for the selected output mode.
func attachCommandContext(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
		With(slog.String("run_id", uuid.NewString()), slog.String("command", cmd.Name()))
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config", slog.String("path", cfg.ConfigFile))
	}

	ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), logger)
	ctx = context.WithValue(ctx, commands.RendererKey(), output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode))
	cmd.SetContext(ctx)
	return nil
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
