package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapframe/internal/cli/config"
	"github.com/leapstack-labs/leapframe/internal/cli/output"
	"github.com/leapstack-labs/leapframe/pkg/adapter"

	// Register the adapters a command can open.
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/sqlite"
)

// rendererKey is used to store the renderer in context.
type rendererKey struct{}

// RendererKey returns the context key used for storing the renderer.
func RendererKey() interface{} {
	return rendererKey{}
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config, logger and renderer stored by the
// root command. Commands run on their own, as in tests, load the
// configuration from the working directory instead.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.GetConfig(ctx)
	if cfg == nil {
		var err error
		if cfg, err = config.LoadConfig("", nil); err != nil {
			return nil, err
		}
	}

	r, ok := ctx.Value(rendererKey{}).(*output.Renderer)
	if !ok {
		mode, err := output.ParseMode(cfg.OutputFormat)
		if err != nil {
			return nil, err
		}
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: r,
	}, nil
}

// adapterConfig converts a configured target to adapter settings.
func adapterConfig(t *config.TargetConfig) adapter.Config {
	if t == nil {
		return adapter.Config{}
	}
	return t.AdapterConfig()
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// describeTarget names a target without its credentials.
func describeTarget(t *config.TargetConfig) string {
	if t == nil {
		return ""
	}
	if t.Host == "" || t.Type == "duckdb" || t.Type == "sqlite" {
		return fmt.Sprintf("%s:%s", t.Type, t.Database)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", t.Type, t.User, t.Host, t.Port, t.Database)
}
