package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every configuration environment variable. A double
// underscore separates nested keys: LEAPFRAME_RELATIONAL__PASSWORD sets
// relational.password.
const EnvPrefix = "LEAPFRAME_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configNames = []string{"leapframe.yaml", "leapframe.yml"}

// configIn returns the config file in dir, or "".
func configIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a leapframe config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot picks the directory relative paths resolve against:
// the explicit config file's directory, then the nearest ancestor holding a
// leapframe config file, then the working directory.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":            DefaultDataDir,
		"mem_log_dir":         DefaultMemLogDir,
		"plot":                DefaultPlot,
		"alpha":               DefaultAlpha,
		"environment":         DefaultEnv,
		"verbose":             false,
		"output":              DefaultOutput,
		"duckdb.type":         "duckdb",
		"relational.type":     DefaultRelationalType,
		"relational.host":     DefaultRelationalHost,
		"relational.user":     DefaultRelationalUser,
		"relational.password": DefaultRelationalPassword,
		"relational.database": DefaultRelationalDatabase,
		"scan.dir":            DefaultScanDir,
	}
}

// LoadConfig loads configuration from defaults, the config file, environment
// variables and flags. Precedence (highest to lowest): flags > env vars >
// config file > defaults. An empty cfgFile searches the project root.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile)

	// Directories given as flags are relative to the working directory.
	var flagDataDir string
	if flags != nil && flags.Changed("data-dir") {
		if v, _ := flags.GetString("data-dir"); v != "" {
			flagDataDir, _ = filepath.Abs(v)
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = configIn(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables: LEAPFRAME_DATA_DIR -> data_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only when explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	if envCfg, ok := cfg.Environments[cfg.Environment]; ok {
		if envCfg.DataDir != "" && flagDataDir == "" {
			cfg.DataDir = envCfg.DataDir
		}
		cfg.DuckDB = MergeTargetConfig(cfg.DuckDB, envCfg.DuckDB)
		cfg.Relational = MergeTargetConfig(cfg.Relational, envCfg.Relational)
	}

	cfg.resolvePaths(flagDataDir)
	for _, t := range []*TargetConfig{cfg.DuckDB, cfg.Relational} {
		ApplyTargetDefaults(t)
		expandTargetEnvVars(t)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// resolvePaths anchors relative paths at the project root and derives the
// sample file locations from the data directory.
func (c *Config) resolvePaths(flagDataDir string) {
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	} else {
		c.DataDir = resolvePathRelativeTo(c.DataDir, c.ProjectRoot)
	}
	c.MemLogDir = resolvePathRelativeTo(c.MemLogDir, c.ProjectRoot)
	c.PlotPath = resolvePathRelativeTo(c.PlotPath, c.ProjectRoot)
	c.Scan.Dir = resolvePathRelativeTo(c.Scan.Dir, c.ProjectRoot)

	if c.CSVPath == "" {
		c.CSVPath = filepath.Join(c.DataDir, CSVFile)
	} else {
		c.CSVPath = resolvePathRelativeTo(c.CSVPath, c.ProjectRoot)
	}
	if c.ParquetPath == "" {
		c.ParquetPath = filepath.Join(c.DataDir, ParquetFile)
	} else {
		c.ParquetPath = resolvePathRelativeTo(c.ParquetPath, c.ProjectRoot)
	}

	if c.DuckDB != nil {
		if c.DuckDB.Database == "" {
			c.DuckDB.Database = filepath.Join(c.DataDir, DuckDBFile)
		} else {
			c.DuckDB.Database = resolvePathRelativeTo(c.DuckDB.Database, c.ProjectRoot)
		}
	}
	if c.Relational != nil && isFileBacked(c.Relational.Type) {
		c.Relational.Database = resolvePathRelativeTo(c.Relational.Database, c.ProjectRoot)
	}
}

func isFileBacked(dbType string) bool {
	switch strings.ToLower(dbType) {
	case "duckdb", "sqlite":
		return true
	default:
		return false
	}
}

// MemLogPath returns the memory log location.
func (c *Config) MemLogPath() string { return filepath.Join(c.MemLogDir, MemLogFile) }

// MarkerPath returns the progress marker location.
func (c *Config) MarkerPath() string { return filepath.Join(c.MemLogDir, MarkerFile) }

// MemLogPlotPath returns the memory plot location.
func (c *Config) MemLogPlotPath() string { return filepath.Join(c.MemLogDir, MemLogPlotFile) }

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := &TargetConfig{
		Type:     base.Type,
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Schema:   base.Schema,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return merged
}

// configKey is used to store the loaded config in context.
type configKey struct{}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context, or nil.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}
