// Package config loads leapframe CLI configuration.
//
// Values come, lowest precedence first, from built-in defaults, the
// leapframe.yaml project file, LEAPFRAME_ environment variables and
// explicitly set command-line flags.
package config

import (
	"github.com/leapstack-labs/leapframe/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string  `koanf:"data_dir"`
	MemLogDir    string  `koanf:"mem_log_dir"`
	CSVPath      string  `koanf:"csv"`
	ParquetPath  string  `koanf:"parquet"`
	PlotPath     string  `koanf:"plot"`
	Alpha        float64 `koanf:"alpha"`
	Environment  string  `koanf:"environment"`
	Verbose      bool    `koanf:"verbose"`
	OutputFormat string  `koanf:"output"`

	// DuckDB receives the second part of the sample.
	DuckDB *TargetConfig `koanf:"duckdb"`
	// Relational receives the third part of the sample.
	Relational *TargetConfig `koanf:"relational"`

	Scan         ScanConfig           `koanf:"scan"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot anchors every relative path. Not read from the file.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// ScanConfig configures the scan command.
type ScanConfig struct {
	Dir    string `koanf:"dir"`
	Column string `koanf:"column"`
	From   int64  `koanf:"from"`
	To     int64  `koanf:"to"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	DataDir    string        `koanf:"data_dir"`
	DuckDB     *TargetConfig `koanf:"duckdb"`
	Relational *TargetConfig `koanf:"relational"`
}

// Default configuration values.
const (
	DefaultDataDir   = "data"
	DefaultMemLogDir = "mem_log"
	DefaultPlot      = "plot.html"
	DefaultAlpha     = 0.05
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
	DefaultScanDir   = "data/lfs_large/part"

	// File names inside DataDir and MemLogDir.
	CSVFile        = "penguins.csv"
	ParquetFile    = "penguins.parquet"
	DuckDBFile     = "penguins.duckdb"
	MemLogFile     = "out.log"
	MarkerFile     = "prog_type.txt"
	MemLogPlotFile = "plot.html"
)

// Default relational target: a local PostgreSQL with the stock superuser.
const (
	DefaultRelationalType     = "postgres"
	DefaultRelationalHost     = "localhost"
	DefaultRelationalUser     = "postgres"
	DefaultRelationalPassword = "postgres"
	DefaultRelationalDatabase = "postgres"
)
