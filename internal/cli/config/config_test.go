package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapframe/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leapframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("data-dir", "", "data directory")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.StringP("output", "o", "", "output format")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	root, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, filepath.Join(root, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(root, "data", "penguins.csv"), cfg.CSVPath)
	assert.Equal(t, filepath.Join(root, "data", "penguins.parquet"), cfg.ParquetPath)
	assert.Equal(t, filepath.Join(root, "plot.html"), cfg.PlotPath)
	assert.Equal(t, filepath.Join(root, "mem_log", "out.log"), cfg.MemLogPath())
	assert.Equal(t, filepath.Join(root, "mem_log", "prog_type.txt"), cfg.MarkerPath())
	assert.Equal(t, filepath.Join(root, "mem_log", "plot.html"), cfg.MemLogPlotPath())
	assert.Equal(t, filepath.Join(root, "data", "lfs_large", "part"), cfg.Scan.Dir)
	assert.InDelta(t, DefaultAlpha, cfg.Alpha, 1e-12)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)

	require.NotNil(t, cfg.DuckDB)
	assert.Equal(t, "duckdb", cfg.DuckDB.Type)
	assert.Equal(t, filepath.Join(root, "data", "penguins.duckdb"), cfg.DuckDB.Database)
	assert.Equal(t, "main", cfg.DuckDB.Schema)

	require.NotNil(t, cfg.Relational)
	assert.Equal(t, "postgres", cfg.Relational.Type)
	assert.Equal(t, "localhost", cfg.Relational.Host)
	assert.Equal(t, 5432, cfg.Relational.Port)
	assert.Equal(t, "postgres", cfg.Relational.User)
	assert.Equal(t, "postgres", cfg.Relational.Database)
	assert.Equal(t, "public", cfg.Relational.Schema)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `data_dir: sample
plot: out/plot.html
alpha: 0.01
relational:
  type: sqlite
  database: sample/penguins.sqlite
scan:
  dir: /srv/lfs
  column: year
  from: 2010
  to: 2012
`)
	root := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "sample"), cfg.DataDir)
	assert.Equal(t, filepath.Join(root, "sample", "penguins.parquet"), cfg.ParquetPath)
	assert.Equal(t, filepath.Join(root, "out", "plot.html"), cfg.PlotPath)
	assert.InDelta(t, 0.01, cfg.Alpha, 1e-12)
	assert.Equal(t, "sqlite", cfg.Relational.Type)
	assert.Equal(t, filepath.Join(root, "sample", "penguins.sqlite"), cfg.Relational.Database)
	assert.Equal(t, "main", cfg.Relational.Schema)
	assert.Equal(t, ScanConfig{Dir: "/srv/lfs", Column: "year", From: 2010, To: 2012}, cfg.Scan)
}

func TestLoadConfig_FoundUpward(t *testing.T) {
	path := writeConfig(t, "alpha: 0.1\n")
	root := filepath.Dir(path)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, cfg.Alpha, 1e-12)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "data"), cfg.DataDir)
	assert.Equal(t, "leapframe.yaml", filepath.Base(cfg.ConfigFile))
}

func TestLoadConfig_Environments(t *testing.T) {
	content := `environment: dev
relational:
  host: db.internal
environments:
  dev:
    data_dir: dev-data
  ci:
    relational:
      type: sqlite
      database: ci.sqlite
`
	t.Run("selected by file", func(t *testing.T) {
		path := writeConfig(t, content)
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(filepath.Dir(path), "dev-data"), cfg.DataDir)
		assert.Equal(t, "postgres", cfg.Relational.Type)
		assert.Equal(t, "db.internal", cfg.Relational.Host)
	})

	t.Run("selected by env var", func(t *testing.T) {
		path := writeConfig(t, content)
		t.Setenv("LEAPFRAME_ENVIRONMENT", "ci")
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Relational.Type)
		assert.Equal(t, filepath.Join(filepath.Dir(path), "ci.sqlite"), cfg.Relational.Database)
		assert.Equal(t, "db.internal", cfg.Relational.Host, "unset fields are inherited")
	})

	t.Run("unknown environment keeps base", func(t *testing.T) {
		path := writeConfig(t, content)
		t.Setenv("LEAPFRAME_ENVIRONMENT", "nonexistent")
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Relational.Type)
	})
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "output: text\nalpha: 0.2\n")

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("LEAPFRAME_OUTPUT", "json")
		t.Setenv("LEAPFRAME_RELATIONAL__PASSWORD", "from_env")
		cfg, err := LoadConfig(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, "from_env", cfg.Relational.Password)
		assert.InDelta(t, 0.2, cfg.Alpha, 1e-12)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("LEAPFRAME_OUTPUT", "json")
		flags := testFlags()
		require.NoError(t, flags.Set("output", "markdown"))
		require.NoError(t, flags.Set("verbose", "true"))
		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "markdown", cfg.OutputFormat)
		assert.True(t, cfg.Verbose)
	})

	t.Run("unset flag keeps file", func(t *testing.T) {
		cfg, err := LoadConfig(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.OutputFormat)
		assert.False(t, cfg.Verbose)
	})
}

func TestLoadConfig_DataDirFlag(t *testing.T) {
	path := writeConfig(t, "data_dir: from_file\n")
	cwd := t.TempDir()
	t.Chdir(cwd)
	wd, err := os.Getwd()
	require.NoError(t, err)

	flags := testFlags()
	require.NoError(t, flags.Set("data-dir", "from_flag"))
	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	// Flag paths resolve against the working directory, not the project root.
	assert.Equal(t, filepath.Join(wd, "from_flag"), cfg.DataDir)
	assert.Equal(t, filepath.Join(wd, "from_flag", "penguins.duckdb"), cfg.DuckDB.Database)
}

func TestLoadConfig_ExpandsCredentials(t *testing.T) {
	t.Setenv("TEST_PG_USER", "analyst")
	t.Setenv("TEST_PG_PASSWORD", "secret123")
	path := writeConfig(t, `relational:
  user: ${TEST_PG_USER}
  password: ${TEST_PG_PASSWORD}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "analyst", cfg.Relational.User)
	assert.Equal(t, "secret123", cfg.Relational.Password)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown relational type", "relational:\n  type: mysql\n", "unknown adapter type"},
		{"alpha out of range", "alpha: 1.5\n", "alpha must be in (0, 1)"},
		{"bad yaml", "relational: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name      string
		target    *TargetConfig
		wantErr   bool
		errSubstr string
	}{
		{name: "nil", target: nil, wantErr: true, errSubstr: "target is required"},
		{name: "empty type", target: &TargetConfig{}, wantErr: true, errSubstr: "target type is required"},
		{name: "duckdb", target: &TargetConfig{Type: "duckdb"}},
		{name: "duckdb uppercase", target: &TargetConfig{Type: "DuckDB"}},
		{name: "postgres", target: &TargetConfig{Type: "postgres"}},
		{name: "sqlite", target: &TargetConfig{Type: "sqlite"}},
		{name: "unknown", target: &TargetConfig{Type: "oracle"}, wantErr: true, errSubstr: "unknown adapter type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget("relational", tt.target)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.Contains(t, err.Error(), "relational")
		})
	}
}

func TestValidateTarget_ListsAvailable(t *testing.T) {
	err := ValidateTarget("duckdb", &TargetConfig{Type: "invalid_db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duckdb")
	assert.Contains(t, err.Error(), "leapframe.yaml")
}

func TestDefaultSchemaForType(t *testing.T) {
	tests := []struct {
		dbType   string
		expected string
	}{
		{"duckdb", "main"},
		{"postgres", "public"},
		{"POSTGRES", "public"},
		{"sqlite", "main"},
		{"", "main"},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultSchemaForType(tt.dbType))
		})
	}
}

func TestApplyTargetDefaults(t *testing.T) {
	t.Run("postgres port and schema", func(t *testing.T) {
		target := &TargetConfig{Type: "Postgres"}
		ApplyTargetDefaults(target)
		assert.Equal(t, "postgres", target.Type)
		assert.Equal(t, 5432, target.Port)
		assert.Equal(t, "public", target.Schema)
	})

	t.Run("preserves existing schema", func(t *testing.T) {
		target := &TargetConfig{Type: "duckdb", Schema: "custom"}
		ApplyTargetDefaults(target)
		assert.Equal(t, "custom", target.Schema)
	})

	t.Run("nil is ignored", func(_ *testing.T) {
		ApplyTargetDefaults(nil)
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"multiple variables", "${TEST_VAR_ONE}/${TEST_VAR_TWO}", "value_one/value_two"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"mixed set and unset", "${TEST_VAR_ONE}:${UNSET_VAR}", "value_one:${UNSET_VAR}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "duckdb", Database: "test.db"}
		assert.Equal(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "duckdb", Database: "test.db"}
		assert.Equal(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override replaces base fields", func(t *testing.T) {
		base := &TargetConfig{Type: "postgres", Database: "base", Schema: "public", Host: "localhost"}
		override := &TargetConfig{Database: "override", Schema: "custom"}

		result := MergeTargetConfig(base, override)
		assert.Equal(t, "postgres", result.Type)
		assert.Equal(t, "override", result.Database)
		assert.Equal(t, "custom", result.Schema)
		assert.Equal(t, "localhost", result.Host)
	})

	t.Run("options and params are merged", func(t *testing.T) {
		base := &TargetConfig{
			Type:    "duckdb",
			Options: map[string]string{"key1": "base1", "key2": "base2"},
			Params:  map[string]any{"threads": 4},
		}
		override := &TargetConfig{
			Options: map[string]string{"key2": "override2"},
			Params:  map[string]any{"memory_limit": "1GB"},
		}

		result := MergeTargetConfig(base, override)
		assert.Equal(t, map[string]string{"key1": "base1", "key2": "override2"}, result.Options)
		assert.Equal(t, map[string]any{"threads": 4, "memory_limit": "1GB"}, result.Params)
	})
}
