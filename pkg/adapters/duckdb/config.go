package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "json", "parquet")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings applied to every new connection (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for reading remote Parquet and CSV files.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", "service_account", etc.
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID    string `mapstructure:"key_id,omitempty"`
	Secret   string `mapstructure:"secret,omitempty"`
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path" for S3
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

// parseParams decodes the raw target params into Params.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement for cfg.
func buildCreateSecretSQL(cfg SecretConfig) string {
	parts := []string{"TYPE " + cfg.Type}
	if cfg.Provider != "" {
		parts = append(parts, "PROVIDER "+cfg.Provider)
	}
	if cfg.Region != "" {
		parts = append(parts, "REGION "+quoteLiteral(cfg.Region))
	}
	if cfg.KeyID != "" {
		parts = append(parts, "KEY_ID "+quoteLiteral(cfg.KeyID))
	}
	if cfg.Secret != "" {
		parts = append(parts, "SECRET "+quoteLiteral(cfg.Secret))
	}
	if cfg.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+quoteLiteral(cfg.Endpoint))
	}
	if cfg.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+quoteLiteral(cfg.URLStyle))
	}
	if cfg.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}
	if scope := scopeSQL(cfg.Scope); scope != "" {
		parts = append(parts, "SCOPE "+scope)
	}

	return "CREATE SECRET (\n    " + strings.Join(parts, ",\n    ") + "\n)"
}

func scopeSQL(scope any) string {
	var items []string
	switch s := scope.(type) {
	case nil:
		return ""
	case string:
		return quoteLiteral(s)
	case []string:
		items = s
	case []any:
		for _, v := range s {
			items = append(items, fmt.Sprint(v))
		}
	default:
		return quoteLiteral(fmt.Sprint(s))
	}

	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quoteLiteral(it)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// settingStatements renders SET statements for settings in key order.
func settingStatements(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, len(keys))
	for i, k := range keys {
		stmts[i] = fmt.Sprintf("SET %s = %s", k, quoteLiteral(settings[k]))
	}
	return stmts
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
