package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapframe/pkg/adapter"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.Config
		want   string
	}{
		{
			name:   "defaults",
			config: adapter.Config{Database: "postgres"},
			want:   "host=localhost port=5432 dbname=postgres sslmode=disable",
		},
		{
			name: "credentials",
			config: adapter.Config{
				Host: "db", Port: 5433, Database: "penguins", Username: "postgres", Password: "postgres",
			},
			want: "host=db port=5433 dbname=penguins user=postgres password=postgres sslmode=disable",
		},
		{
			name: "quoted password",
			config: adapter.Config{
				Database: "penguins", Username: "app", Password: `it's a \secret`,
			},
			want: `host=localhost port=5432 dbname=penguins user=app password='it\'s a \\secret' sslmode=disable`,
		},
		{
			name: "options override sslmode",
			config: adapter.Config{
				Database: "penguins",
				Options:  map[string]string{"sslmode": "require", "application_name": "leapframe"},
			},
			want: "host=localhost port=5432 dbname=penguins application_name=leapframe sslmode=require",
		},
		{
			name:   "schema sets the search path",
			config: adapter.Config{Database: "penguins", Schema: "survey"},
			want:   "host=localhost port=5432 dbname=penguins search_path=survey sslmode=disable",
		},
		{
			name:   "public schema is left alone",
			config: adapter.Config{Database: "penguins", Schema: "public"},
			want:   "host=localhost port=5432 dbname=penguins sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPostgresDSN(tt.config))
		})
	}
}

func TestBuildPostgresDSN_ParsesWithPgx(t *testing.T) {
	cfg, err := pgx.ParseConfig(buildPostgresDSN(adapter.Config{
		Host: "db", Database: "penguins", Username: "app", Password: "p@ss word'", Schema: "survey",
	}))
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Host)
	assert.Equal(t, uint16(5432), cfg.Port)
	assert.Equal(t, "penguins", cfg.Database)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss word'", cfg.Password)
	assert.Equal(t, "survey", cfg.RuntimeParams["search_path"])
}

func TestAdapter_DefaultSchema(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "public", adp.defaultSchema())

	adp.Cfg.Schema = "survey"
	assert.Equal(t, "survey", adp.defaultSchema())
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{"exec", func(ctx context.Context, adp *Adapter) error {
			return adp.Exec(ctx, "SELECT 1")
		}},
		{"query", func(ctx context.Context, adp *Adapter) error {
			_, err := adp.Query(ctx, "SELECT 1")
			return err
		}},
		{"metadata", func(ctx context.Context, adp *Adapter) error {
			_, err := adp.GetTableMetadata(ctx, "penguins")
			return err
		}},
		{"load csv", func(ctx context.Context, adp *Adapter) error {
			return adp.LoadCSV(ctx, "penguins", "penguins.csv")
		}},
		{"write record", func(ctx context.Context, adp *Adapter) error {
			return adp.WriteRecord(ctx, "penguins", nil)
		}},
		{"read arrow", func(ctx context.Context, adp *Adapter) error {
			_, err := adp.ReadArrow(ctx, "SELECT 1")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			err := tt.operation(context.Background(), adp)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not established")
		})
	}
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok)

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.False(t, pg.IsConnected())
	assert.NoError(t, pg.Close())
}
