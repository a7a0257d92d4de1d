package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseFileConfig(t *testing.T) {
	doc := gjson.Parse(`{
		"site": {"title": "Field Notes"},
		"database": {
			"client": "mysql",
			"connection": {"host": "db.example.com", "port": "3306", "user": "ghost", "password": "pw", "database": "blog"},
			"pool": {"max": 4}
		},
		"adapters": {"cache": {"Redis": {"host": "cache.example.com", "port": "6380", "password": "rpw"}}}
	}`)

	cfg := ParseFileConfig(doc)

	assert.Equal(t, "Field Notes", cfg.Title)
	assert.Equal(t, DatabaseConfig{
		Client: "mysql", Host: "db.example.com", Port: "3306",
		User: "ghost", Password: "pw", Name: "blog", MaxOpen: 4,
	}, cfg.Database)
	assert.Equal(t, "cache.example.com:6380", cfg.Cache.Addr())
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.Cache.Enabled())
}

func TestReadFileConfig_Missing(t *testing.T) {
	cfg, err := ReadFileConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Cache.Enabled())
}

func TestReadFileConfig_MaterializedTemplate(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "configs", "config.template.json"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cfg, err := ReadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "DB_HOST", cfg.Database.Host)
	assert.Equal(t, "REDIS_HOST", cfg.Cache.Host)
	assert.Equal(t, 5, cfg.Database.MaxOpen)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DatabaseConfig
		want    string
		wantErr bool
	}{
		{
			name: "mysql",
			cfg:  DatabaseConfig{Client: "mysql", Host: "db", Port: "3306", User: "ghost", Password: "pw", Name: "blog"},
			want: "ghost:pw@tcp(db:3306)/blog?parseTime=true",
		},
		{
			name: "mysql default port",
			cfg:  DatabaseConfig{Host: "db", User: "ghost", Name: "blog"},
			want: "ghost@tcp(db:3306)/blog?parseTime=true",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Client: "pg", Host: "db", User: "ghost", Password: "p w", Name: "blog", SSLMode: "disable"},
			want: "host=db port=5432 user=ghost password='p w' dbname=blog sslmode=disable",
		},
		{
			name:    "unsupported",
			cfg:     DatabaseConfig{Client: "oracle", Host: "db"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
