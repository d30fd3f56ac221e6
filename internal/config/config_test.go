package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(LegacyAPIKeyEnv, "")
	return home
}

func TestLoad_NoFile(t *testing.T) {
	withHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg)

	exists, err := Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadOrDefault_UsesDefaults(t *testing.T) {
	withHome(t)

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Engine.MaxTerms)
	assert.Equal(t, 5, cfg.Engine.TopK)
	assert.Equal(t, CacheSQLite, cfg.Engine.Cache)
	assert.Equal(t, 10*time.Second, cfg.Poster.Timeout)
}

func TestSaveAndLoad(t *testing.T) {
	home := withHome(t)

	cfg := Default()
	cfg.Catalog.Path = "/data/movies.csv"
	cfg.Engine.TopK = 8
	cfg.Poster.APIKey = "secret"
	cfg.Poster.Timeout = 3 * time.Second
	require.NoError(t, Save(cfg))

	path := filepath.Join(home, ConfigDirName, ConfigFileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "/data/movies.csv", loaded.Catalog.Path)
	assert.Equal(t, 8, loaded.Engine.TopK)
	assert.Equal(t, "secret", loaded.Poster.APIKey)
	assert.Equal(t, 3*time.Second, loaded.Poster.Timeout)
	assert.NoError(t, loaded.Validate())
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	withHome(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  path: movies.json\nengine:\n  cache: memory\n"), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "movies.json", cfg.Catalog.Path)
	assert.Equal(t, CacheMemory, cfg.Engine.Cache)
	assert.Equal(t, 5000, cfg.Engine.MaxTerms)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	withHome(t)
	t.Setenv("YEHDEKHO_ENGINE_TOP_K", "12")
	t.Setenv("YEHDEKHO_CATALOG_PATH", "/env/movies.csv")
	t.Setenv("YEHDEKHO_LOG_LEVEL", "debug")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Engine.TopK)
	assert.Equal(t, "/env/movies.csv", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile_LegacyAPIKey(t *testing.T) {
	withHome(t)
	t.Setenv(LegacyAPIKeyEnv, "legacy")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Poster.APIKey)

	t.Setenv("YEHDEKHO_POSTER_API_KEY", "preferred")
	cfg, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "preferred", cfg.Poster.APIKey)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed"), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Catalog.Path = "movies.csv"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with catalog", func(c *Config) {}, false},
		{"missing catalog", func(c *Config) { c.Catalog.Path = "" }, true},
		{"zero max terms", func(c *Config) { c.Engine.MaxTerms = 0 }, true},
		{"too many terms", func(c *Config) { c.Engine.MaxTerms = 100001 }, true},
		{"top k too large", func(c *Config) { c.Engine.TopK = 51 }, true},
		{"unknown cache", func(c *Config) { c.Engine.Cache = "redis" }, true},
		{"no cache", func(c *Config) { c.Engine.Cache = CacheNone }, false},
		{"bad poster url", func(c *Config) { c.Poster.BaseURL = "not a url" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveCachePath(t *testing.T) {
	home := withHome(t)

	cfg := Default()
	path, err := cfg.ResolveCachePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ConfigDirName, CacheFileName), path)

	cfg.Engine.CachePath = "/tmp/custom.db"
	path, err = cfg.ResolveCachePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)
}
