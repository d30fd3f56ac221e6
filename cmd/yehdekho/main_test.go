package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iishyfishyy/yehdekho/internal/config"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/recommend"
	"github.com/iishyfishyy/yehdekho/internal/recommend/matrixstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", formatDuration(now))
	assert.Equal(t, "1 minute", formatDuration(now.Add(-90*time.Second)))
	assert.Equal(t, "5 minutes", formatDuration(now.Add(-5*time.Minute)))
	assert.Equal(t, "1 hour", formatDuration(now.Add(-time.Hour-time.Minute)))
	assert.Equal(t, "3 days", formatDuration(now.Add(-72*time.Hour)))
}

func TestBuildRows(t *testing.T) {
	rows := buildRows([]recommend.Result{
		{Index: 3, Title: "Aliens", Score: 0.7},
		{Index: 1, Title: "Heat", Score: 0.2},
	}, []string{"https://img.example/aliens.jpg", ""})

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "https://img.example/aliens.jpg", rows[0].Poster)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Empty(t, rows[1].Poster)

	// missing poster slice leaves posters empty
	rows = buildRows([]recommend.Result{{Title: "Solo"}}, nil)
	assert.Empty(t, rows[0].Poster)
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()

	cfg.Engine.Cache = config.CacheNone
	store, closeStore, err := openStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, store)
	closeStore()

	cfg.Engine.Cache = config.CacheMemory
	store, closeStore, err = openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &matrixstore.MemoryStore{}, store)
	closeStore()

	cfg.Engine.Cache = config.CacheSQLite
	cfg.Engine.CachePath = filepath.Join(t.TempDir(), "cache", "matrices.db")
	store, closeStore, err = openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &matrixstore.SQLiteStore{}, store)
	closeStore()
}

func TestNewEngine_FromCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,tags\nA,space war robot\nB,space war alien\nC,romance drama\n"), 0644))

	cfg := config.Default()
	cfg.Catalog.Path = path
	cfg.Engine.Cache = config.CacheMemory

	engine, store, closeStore, err := newEngine(cfg)
	require.NoError(t, err)
	defer closeStore()
	require.NotNil(t, store)

	results, err := engine.Recommend(context.Background(), "A", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B", results[0].Title)
	assert.Equal(t, 1, store.Count())
}

func TestNewEngine_LogsCatalogOnce(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,tags\nA,space war\nB,space robot\n"), 0644))

	cfg := config.Default()
	cfg.Catalog.Path = path
	cfg.Engine.Cache = config.CacheNone

	_, _, closeStore, err := newEngine(cfg)
	require.NoError(t, err)
	defer closeStore()

	assert.Equal(t, 1, strings.Count(buf.String(), `"message":"catalog loaded"`))
}

func TestNewFetcher(t *testing.T) {
	cfg := config.Default()

	cfg.Poster.APIKey = ""
	assert.IsType(t, poster.NopFetcher{}, newFetcher(cfg))

	cfg.Poster.APIKey = "secret"
	cfg.Poster.Enabled = false
	assert.IsType(t, poster.NopFetcher{}, newFetcher(cfg))

	cfg.Poster.Enabled = true
	assert.IsType(t, &poster.OMDbFetcher{}, newFetcher(cfg))
}
