package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcos-screening-server/internal/config"
	"github.com/pcos-screening-server/internal/domain"
	"github.com/pcos-screening-server/internal/store"
)

func testLiteConfig(t *testing.T) *config.LiteConfig {
	t.Helper()
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.CacheTTL = time.Hour
	cfg.LogLevel = "error"
	return cfg
}

func TestNewLiteServer(t *testing.T) {
	cfg := testLiteConfig(t)

	server, err := NewLiteServer(cfg, "test", WithLogger(silentLogger()))
	require.NoError(t, err)
	defer server.Close()

	assert.NotNil(t, server.GetStore())
	assert.NotNil(t, server.GetCache())

	_, err = os.Stat(cfg.ScreeningDBPath())
	assert.NoError(t, err, "SQLite database should be created in the data directory")
}

func TestNewLiteServer_WithStore(t *testing.T) {
	cfg := testLiteConfig(t)
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "custom.db"))
	require.NoError(t, err)

	server, err := NewLiteServer(cfg, "test", WithStore(st), WithLogger(silentLogger()))
	require.NoError(t, err)
	defer server.Close()

	assert.Same(t, st, server.GetStore())

	_, err = os.Stat(cfg.ScreeningDBPath())
	assert.True(t, os.IsNotExist(err), "default database should not be opened when a store is supplied")
}

func TestNewLiteServer_InvalidLogLevel(t *testing.T) {
	cfg := testLiteConfig(t)
	cfg.LogLevel = "loud"

	_, err := NewLiteServer(cfg, "test")
	assert.Error(t, err)
}

func TestLiteServer_Close(t *testing.T) {
	server, err := NewLiteServer(testLiteConfig(t), "test", WithLogger(silentLogger()))
	require.NoError(t, err)
	require.NoError(t, server.Close())

	_, err = server.GetStore().Get(context.Background(), "any")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
