package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/crate/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
remote:
  base_url: https://catalog.example.com/v1/
  timeout: 5s
storage:
  driver: sqlite
  dir: `+dir+`
sync:
  interval: 12h
  default_ids: [a, b]
  page_size: 25
`)
	t.Setenv("CRATE_SESSION_USER_ID", "listener-1")
	t.Setenv("CRATE_WORKERS_SIZE", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://catalog.example.com/v1/", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, []string{"a", "b"}, cfg.Sync.DefaultIDs)
	assert.Equal(t, 25, cfg.Sync.PageSize)
	assert.Equal(t, "listener-1", cfg.Session.UserID)
	assert.Equal(t, 8, cfg.Workers.Size)
	assert.Equal(t, 32, cfg.Workers.Queue)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "storage:\n  driver: mongo\n")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAlbumIDs, cfg.Sync.DefaultIDs)
	assert.Equal(t, 24*time.Hour, cfg.Sync.Interval)
}

func TestSaveAndReload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Token = "tok"
	cfg.Session.UserID = "u9"
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, writeConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Remote.Token)
	assert.Equal(t, "u9", loaded.Session.UserID)
	assert.Equal(t, cfg.Sync.Interval, loaded.Sync.Interval)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "INFO")
	logger.Debug("hidden")
	logger.Info("synced", "count", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "synced", entry["msg"])
	assert.EqualValues(t, 3, entry["count"])
	assert.Equal(t, "crate", entry["app"])
}

func TestSetupLogger_Stderr(t *testing.T) {
	logger, closer, err := SetupLogger(&LoggingConfig{File: LogStderr, Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.NoError(t, closer.Close())
}

func TestSetupLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "crate.log")
	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "INFO"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestOpenStore_Drivers(t *testing.T) {
	for _, driver := range []StorageDriver{StorageDriverBolt, StorageDriverSQLite} {
		t.Run(string(driver), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Driver = driver
			cfg.Storage.Dir = t.TempDir()

			s, err := OpenStore(cfg)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.UpsertAlbums([]domain.CatalogItem{{ID: "a", Title: "A", Year: "2020", Genre: domain.DefaultGenre}}))
			n, err := s.CountAlbums()
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	p, err := NewProbe("http://"+addr, time.Second)
	require.NoError(t, err)
	assert.True(t, p.Online(context.Background()))

	require.NoError(t, ln.Close())
	p2, err := NewProbe("http://"+addr, 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, p2.Online(context.Background()))
}

func TestNewConnectivity_Offline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network.Offline = true

	conn, err := NewConnectivity(cfg)
	require.NoError(t, err)
	assert.False(t, conn.Online(context.Background()))
	assert.True(t, StaticConnectivity(true).Online(context.Background()))
}

func TestStaticSession(t *testing.T) {
	assert.Equal(t, "u1", StaticSession("u1").UserID())
}
