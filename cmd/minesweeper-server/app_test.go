package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesweeper/adapters/sqlx"
	"minesweeper/config"
	"minesweeper/core"
	"minesweeper/engine"
)

func TestSetupStorage(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cfg := config.DefaultConfig()
	require.Equal(t, "sql", cfg.Storage.Adapter)
	require.Equal(t, sqlx.DriverSQLite, cfg.Storage.SQL.Driver)
	cfg.Storage.SQL.Database = filepath.Join(t.TempDir(), "default.db")
	store, err := setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	_, err = store.AddEntry(ctx, "kept", 7, core.DifficultyEasy)
	require.NoError(t, err)
	require.NoError(t, store.(io.Closer).Close())

	// a fresh store on the same file sees the entry
	store, err = setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	got, err := store.GetLeaderboard(ctx, 20, core.DifficultyEasy)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].PlayerName)

	cfg.Storage.Adapter = "memory"
	store, err = setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, store)

	cfg.Storage.Adapter = "file"
	cfg.Storage.File.Path = filepath.Join(t.TempDir(), "lb.json")
	store, err = setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	_, err = store.AddEntry(ctx, "a", 1, core.DifficultyEasy)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	cfg.Storage.Adapter = "redis"
	cfg.Storage.Redis.Addr = mr.Addr()
	store, err = setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, store)

	cfg.Storage.Adapter = "sql"
	cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverSQLite)
	cfg.Storage.SQL.Database = filepath.Join(t.TempDir(), "lb.db")
	store, err = setupStorage(ctx, cfg, logger)
	require.NoError(t, err)
	got, err = store.GetLeaderboard(ctx, 20, core.DifficultyEasy)
	require.NoError(t, err)
	assert.Empty(t, got)

	cfg.Storage.Adapter = "tape"
	_, err = setupStorage(ctx, cfg, logger)
	assert.Error(t, err)
}

func TestProvideStorage_ConnectionFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "redis"
	cfg.Storage.Redis.Addr = "127.0.0.1:1"

	_, _, err := provideStorage(context.Background(), cfg, slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnection)
	assert.Equal(t, "storage unreachable", startupFailure(err))
	assert.Equal(t, "schema setup failed", startupFailure(fmt.Errorf("%w: boom", core.ErrSchema)))
	assert.Equal(t, "configuration", startupFailure(fmt.Errorf("bad")))
}

func TestSetupLogging(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Attributes = map[string]string{"service": "leaderboard"}

	var buf bytes.Buffer
	logger := setupLogging(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"leaderboard"`)

	cfg.Logging.Format = "text"
	buf.Reset()
	setupLogging(cfg, &buf).Error("plain")
	assert.True(t, strings.Contains(buf.String(), "msg=plain"))

	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}

func TestProvideHandler_Wiring(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.SQL.Database = filepath.Join(t.TempDir(), "wiring.db")
	var buf bytes.Buffer
	logger := setupLogging(cfg, &buf)

	hub := provideHub()
	stats := provideStats(cfg)
	require.NotNil(t, stats)
	storage, cleanup, err := provideStorage(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	svc, closeSvc := provideService(cfg, logger, hub, stats, provideWebhooks(cfg, logger), storage)
	defer closeSvc()
	h := provideHandler(svc, hub, stats, cfg, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/leaderboard", strings.NewReader(`{"player_name":"zoe","time_seconds":12}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), stats.Total())

	cfg.Analytics.Enabled = false
	assert.Nil(t, provideStats(cfg))
	assert.Nil(t, provideExporter(cfg, logger))

	cfg.Analytics.Enabled = true
	cfg.Analytics.ExportInterval = 1
	assert.NotNil(t, provideExporter(cfg, logger))
}

func TestDispatchMode(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, engine.DispatchSync, dispatchMode(cfg))

	cfg.Webhooks.Endpoints = []string{"http://hooks.local/entries"}
	assert.Equal(t, engine.DispatchAsync, dispatchMode(cfg))

	cfg.Webhooks.Endpoints = nil
	cfg.Leaderboard.AsyncEvents = true
	assert.Equal(t, engine.DispatchAsync, dispatchMode(cfg))
}

func TestProvideService_DefaultDifficulty(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Adapter = "memory"
	cfg.Leaderboard.DefaultDifficulty = core.DifficultyMedium
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storage, cleanup, err := provideStorage(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer cleanup()
	svc, closeSvc := provideService(cfg, logger, provideHub(), nil, provideWebhooks(cfg, logger), storage)
	defer closeSvc()
	h := provideHandler(svc, nil, nil, cfg, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leaderboard", strings.NewReader(`{"player_name":"zoe","time_seconds":12}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?difficulty=medium", nil))
	assert.Contains(t, rec.Body.String(), `"player_name":"zoe"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?difficulty=easy", nil))
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
