package appbootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"status-service/config"
	"status-service/core/store"
	"status-service/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		DBDriver:   config.DriverSQLite,
		DBURL:      "sqlite:///" + filepath.Join(t.TempDir(), "data", "incidents.db"),
		ListenAddr: "127.0.0.1:0",
		Version:    "test",
		DB:         config.DBConfig{ConnectAttempts: 2, ConnectInterval: 10 * time.Millisecond},
		Stream:     config.StreamConfig{PingInterval: time.Second},
		Generator:  config.GeneratorConfig{Disabled: true},
	}
}

func TestNewAppliesMigrationsAndRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	app, err := New(context.Background(), cfg, utils.NewDiscardLogger())
	require.NoError(t, err)
	defer app.Close()

	version, err := store.SchemaVersion(context.Background(), app.db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.NotNil(t, app.Generator())
	require.NotNil(t, app.Server())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestComposeRuntimeWiresStreamUnlessDisabled(t *testing.T) {
	cfg := testConfig(t)
	db, err := store.NewDB(cfg, nil)
	require.NoError(t, err)
	defer db.Close()

	cfg.Generator.Disabled = false
	rt := composeRuntime(cfg, db, utils.NewDiscardLogger())
	assert.NotNil(t, rt.serverDeps.Stream)
	assert.NotNil(t, rt.serverDeps.Generator)
	assert.Len(t, rt.workers, 2)

	cfg.Stream.Disabled = true
	rt = composeRuntime(cfg, db, utils.NewDiscardLogger())
	assert.Nil(t, rt.serverDeps.Stream)
	assert.Len(t, rt.workers, 1)
}

func TestComposeRuntimeDropsGenerateEndpointWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	db, err := store.NewDB(cfg, nil)
	require.NoError(t, err)
	defer db.Close()

	rt := composeRuntime(cfg, db, utils.NewDiscardLogger())
	assert.Nil(t, rt.serverDeps.Generator)
	assert.NotNil(t, rt.generator)
}

func TestWaitForDBGivesUpAfterAttempts(t *testing.T) {
	cfg := testConfig(t)
	db, err := store.NewDB(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = waitForDB(context.Background(), db, cfg.DB, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
