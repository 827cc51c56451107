package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsDisabledWithReasonablePoolSettings(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Greater(t, cfg.QueryTimeout.Seconds(), 0.0)
}

func TestNewManager_DisabledConfigSkipsConnection(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})

	require.NoError(t, err)
	require.NotNil(t, mgr)
	assert.False(t, mgr.IsEnabled())
	assert.Nil(t, mgr.Repository())
}

func TestNewManager_EnabledWithoutDSNErrors(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: true, DSN: ""})

	require.Error(t, err)
	assert.Nil(t, mgr)
	assert.Contains(t, err.Error(), "DSN")
}

func TestManager_CloseOnDisabledManagerIsNoop(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, mgr.Close())
}

func TestManager_HealthReportsDisabledStatusWithoutADatabase(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	check := mgr.Health().Health(context.Background())

	assert.True(t, check.Healthy)
	assert.Contains(t, check.Errors, "database persistence disabled")
}

func TestManager_PingOnDisabledManagerSucceeds(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, mgr.Health().Ping(context.Background()))
}

func TestManager_StatsOnDisabledManagerReportsDisabled(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	stats := mgr.Health().Stats(context.Background())

	assert.Equal(t, false, stats["enabled"])
	assert.Equal(t, "disabled", stats["status"])
}
