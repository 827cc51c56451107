package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppConfig_MatchesSpecDefaults(t *testing.T) {
	cfg := DefaultAppConfig()

	assert.Equal(t, 300, cfg.ScanIntervalSeconds)
	assert.Equal(t, 22, cfg.DailySummaryHourUTC)
	assert.Equal(t, []string{"BTCUSD", "ETHUSD", "EURUSD"}, cfg.WatchedSymbols)
	assert.Equal(t, ":8090", cfg.OperatorHTTPAddr)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadAppConfig_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig().ScanIntervalSeconds, cfg.ScanIntervalSeconds)
}

func TestLoadAppConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan_interval_seconds: 120\nwatched_symbols: [\"SOLUSD\"]\n"), 0o644))

	cfg, err := LoadAppConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 120, cfg.ScanIntervalSeconds)
	assert.Equal(t, []string{"SOLUSD"}, cfg.WatchedSymbols)
}

func TestApplyEnvOverrides_LayersOverDefault(t *testing.T) {
	t.Setenv("SCAN_INTERVAL_SECONDS", "60")
	t.Setenv("WATCHED_SYMBOLS", "btcusd, ethusd")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := LoadAppConfig("")

	require.NoError(t, err)
	assert.Equal(t, 60, cfg.ScanIntervalSeconds)
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, cfg.WatchedSymbols)
	assert.False(t, cfg.MetricsEnabled)
}

func TestApplyFlags_OnlyAppliesChangedFlags(t *testing.T) {
	cfg := DefaultAppConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("scan-interval", 300, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Set("scan-interval", "45"))

	ApplyFlags(&cfg, flags)

	assert.Equal(t, 45, cfg.ScanIntervalSeconds)
	assert.Equal(t, "info", cfg.LogLevel) // untouched flag leaves the default
}

func TestApplyFlags_NilFlagSetIsNoop(t *testing.T) {
	cfg := DefaultAppConfig()
	before := cfg

	ApplyFlags(&cfg, nil)

	assert.Equal(t, before, cfg)
}

func TestSplitCSV_TrimsUppercasesAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, splitCSV(" btcusd , ,ethusd"))
}
