package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/adapters/source"
)

const sampleProvidersYAML = `
providers:
  kraken:
    host: api.kraken.com
    rps: 1
    burst: 1
    daily_budget: 1000
    ttl_secs: 60
    base_url: https://api.kraken.com
    enabled: true
    backoff_ms:
      base: 200
      max: 5000
      jitter: true
    circuit:
      failure_threshold: 2
      success_threshold: 1
      timeout_ms: 15000
  stooq:
    host: stooq.com
    rps: 1
    burst: 1
    daily_budget: 1000
    ttl_secs: 60
    base_url: https://stooq.com
    enabled: true
    backoff_ms:
      base: 200
      max: 5000
      jitter: true
    circuit:
      failure_threshold: 5
      success_threshold: 1
      timeout_ms: 30000
budget:
  warn_threshold: 0.8
  reset_hour: 0
global:
  max_concurrent_per_host: 2
  user_agent: marketintel/1.0
`

func writeProvidersYAML(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProvidersYAML), 0o644))
	return path
}

func TestLoadProvidersConfig_ParsesAndValidates(t *testing.T) {
	cfg, err := LoadProvidersConfig(writeProvidersYAML(t))

	require.NoError(t, err)
	assert.True(t, cfg.IsProviderEnabled("kraken"))
	assert.False(t, cfg.IsProviderEnabled("unknown"))
}

func TestProvidersConfig_BreakerConfig_PicksStrictestEnabled(t *testing.T) {
	cfg, err := LoadProvidersConfig(writeProvidersYAML(t))
	require.NoError(t, err)

	bc := cfg.BreakerConfig()

	assert.Equal(t, uint32(2), bc.ConsecutiveFailures)
	assert.Equal(t, int64(15000), bc.Timeout.Milliseconds())
}

func TestProvidersConfig_BreakerConfig_DefaultsWhenNoneEnabled(t *testing.T) {
	cfg := &ProvidersConfig{Providers: map[string]ProviderConfig{}}

	bc := cfg.BreakerConfig()

	assert.Equal(t, source.DefaultBreakerConfig().ConsecutiveFailures, bc.ConsecutiveFailures)
}
