package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
slot_api:
  base_url: http://slots.internal:8080
  api_key: sekret
  cache_ttl_seconds: 120
order_api:
  base_url: http://orders.internal:8080
scheduling:
  horizon_days: 30
  probe_batch_size: 5
  reschedule_attempts: 3
  approval_timeout_hours: 24
refund:
  block_zero_fraction: false
  tiers:
    - min_hours_before_start: 24
      refund_fraction: 1.0
    - min_hours_before_start: 2
      refund_fraction: 0.5
    - min_hours_before_start: 0
      refund_fraction: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://slots.internal:8080", cfg.SlotAPI.BaseURL)
	assert.Equal(t, "sekret", cfg.SlotAPI.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30, cfg.HorizonDays())
	assert.Equal(t, 5, cfg.ProbeBatchSize())
	assert.Equal(t, 3, cfg.RescheduleAttempts())
	assert.Equal(t, 24*time.Hour, cfg.ApprovalTimeout())

	tiers := cfg.RefundTiers()
	require.Len(t, tiers, 3)
	assert.Equal(t, 1.0, tiers[0].RefundFraction)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SLOT_API_KEY", "from-env")
	path := writeConfig(t, `
slot_api:
  base_url: http://slots.internal:8080
  api_key: ${SLOT_API_KEY}
order_api:
  base_url: http://orders.internal:8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SlotAPI.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
slot_api:
  base_url: http://slots.internal:8080
order_api:
  base_url: http://orders.internal:8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.HorizonDays())
	assert.Equal(t, 5, cfg.ProbeBatchSize())
	assert.Equal(t, 3, cfg.RescheduleAttempts())
	assert.Equal(t, 48*time.Hour, cfg.ApprovalTimeout())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Zero(t, cfg.CacheTTL())
	assert.Len(t, cfg.RefundTiers(), 3, "default tier table applies when config omits tiers")
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
order_api:
  base_url: http://orders.internal:8080
`)
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
