package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("PW_HEADLESS", "")
	t.Setenv("RECORDING_BUDGET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, 2*time.Minute, cfg.Recorder.Budget)
	assert.Equal(t, 5*time.Second, cfg.Recorder.VisibilityWait)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PW_HEADLESS", "false")
	t.Setenv("PW_RECORD_HAR", "yes")
	t.Setenv("RECORDING_BUDGET", "45s")
	t.Setenv("RECORDING_SETTLE_SCALE", "0.5")
	t.Setenv("APP_MAX_CONCURRENT", "not-a-number")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "recordings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.RecordHar)
	assert.Equal(t, 45*time.Second, cfg.Recorder.Budget)
	assert.InDelta(t, 0.5, cfg.Recorder.SettleScale, 1e-9)
	assert.Equal(t, 2, cfg.App.MaxConcurrent)
	assert.True(t, cfg.Database.Enabled())
	assert.Contains(t, cfg.Database.DSN(), "dbname=recordings")
	assert.Contains(t, cfg.Database.URL(), "postgres://")
}
