package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "engine:\n  poll_seconds: 3\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.IdleInterval())
	assert.Equal(t, 1, cfg.Engine.MaxPositions)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Engine.Instruments)

	// Las bandas por defecto cubren 0.978-0.984 y 0.985-0.9999
	require.Len(t, cfg.Engine.Bands, 2)
	assert.InDelta(t, 0.98, cfg.Engine.Bands[0].Quote, 1e-9)
	assert.InDelta(t, 0.99, cfg.Engine.Bands[1].Quote, 1e-9)

	assert.Equal(t, "https://clob.polymarket.com", cfg.API.CLOBBase)
	assert.Equal(t, 90*time.Second, cfg.MaxHold())
}

func TestLoad_InvalidBandRejected(t *testing.T) {
	path := writeConfig(t, `
engine:
  bands:
    - { min: 0.99, max: 0.98, quote: 0.98 }
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_QuoteOutOfRangeRejected(t *testing.T) {
	path := writeConfig(t, `
engine:
  bands:
    - { min: 0.90, max: 0.95, quote: 1.2 }
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_CredentialsOnlyFromEnv(t *testing.T) {
	t.Setenv("CLOB_API_KEY", "env-key")
	t.Setenv("CLOB_API_SECRET", "env-secret")
	t.Setenv("CLOB_API_PASSPHRASE", "env-pass")

	path := writeConfig(t, "engine: {}\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.API.APIKey)
	assert.Equal(t, "env-secret", cfg.API.APISecret)
	assert.Equal(t, "env-pass", cfg.API.APIPassphrase)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
