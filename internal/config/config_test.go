package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsIsValid(t *testing.T) {
	cfg := LoadDefaults()
	assert.Equal(t, ModeMonitor, cfg.Mode)
	assert.Equal(t, 1000.0, cfg.StartingBalance)
	assert.Greater(t, cfg.PollInterval, 0)
	assert.NoError(t, validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
mode: paper
starting_balance: 500
risk:
  max_position_size: 42
strategies:
  signal_trader:
    enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModePaper, cfg.Mode)
	assert.Equal(t, 500.0, cfg.StartingBalance)
	assert.Equal(t, 42.0, cfg.Risk.MaxPositionSize)
	assert.True(t, cfg.Strategies.SignalTrader.Enabled)
	// 未设置的字段回落默认值
	assert.Greater(t, cfg.Risk.MaxDailyLoss, 0.0)
	assert.Equal(t, SizingFixed, cfg.PositionSizing.Method)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := writeConfig(t, "mode: yolo\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	path := writeConfig(t, "mode: paper\nbanana: 1\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLiveModeRequiresPrivateKey(t *testing.T) {
	path := writeConfig(t, "mode: live\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key")
}

func TestLiveModeReadsEnvCredentials(t *testing.T) {
	t.Setenv("POLYMARKET_PRIVATE_KEY", "0xdeadbeef")
	t.Setenv("POLYMARKET_FUNDER", "0xfunder")
	path := writeConfig(t, "mode: live\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", cfg.Live.PrivateKey)
	assert.Equal(t, "0xfunder", cfg.Live.Funder)
}

func TestDumpRedactsLiveCredentials(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Live.PrivateKey = "0xsecret"
	cfg.Live.Funder = "0xfunder"

	out, err := Dump(cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "0xsecret")
	assert.NotContains(t, out, "0xfunder")
	assert.Contains(t, out, "mode: monitor")
}

func TestDiffReportsChangedLeaves(t *testing.T) {
	oldCfg := LoadDefaults()
	newCfg := LoadDefaults()
	newCfg.Risk.MaxPositionSize = oldCfg.Risk.MaxPositionSize + 10
	newCfg.Strategies.SignalTrader.Enabled = !oldCfg.Strategies.SignalTrader.Enabled

	changed, err := Diff(oldCfg, newCfg)
	require.NoError(t, err)
	assert.Contains(t, changed, "risk.max_position_size")
	assert.Contains(t, changed, "strategies.signal_trader.enabled")
	assert.Len(t, changed, 2)
}

func TestDiffIgnoresCredentialChanges(t *testing.T) {
	oldCfg := LoadDefaults()
	newCfg := LoadDefaults()
	newCfg.Live.PrivateKey = "0xnewkey"

	changed, err := Diff(oldCfg, newCfg)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestValidationBounds(t *testing.T) {
	cfg := LoadDefaults()
	cfg.PositionSizing.KellyFraction = 1.5
	assert.Error(t, validate(cfg))

	cfg = LoadDefaults()
	cfg.Aggregation.MinConfidence = -0.1
	assert.Error(t, validate(cfg))

	cfg = LoadDefaults()
	cfg.ConditionalOrders.DefaultStopLossPct = 1.2
	assert.Error(t, validate(cfg))

	cfg = LoadDefaults()
	cfg.ExitManager.MaxHoldHours = 0
	assert.Error(t, validate(cfg))
}
