package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/config"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func TestLoadWithNoFileAppliesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", cfg.PrimarySymbol)
	assert.Equal(t, 2.0, cfg.EntryThreshold)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "primary_symbol: EURUSD\nsecondary_symbol: GBPUSD\nentry_threshold: 2.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", cfg.PrimarySymbol)
	assert.Equal(t, "GBPUSD", cfg.SecondarySymbol)
	assert.Equal(t, 2.5, cfg.EntryThreshold)
}

func TestValidateRejectsIdenticalSymbols(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.SecondarySymbol = cfg.PrimarySymbol
	assert.Error(t, config.Validate(&cfg))
}

func TestValidateRejectsExitThresholdAtOrAboveEntry(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.ExitThreshold = cfg.EntryThreshold
	assert.Error(t, config.Validate(&cfg))
}

func TestValidateRejectsStopLossAtOrBelowEntry(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.StopLossZScore = cfg.EntryThreshold
	assert.Error(t, config.Validate(&cfg))
}

func TestValidateRejectsTooSmallWindow(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.RollingWindowSize = 29
	assert.Error(t, config.Validate(&cfg))
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := types.DefaultConfig()
	assert.NoError(t, config.Validate(&cfg))
}

func TestNewLoggerBuildsAtEveryLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		logger, err := config.NewLogger(level)
		require.NoError(t, err)
		require.NotNil(t, logger)
	}
}
