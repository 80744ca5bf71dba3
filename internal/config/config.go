// Package config loads the engine's flat key/value configuration via
// viper, binding environment variables, an optional config file, and
// the struct defaults in pkg/types together the way the teacher wires
// flag defaults and env overrides in cmd/server/main.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// EnvPrefix is prepended to every environment variable the engine reads,
// e.g. PrimarySymbol (key primary_symbol) binds to PAIRENGINE_PRIMARY_SYMBOL.
const EnvPrefix = "PAIRENGINE"

// Load reads defaults, an optional file at path (skipped if empty or
// missing), and environment overrides into a types.Config.
func Load(path string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	bindDefaults(v, cfg)

	out := &types.Config{}
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(out, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// bindDefaults seeds viper with cfg's zero-config values so unset keys
// still unmarshal correctly and AutomaticEnv has something to shadow.
func bindDefaults(v *viper.Viper, cfg *types.Config) {
	v.SetDefault("primary_symbol", cfg.PrimarySymbol)
	v.SetDefault("secondary_symbol", cfg.SecondarySymbol)
	v.SetDefault("entry_threshold", cfg.EntryThreshold)
	v.SetDefault("exit_threshold", cfg.ExitThreshold)
	v.SetDefault("stop_loss_zscore", cfg.StopLossZScore)
	v.SetDefault("scale_interval", cfg.ScaleInterval)
	v.SetDefault("initial_fraction", cfg.InitialFraction)
	v.SetDefault("rolling_window_size", cfg.RollingWindowSize)
	v.SetDefault("update_interval_s", cfg.UpdateIntervalS)
	v.SetDefault("hedge_drift_min_lots", cfg.HedgeDriftMinLots)
	v.SetDefault("volume_multiplier", cfg.VolumeMultiplier)
	v.SetDefault("max_loss_per_setup_pct", cfg.MaxLossPerSetupPct)
	v.SetDefault("daily_loss_limit_pct", cfg.DailyLossLimitPct)
	v.SetDefault("session_start_hhmm", cfg.SessionStartHHMM)
	v.SetDefault("session_end_hhmm", cfg.SessionEndHHMM)
	v.SetDefault("magic_number", cfg.MagicNumber)
	v.SetDefault("enable_pyramiding", cfg.EnablePyramiding)
	v.SetDefault("enable_volume_rebalancing", cfg.EnableVolumeRebalancing)
	v.SetDefault("enable_manual_position_sync", cfg.EnableManualPositionSync)
	v.SetDefault("min_adjustment_interval_s", cfg.MinAdjustmentIntervalS)
	v.SetDefault("min_inter_execution_ms", cfg.MinInterExecutionMS)
	v.SetDefault("margin_level_floor_pct", cfg.MarginLevelFloorPct)
	v.SetDefault("state_file_path", cfg.StateFilePath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("http_host", cfg.HTTPHost)
	v.SetDefault("http_port", cfg.HTTPPort)
	v.SetDefault("bar_period", cfg.BarPeriod)
}

// Validate rejects a config that would leave the engine in an
// inconsistent state before any component is constructed.
func Validate(cfg *types.Config) error {
	if cfg.PrimarySymbol == "" || cfg.SecondarySymbol == "" {
		return fmt.Errorf("config: primary and secondary symbols are required")
	}
	if cfg.PrimarySymbol == cfg.SecondarySymbol {
		return fmt.Errorf("config: primary and secondary symbols must differ")
	}
	if cfg.EntryThreshold <= 0 {
		return fmt.Errorf("config: entry_threshold must be positive")
	}
	if cfg.ExitThreshold < 0 || cfg.ExitThreshold >= cfg.EntryThreshold {
		return fmt.Errorf("config: exit_threshold must be in [0, entry_threshold)")
	}
	if cfg.StopLossZScore <= cfg.EntryThreshold {
		return fmt.Errorf("config: stop_loss_zscore must exceed entry_threshold")
	}
	if cfg.ScaleInterval <= 0 {
		return fmt.Errorf("config: scale_interval must be positive")
	}
	if cfg.InitialFraction <= 0 || cfg.InitialFraction > 1 {
		return fmt.Errorf("config: initial_fraction must be in (0, 1]")
	}
	if cfg.RollingWindowSize < 30 {
		return fmt.Errorf("config: rolling_window_size must be at least 30 bars")
	}
	if cfg.MaxLossPerSetupPct <= 0 || cfg.DailyLossLimitPct <= 0 {
		return fmt.Errorf("config: loss limit percentages must be positive")
	}
	return nil
}

// NewLogger builds a zap logger at the requested level using the
// console encoder and field keys the rest of the engine's components
// assume when they call logger.Named(component).
func NewLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}
