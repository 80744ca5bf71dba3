// Package types provides configuration types for the pair-trading engine.
package types

import "time"

// Config holds the flat operator configuration keys described in spec.md §6.
// Every field is optional and carries a default via DefaultConfig; binding
// from file/env is done by internal/config using viper.
type Config struct {
	PrimarySymbol   string `mapstructure:"primary_symbol"`
	SecondarySymbol string `mapstructure:"secondary_symbol"`

	EntryThreshold  float64 `mapstructure:"entry_threshold"`
	ExitThreshold   float64 `mapstructure:"exit_threshold"`
	StopLossZScore  float64 `mapstructure:"stop_loss_zscore"`
	ScaleInterval   float64 `mapstructure:"scale_interval"`
	InitialFraction float64 `mapstructure:"initial_fraction"`

	RollingWindowSize int `mapstructure:"rolling_window_size"`
	UpdateIntervalS   int `mapstructure:"update_interval_s"`

	HedgeDriftMinLots float64 `mapstructure:"hedge_drift_min_lots"`
	VolumeMultiplier  float64 `mapstructure:"volume_multiplier"`

	MaxLossPerSetupPct float64 `mapstructure:"max_loss_per_setup_pct"`
	DailyLossLimitPct  float64 `mapstructure:"daily_loss_limit_pct"`
	SessionStartHHMM   string  `mapstructure:"session_start_hhmm"`
	SessionEndHHMM     string  `mapstructure:"session_end_hhmm"`

	MagicNumber int `mapstructure:"magic_number"`

	EnablePyramiding         bool `mapstructure:"enable_pyramiding"`
	EnableVolumeRebalancing  bool `mapstructure:"enable_volume_rebalancing"`
	EnableManualPositionSync bool `mapstructure:"enable_manual_position_sync"`

	// MinAdjustmentIntervalS is kept for forward compatibility (see
	// spec.md §9 open question on min_adjustment_interval); defaults to 0
	// and is not enforced as a cooldown by internal/rebalancer.
	MinAdjustmentIntervalS int `mapstructure:"min_adjustment_interval_s"`

	// MinInterExecutionMS is the grid's cooldown between two executions of
	// the same spread (spec.md §4.3); default 0.
	MinInterExecutionMS int64 `mapstructure:"min_inter_execution_ms"`

	MarginLevelFloorPct float64 `mapstructure:"margin_level_floor_pct"`

	StateFilePath string `mapstructure:"state_file_path"`

	LogLevel string `mapstructure:"log_level"`

	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`

	BarPeriod time.Duration `mapstructure:"bar_period"`
}

// DefaultConfig returns the configuration with every default named in
// spec.md §4/§6.
func DefaultConfig() Config {
	return Config{
		PrimarySymbol:   "XAUUSD",
		SecondarySymbol: "XAGUSD",

		EntryThreshold:  2.0,
		ExitThreshold:   0.5,
		StopLossZScore:  3.5,
		ScaleInterval:   0.5,
		InitialFraction: 0.33,

		RollingWindowSize: 1000,
		UpdateIntervalS:   3600,

		HedgeDriftMinLots: 0.01,
		VolumeMultiplier:  1.0,

		MaxLossPerSetupPct: 0.02,
		DailyLossLimitPct:  0.05,
		SessionStartHHMM:   "00:00",
		SessionEndHHMM:     "23:59",

		MagicNumber: 0,

		EnablePyramiding:         true,
		EnableVolumeRebalancing:  true,
		EnableManualPositionSync: true,

		MinAdjustmentIntervalS: 0,
		MinInterExecutionMS:    0,

		MarginLevelFloorPct: 150.0,

		StateFilePath: "state.json",
		LogLevel:      "info",

		HTTPHost: "127.0.0.1",
		HTTPPort: 8088,

		BarPeriod: time.Hour,
	}
}

// HedgeRatioConfig configures the blended C2 estimator (spec.md §4.2).
type HedgeRatioConfig struct {
	OLSWeight             float64       `mapstructure:"ols_weight"`
	DollarNeutralWeight   float64       `mapstructure:"dollar_neutral_weight"`
	VolAdjustedWeight     float64       `mapstructure:"vol_adjusted_weight"`
	KalmanWeight          float64       `mapstructure:"kalman_weight"`
	KalmanProcessNoise    float64       `mapstructure:"kalman_process_noise"`
	KalmanObservationVar  float64       `mapstructure:"kalman_observation_var"`
	VolLookback           int           `mapstructure:"vol_lookback"`
	UpdateInterval        time.Duration `mapstructure:"update_interval"`
	PrimaryContractSize   float64       `mapstructure:"primary_contract_size"`
	SecondaryContractSize float64       `mapstructure:"secondary_contract_size"`
}

// DefaultHedgeRatioConfig returns the weights/noise defaults from spec.md §4.2.
func DefaultHedgeRatioConfig() HedgeRatioConfig {
	return HedgeRatioConfig{
		OLSWeight:             0.30,
		DollarNeutralWeight:   0.30,
		VolAdjustedWeight:     0.20,
		KalmanWeight:          0.20,
		KalmanProcessNoise:    1e-5,
		KalmanObservationVar:  1.0,
		VolLookback:           60,
		UpdateInterval:        time.Hour,
		PrimaryContractSize:   100,
		SecondaryContractSize: 5000,
	}
}

// RiskGateConfig configures C6 (spec.md §4.6).
type RiskGateConfig struct {
	MaxLossPerSetupPct float64
	DailyLossLimitPct  float64
	MarginLevelFloor   float64
	SessionStartHHMM   string
	SessionEndHHMM     string
}

// MonitorConfig configures C7 (spec.md §4.7).
type MonitorConfig struct {
	CheckInterval       time.Duration
	UserResponseTimeout time.Duration
}

// DefaultMonitorConfig returns the defaults named in spec.md §4.7.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckInterval:       5 * time.Second,
		UserResponseTimeout: 60 * time.Second,
	}
}
