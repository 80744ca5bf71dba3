// Package rebalancer issues the single-leg corrective order that keeps
// an open spread's broker-side lot ratio in line with the current
// hedge ratio. Grounded on hybrid_rebalancer.py's check_volume_imbalance
// decision tree, with its rounding overridden to ceiling-only per
// SPEC_FULL.md's supplemented-feature note (the original's
// VolumeCalculator._round_to_step rounds to nearest; its own
// check_volume_imbalance path already used ceil, which this follows).
package rebalancer

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/utils"
)

// Config holds the rebalancer's thresholds (spec.md §4.4).
type Config struct {
	MinAbsoluteDriftLots float64
	LotStep              decimal.Decimal
}

// Check computes the imbalance for an open spread against the
// authoritative broker lot magnitudes and returns the correction to
// issue, or nil if the spread is within tolerance.
//
// primaryLots/secondaryLots are broker-reported magnitudes (always
// non-negative); beta and z are the current snapshot's values.
func Check(cfg Config, spreadID, primarySymbol, secondarySymbol string, primaryLots, secondaryLots, beta, z float64) *types.VolumeAdjustment {
	if beta == 0 {
		return nil
	}
	imbalance := primaryLots - secondaryLots/beta

	if math.Abs(imbalance) < cfg.MinAbsoluteDriftLots {
		return nil
	}

	if imbalance < 0 {
		// Primary is short of target: correct the primary leg.
		target := secondaryLots / beta
		needed := target - primaryLots
		side := types.OrderSideBuy
		if z < 0 {
			side = types.OrderSideSell
		}
		qty := utils.RoundUpToStepSize(decimal.NewFromFloat(math.Abs(needed)), cfg.LotStep)
		return &types.VolumeAdjustment{
			SpreadID:  spreadID,
			Symbol:    primarySymbol,
			Side:      side,
			Quantity:  qty,
			Reason:    "primary_short_of_target",
			BetaAfter: beta,
			Imbalance: imbalance,
		}
	}

	// Primary is over target: correct the secondary leg.
	target := primaryLots * beta
	needed := target - secondaryLots
	side := types.OrderSideBuy
	if z > 0 {
		side = types.OrderSideSell
	}
	qty := utils.RoundUpToStepSize(decimal.NewFromFloat(math.Abs(needed)), cfg.LotStep)
	return &types.VolumeAdjustment{
		SpreadID:  spreadID,
		Symbol:    secondarySymbol,
		Side:      side,
		Quantity:  qty,
		Reason:    "secondary_over_target",
		BetaAfter: beta,
		Imbalance: imbalance,
	}
}
