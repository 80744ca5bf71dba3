package rebalancer_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rebalancer"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func testConfig() rebalancer.Config {
	return rebalancer.Config{
		MinAbsoluteDriftLots: 0.01,
		LotStep:              decimal.NewFromFloat(0.01),
	}
}

func TestCheckWithinToleranceReturnsNil(t *testing.T) {
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.10, 3.001, 30.0, 1.5)
	assert.Nil(t, adj)
}

func TestCheckZeroBetaReturnsNil(t *testing.T) {
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.10, 3.0, 0, 1.5)
	assert.Nil(t, adj)
}

// TestPrimaryShortOfTarget covers I < 0: primary is under target, so the
// primary leg is corrected. z > 0 buys primary.
func TestPrimaryShortOfTargetBuysWhenZPositive(t *testing.T) {
	// primary=0.08, secondary=3.0, beta=30 -> target primary = 3.0/30 = 0.10
	// imbalance = 0.08 - 0.10 = -0.02 < 0 => correct primary, BUY since z>0.
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.08, 3.0, 30.0, 1.5)
	require.NotNil(t, adj)
	assert.Equal(t, "XAUUSD", adj.Symbol)
	assert.Equal(t, types.OrderSideBuy, adj.Side)
	assert.Equal(t, "primary_short_of_target", adj.Reason)
	assert.True(t, adj.Quantity.GreaterThan(decimal.Zero))
}

func TestPrimaryShortOfTargetSellsWhenZNegative(t *testing.T) {
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.08, 3.0, 30.0, -1.5)
	require.NotNil(t, adj)
	assert.Equal(t, types.OrderSideSell, adj.Side)
}

// TestSecondaryOverTarget covers I > 0: primary is over target, so the
// secondary leg is corrected. z > 0 sells secondary, z < 0 buys it.
func TestSecondaryOverTargetSellsWhenZPositive(t *testing.T) {
	// primary=0.12, secondary=3.0, beta=30 -> target secondary = 0.12*30=3.6
	// imbalance = 0.12 - 3.0/30 = 0.12-0.10 = 0.02 > 0 => correct secondary.
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.12, 3.0, 30.0, 1.5)
	require.NotNil(t, adj)
	assert.Equal(t, "XAGUSD", adj.Symbol)
	assert.Equal(t, types.OrderSideSell, adj.Side)
	assert.Equal(t, "secondary_over_target", adj.Reason)
}

func TestSecondaryOverTargetBuysWhenZNegative(t *testing.T) {
	adj := rebalancer.Check(testConfig(), "s1", "XAUUSD", "XAGUSD", 0.12, 3.0, 30.0, -1.5)
	require.NotNil(t, adj)
	assert.Equal(t, types.OrderSideBuy, adj.Side)
}

func TestQuantityRoundsUpToLotStep(t *testing.T) {
	cfg := testConfig()
	cfg.LotStep = decimal.NewFromFloat(0.1)
	// imbalance magnitude 0.02, rounded up to the 0.1 step -> 0.1.
	adj := rebalancer.Check(cfg, "s1", "XAUUSD", "XAGUSD", 0.08, 3.0, 30.0, 1.5)
	require.NotNil(t, adj)
	assert.True(t, adj.Quantity.Equal(decimal.NewFromFloat(0.1)))
}
