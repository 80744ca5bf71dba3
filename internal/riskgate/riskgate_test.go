package riskgate_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/clock"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
)

func testConfig() riskgate.Config {
	return riskgate.Config{
		MaxLossPerSetupPct: 0.02,
		DailyLossLimitPct:  0.05,
		MarginLevelFloor:   150.0,
		SessionStartHHMM:   "00:00",
		SessionEndHHMM:     "23:59",
	}
}

func TestCanActivateAllowsWhenUnlocked(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g := riskgate.New(zap.NewNop(), testConfig(), fc, decimal.NewFromInt(10000))
	assert.NoError(t, g.CanActivate())
}

func TestMarginSafetyTripsCloseAll(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g := riskgate.New(zap.NewNop(), testConfig(), fc, decimal.NewFromInt(10000))

	result := g.Evaluate(fc.Local(), decimal.NewFromInt(10000), decimal.Zero, decimal.Zero, 149.9, nil)
	assert.True(t, result.CloseAll)
	assert.Equal(t, "margin_safety", result.Cap)
}

func TestMarginSafetyAtFloorDoesNotTrip(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g := riskgate.New(zap.NewNop(), testConfig(), fc, decimal.NewFromInt(10000))

	result := g.Evaluate(fc.Local(), decimal.NewFromInt(10000), decimal.Zero, decimal.Zero, 150.0, nil)
	assert.False(t, result.CloseAll)
}

// TestDailyLossLimitBoundary: a session loss exactly at -daily_loss_limit_pct
// trips the lock; one cent short of it does not.
func TestDailyLossLimitBoundary(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	balance := decimal.NewFromInt(10000)
	g := riskgate.New(zap.NewNop(), testConfig(), fc, balance)

	// limit = 10000 * 0.05 = 500.
	atLimit := decimal.NewFromInt(-500)
	result := g.Evaluate(fc.Local(), balance, atLimit, decimal.Zero, 200.0, nil)
	require.True(t, result.CloseAll)
	assert.Equal(t, "session_loss", result.Cap)

	fc2 := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g2 := riskgate.New(zap.NewNop(), testConfig(), fc2, balance)
	shortOfLimit := decimal.NewFromFloat(-499.99)
	result2 := g2.Evaluate(fc2.Local(), balance, shortOfLimit, decimal.Zero, 200.0, nil)
	assert.False(t, result2.CloseAll)
}

func TestSessionLossLockRejectsFurtherActivation(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	balance := decimal.NewFromInt(10000)
	g := riskgate.New(zap.NewNop(), testConfig(), fc, balance)

	g.Evaluate(fc.Local(), balance, decimal.NewFromInt(-600), decimal.Zero, 200.0, nil)
	err := g.CanActivate()
	require.ErrorIs(t, err, errs.ErrRiskLimitBreached)
}

func TestPerSetupLossCapIdentifiesOffendingSpread(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	balance := decimal.NewFromInt(10000)
	g := riskgate.New(zap.NewNop(), testConfig(), fc, balance)

	// setup limit = 10000*0.02 = 200.
	perSetup := map[string]decimal.Decimal{
		"spread-a": decimal.NewFromInt(-50),
		"spread-b": decimal.NewFromInt(-250),
	}
	result := g.Evaluate(fc.Local(), balance, decimal.Zero, decimal.NewFromInt(-300), 200.0, perSetup)
	assert.Equal(t, "spread-b", result.CloseSetupOnly)
	assert.False(t, result.CloseAll)
}

func TestSessionRolloverUnlocksAndResetsRealisedPnL(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	balance := decimal.NewFromInt(10000)
	g := riskgate.New(zap.NewNop(), testConfig(), fc, balance)

	g.Evaluate(fc.Local(), balance, decimal.NewFromInt(-600), decimal.Zero, 200.0, nil)
	require.Error(t, g.CanActivate())

	fc.Advance(25 * time.Hour)
	g.Evaluate(fc.Local(), balance, decimal.Zero, decimal.Zero, 200.0, nil)
	assert.NoError(t, g.CanActivate())
	assert.True(t, g.Snapshot().RealisedPnL.IsZero())
}

func TestRestoreSeedsLedgerFromPersistedSnapshot(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g := riskgate.New(zap.NewNop(), testConfig(), fc, decimal.NewFromInt(10000))

	lockedAt := fc.Local()
	lockedUntil := lockedAt.Add(time.Hour)
	g.Restore(decimal.NewFromInt(-42), true, lockedAt, lockedUntil, "2026-01-05")

	snap := g.Snapshot()
	assert.True(t, snap.RealisedPnL.Equal(decimal.NewFromInt(-42)))
	assert.True(t, snap.TradingLocked)
	assert.Equal(t, lockedUntil, snap.LockedUntil)
}

func TestRecordRealisedAccumulates(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	g := riskgate.New(zap.NewNop(), testConfig(), fc, decimal.NewFromInt(10000))

	g.RecordRealised(decimal.NewFromInt(-10))
	g.RecordRealised(decimal.NewFromInt(-5))
	assert.True(t, g.Snapshot().RealisedPnL.Equal(decimal.NewFromInt(-15)))
}
