// Package riskgate enforces the three independent capital-protection
// caps every risk tick evaluates against: per-setup loss, session loss,
// and margin safety. Grounded on internal/execution/risk_manager.go's
// mutex-guarded state/config shape and on the other-examples risk-gate
// file's reject-closure and session-reset idioms, adapted from a
// generic trade-approval gate to the specific three caps spec.md §4.6
// names.
package riskgate

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// Config holds the gate's thresholds (spec.md §4.6).
type Config struct {
	MaxLossPerSetupPct float64
	DailyLossLimitPct  float64
	MarginLevelFloor   float64
	SessionStartHHMM   string
	SessionEndHHMM     string
}

// Clock abstracts wall-clock time so tests can drive session rollover
// deterministically.
type Clock interface {
	Local() time.Time
}

// Gate owns the process-wide risk ledger: realised P&L since session
// start, the trading_locked flag, and the session boundary.
type Gate struct {
	mu     sync.RWMutex
	logger *zap.Logger
	cfg    Config
	clock  Clock

	sessionStartBalance decimal.Decimal
	realisedPnL         decimal.Decimal

	tradingLocked bool
	lockedAt      time.Time
	lockedUntil   time.Time

	currentSessionDate string
}

// New creates a Gate seeded with the account's current balance as the
// session-start balance.
func New(logger *zap.Logger, cfg Config, clock Clock, startBalance decimal.Decimal) *Gate {
	return &Gate{
		logger:              logger.Named("riskgate"),
		cfg:                 cfg,
		clock:               clock,
		sessionStartBalance: startBalance,
		currentSessionDate:  clock.Local().Format("2006-01-02"),
	}
}

// CapResult is the outcome of evaluating the three caps on a risk tick.
type CapResult struct {
	// CloseSetupOnly names a single spread_id to close, from the
	// per-setup cap; empty if that cap did not trip.
	CloseSetupOnly string
	// CloseAll is true when the session-loss or margin-safety cap
	// tripped and every open spread must be closed.
	CloseAll bool
	// Cap names which cap tripped, for metrics/alerting.
	Cap string
}

// Evaluate runs the three caps against the current open-position set.
// perSetupUnrealised maps spread_id to its own unrealised P&L, so the
// per-setup cap can identify which single spread to close.
func (g *Gate) Evaluate(now time.Time, balance decimal.Decimal, realisedSinceStart decimal.Decimal, unrealisedTotal decimal.Decimal, marginLevel float64, perSetupUnrealised map[string]decimal.Decimal) CapResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverIfNeededLocked(now)

	if g.tradingLocked {
		return CapResult{}
	}

	// 3. Margin safety.
	if marginLevel < g.cfg.MarginLevelFloor {
		g.logger.Warn("margin safety floor breached", zap.Float64("margin_level", marginLevel))
		return CapResult{CloseAll: true, Cap: "margin_safety"}
	}

	// 2. Session loss cap.
	sessionLimit := balance.Mul(decimal.NewFromFloat(g.cfg.DailyLossLimitPct))
	sessionLoss := realisedSinceStart.Add(unrealisedTotal)
	if sessionLoss.Neg().GreaterThanOrEqual(sessionLimit) {
		g.tripSessionLockLocked(now)
		return CapResult{CloseAll: true, Cap: "session_loss"}
	}

	// 1. Per-setup loss cap.
	setupLimit := balance.Mul(decimal.NewFromFloat(g.cfg.MaxLossPerSetupPct))
	for spreadID, pnl := range perSetupUnrealised {
		if pnl.Neg().GreaterThanOrEqual(setupLimit) {
			g.logger.Warn("per-setup loss cap breached", zap.String("spread_id", spreadID))
			return CapResult{CloseSetupOnly: spreadID, Cap: "per_setup_loss"}
		}
	}

	return CapResult{}
}

// CanActivate reports whether a new grid may open, per spec.md §4.6's
// "attempt to activate while trading_locked is rejected" rule.
func (g *Gate) CanActivate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.tradingLocked {
		return errs.ErrRiskLimitBreached
	}
	return nil
}

// RecordRealised adds a settled spread's P&L to the session's realised
// total.
func (g *Gate) RecordRealised(pnl decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.realisedPnL = g.realisedPnL.Add(pnl)
}

// Restore seeds the ledger from a persisted snapshot taken before the
// process last stopped, per spec.md §9's reload-if-present rule for
// realised-since-start. If no snapshot is available the caller should
// leave the Gate at its New-constructed zero state instead of calling
// this.
func (g *Gate) Restore(realisedPnL decimal.Decimal, tradingLocked bool, lockedAt, lockedUntil time.Time, sessionDate string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.realisedPnL = realisedPnL
	g.tradingLocked = tradingLocked
	g.lockedAt = lockedAt
	g.lockedUntil = lockedUntil
	if sessionDate != "" {
		g.currentSessionDate = sessionDate
	}
}

// Snapshot returns a read-only copy of the ledger for the status surface.
func (g *Gate) Snapshot() types.RiskLedgerSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return types.RiskLedgerSnapshot{
		SessionStartBalance: g.sessionStartBalance,
		RealisedPnL:         g.realisedPnL,
		TradingLocked:       g.tradingLocked,
		LockedAt:            g.lockedAt,
		LockedUntil:         g.lockedUntil,
	}
}

// PersistFields returns every field statestore needs to round-trip the
// ledger across a restart, without exposing internal bookkeeping (the
// session-date string) through the read-only Snapshot the status API
// serves.
func (g *Gate) PersistFields() (realisedPnL decimal.Decimal, tradingLocked bool, lockedAt, lockedUntil time.Time, sessionDate string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.realisedPnL, g.tradingLocked, g.lockedAt, g.lockedUntil, g.currentSessionDate
}

func (g *Gate) tripSessionLockLocked(now time.Time) {
	g.tradingLocked = true
	g.lockedAt = now
	g.lockedUntil = nextSessionStart(now, g.cfg.SessionStartHHMM)
	g.logger.Error("session loss cap breached, trading locked",
		zap.Time("locked_until", g.lockedUntil))
}

// rolloverIfNeededLocked unlocks and resets realised P&L the first time
// wall-clock time is observed at or past the configured session start
// for a date this ledger has not yet rolled into, retaining closed
// history elsewhere (the tracker, not this ledger).
func (g *Gate) rolloverIfNeededLocked(now time.Time) {
	today := now.Format("2006-01-02")
	if today == g.currentSessionDate {
		return
	}
	if now.Before(sessionStartOn(now, g.cfg.SessionStartHHMM)) {
		return
	}
	g.tradingLocked = false
	g.realisedPnL = decimal.Zero
	g.currentSessionDate = today
	g.logger.Info("session rollover, trading unlocked")
}

func sessionStartOn(now time.Time, hhmm string) time.Time {
	h, m := parseHHMM(hhmm)
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
}

func nextSessionStart(now time.Time, hhmm string) time.Time {
	start := sessionStartOn(now, hhmm)
	if !start.After(now) {
		start = start.Add(24 * time.Hour)
	}
	return start
}

func parseHHMM(hhmm string) (int, int) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
