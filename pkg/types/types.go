// Package types provides shared domain types for the pair-trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents buy or sell on a single leg.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PositionSide represents the direction of an open spread.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Dir returns the directional sign used by the hedge-sign invariant:
// dir(LONG) = +1, dir(SHORT) = -1.
func (s PositionSide) Dir() float64 {
	if s == PositionSideShort {
		return -1
	}
	return 1
}

// Opposite returns the other spread side.
func (s PositionSide) Opposite() PositionSide {
	if s == PositionSideLong {
		return PositionSideShort
	}
	return PositionSideLong
}

// LevelStatus is the lifecycle state of a GridLevel.
type LevelStatus string

const (
	LevelWaiting  LevelStatus = "waiting"
	LevelExecuted LevelStatus = "executed"
	LevelBlocked  LevelStatus = "blocked"
	LevelSkipped  LevelStatus = "skipped"
)

// ActionType tags the kind of decision the grid emits for a snapshot.
type ActionType string

const (
	ActionNone           ActionType = "none"
	ActionExit           ActionType = "exit"
	ActionLevelTrigger   ActionType = "level_trigger"
	ActionVolumeAdjust   ActionType = "volume_adjust"
)

// ExitReason names why the grid produced a close-all decision.
type ExitReason string

const (
	ExitReasonMeanReversion ExitReason = "mean_reversion"
	ExitReasonStopLoss      ExitReason = "stop_loss"
)

// Bar is a timestamped (primary, secondary, spread) observation. The last bar
// in a RollingWindow is mutable until its period seals; every earlier bar is
// immutable.
type Bar struct {
	T          time.Time
	PPrimary   float64
	PSecondary float64
	Spread     float64
}

// PriceBar is a single-symbol historical close price bucketed at a bar
// period, as returned by MarketFeed.History. Bootstrap aligns one PriceBar
// series per leg by timestamp to build the paired Bar series C1 maintains.
type PriceBar struct {
	T     time.Time
	Close float64
}

// Snapshot is the read-model emitted once per tick by the rolling window.
// A Snapshot is never constructed when Sigma is zero or a quote is stale —
// see rollingwindow.Window.Snapshot.
type Snapshot struct {
	ID           uint64
	T            time.Time
	BidPrimary   float64
	AskPrimary   float64
	BidSecondary float64
	AskSecondary float64
	Spread       float64
	Z            float64
	Mu           float64
	Sigma        float64
	Beta         float64
	Rho          float64
	WindowSize   int
}

// GridLevel is a single point on the z-score ladder.
type GridLevel struct {
	Index    int
	TargetZ  float64
	Fraction float64
	Status   LevelStatus
}

// SpreadState is the per-open-position record owned by the grid/tracker.
type SpreadState struct {
	SpreadID        string
	Side            PositionSide
	EntryZ          float64
	LastExecutedZ   float64
	NextTriggerZ    float64
	PrimaryLots     decimal.Decimal
	SecondaryLots   decimal.Decimal
	EntryHedgeRatio float64
	EntryTime       time.Time
}

// Position is a per-leg broker record.
type Position struct {
	Ticket        uint64
	Symbol        string
	Side          OrderSide
	Lots          decimal.Decimal
	EntryPrice    decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealisedPnL decimal.Decimal
	SpreadID      string
}

// VolumeAdjustment is a single-leg corrective order proposal. Ephemeral —
// consumed by the executor and never persisted.
type VolumeAdjustment struct {
	SpreadID   string
	Symbol     string
	Side       OrderSide
	Quantity   decimal.Decimal
	Reason     string
	BetaBefore float64
	BetaAfter  float64
	Imbalance  float64
}

// RiskLedgerSnapshot is a read-only copy of the process-wide risk state,
// handed to consumers that must not mutate the owning ledger directly.
type RiskLedgerSnapshot struct {
	SessionStartBalance decimal.Decimal
	RealisedPnL         decimal.Decimal
	UnrealisedPnL       decimal.Decimal
	TradingLocked       bool
	LockedAt            time.Time
	LockedUntil         time.Time
	OpenSetupCount      int
}

// BrokerPosition is the broker's view of an open position, as returned by
// OrderGateway.Positions. Distinct from Position: this is the authoritative
// external source of truth the tracker/rebalancer reconcile against.
type BrokerPosition struct {
	Ticket        uint64
	Symbol        string
	Side          OrderSide
	Lots          decimal.Decimal
	OpenPrice     decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealisedPnL decimal.Decimal
}

// AccountInfo is the broker account snapshot used by the risk gate.
type AccountInfo struct {
	Balance      decimal.Decimal
	Equity       decimal.Decimal
	Margin       decimal.Decimal
	FreeMargin   decimal.Decimal
	MarginLevel  decimal.Decimal
}

// SymbolInfo describes a tradeable instrument's lot/tick constraints.
type SymbolInfo struct {
	ContractSize decimal.Decimal
	MinLot       decimal.Decimal
	LotStep      decimal.Decimal
	TickSize     decimal.Decimal
}

// Tick is a single quote observation for both legs of the pair.
type Tick struct {
	T           time.Time
	BidPrimary  float64
	AskPrimary  float64
	BidSecondary float64
	AskSecondary float64
}

// OrderResult is the outcome of a market order placement.
type OrderResult struct {
	Ticket      uint64
	FilledLots  decimal.Decimal
	FilledPrice decimal.Decimal
}
