// Package grid implements the unified z-score grid state machine: the
// single entry/pyramid/exit ladder that replaces the two overlapping
// pyramiding implementations the original split across grid_executor.py
// and hybrid_rebalancer.py. Grounded on
// original_source/executors/grid_executor.py's process_grid_check
// mark-skipped-then-execute-one-level ordering; the grid object that
// file drives (UnifiedZScoreGrid) isn't itself in the retrieval pack, so
// its public shape here is reconstructed from grid_executor.py's call
// sites.
package grid

import (
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// State is the grid's lifecycle state.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
)

// CheckResult is what Check returns for a single snapshot: at most one
// newly triggered level, the levels skipped over to reach it, and an
// exit reason if the grid should close out entirely.
type CheckResult struct {
	Triggered *types.GridLevel
	Skipped   []types.GridLevel
	Exit      *types.ExitReason
}

// Config holds the grid's threshold/geometry parameters (spec.md §4.3).
type Config struct {
	EntryThreshold      float64
	ExitThreshold       float64
	StopLossZScore      float64
	ScaleInterval       float64
	InitialFraction     float64
	MinInterExecutionMS int64
	PyramidLevels       int
}

// Grid owns the ladder for a single pair. Not safe for concurrent use;
// the orchestrator's Signal thread is its sole caller.
type Grid struct {
	cfg Config

	state State
	side  types.PositionSide

	levels []types.GridLevel

	lastExecutedSnapshotID uint64
	lastExecutedAtMS       int64

	// reverseBlocked records the side whose entry is blocked until this
	// grid deactivates, per the reverse-entry-block rule.
	reverseBlocked types.PositionSide
	hasReverseBlock bool
}

// New creates an INACTIVE grid.
func New(cfg Config) *Grid {
	if cfg.PyramidLevels <= 0 {
		cfg.PyramidLevels = 4
	}
	return &Grid{cfg: cfg, state: StateInactive}
}

// State reports the grid's current lifecycle state and, if ACTIVE, side.
func (g *Grid) State() (State, types.PositionSide) {
	return g.state, g.side
}

// EntryThreshold exposes the configured entry gate so the orchestrator
// can detect a fresh entry signal while the grid is INACTIVE.
func (g *Grid) EntryThreshold() float64 {
	return g.cfg.EntryThreshold
}

// Activate arms a new ladder anchored at anchorZ for side. Level 0 is
// entry (target_z = anchorZ, fraction = InitialFraction); levels k>=1
// walk outward by ScaleInterval in the arming direction, sharing the
// remaining 1-InitialFraction evenly. Returns level 0, already marked
// EXECUTED, for the caller to place the entry order against.
func (g *Grid) Activate(side types.PositionSide, anchorZ float64, nowMS int64) types.GridLevel {
	g.state = StateActive
	g.side = side
	g.lastExecutedSnapshotID = 0
	g.lastExecutedAtMS = 0

	remaining := 1 - g.cfg.InitialFraction
	n := g.cfg.PyramidLevels
	perLevel := 0.0
	if n > 0 {
		perLevel = remaining / float64(n)
	}

	levels := make([]types.GridLevel, 0, n+1)
	levels = append(levels, types.GridLevel{
		Index:    0,
		TargetZ:  anchorZ,
		Fraction: g.cfg.InitialFraction,
		Status:   types.LevelExecuted,
	})
	for k := 1; k <= n; k++ {
		var target float64
		if side == types.PositionSideShort {
			target = anchorZ + float64(k)*g.cfg.ScaleInterval
		} else {
			target = anchorZ - float64(k)*g.cfg.ScaleInterval
		}
		levels = append(levels, types.GridLevel{
			Index:    k,
			TargetZ:  target,
			Fraction: perLevel,
			Status:   types.LevelWaiting,
		})
	}
	g.levels = levels
	g.lastExecutedSnapshotID = 0
	g.lastExecutedAtMS = nowMS
	return levels[0]
}

// Deactivate resets the grid to INACTIVE, releasing any reverse-entry
// block held against the opposite side.
func (g *Grid) Deactivate() {
	g.state = StateInactive
	g.levels = nil
	g.hasReverseBlock = false
}

// BlockedReverseEntry reports whether entry of side is currently
// blocked by an opposing active grid (spec.md §4.3's reverse-entry
// block). Always false when the grid is INACTIVE.
func (g *Grid) BlockedReverseEntry(side types.PositionSide) bool {
	return g.hasReverseBlock && g.reverseBlocked == side
}

// Check evaluates a single snapshot against the grid's current state
// and returns the single action (if any) the orchestrator should take.
// Exit is evaluated first and is independent of level status; it takes
// priority over any level trigger in the same snapshot.
func (g *Grid) Check(snap types.Snapshot) CheckResult {
	if g.state == StateInactive {
		return CheckResult{}
	}

	// Reverse-entry block: an extreme snapshot opposite the grid's own
	// side arms a block against the opposite side re-entering until
	// this grid deactivates.
	if g.side == types.PositionSideLong && snap.Z >= g.cfg.EntryThreshold {
		g.ArmReverseBlock(types.PositionSideShort)
	} else if g.side == types.PositionSideShort && snap.Z <= -g.cfg.EntryThreshold {
		g.ArmReverseBlock(types.PositionSideLong)
	}

	if reason := g.exitReason(snap.Z); reason != "" {
		return CheckResult{Exit: &reason}
	}

	// Cooldown: the same snapshot cannot execute twice, and at least
	// MinInterExecutionMS must elapse between two executions.
	if snap.ID == g.lastExecutedSnapshotID {
		return CheckResult{}
	}

	// A single tick can jump past several WAITING levels at once; the
	// deepest one satisfied wins and every shallower WAITING level in
	// between is marked SKIPPED, per spec.md's worked pyramid scenario.
	deepestTriggered := -1
	for i, lvl := range g.levels {
		if lvl.Status != types.LevelWaiting {
			continue
		}
		if g.triggered(lvl, snap.Z) {
			deepestTriggered = i
		}
	}
	if deepestTriggered == -1 {
		return CheckResult{}
	}

	// Entry threshold gate: level 0 only fires once |z| >= entry
	// threshold. Pyramid levels (k>=1) carry their own target_z and
	// skip this extra check.
	if g.levels[deepestTriggered].Index == 0 && abs(snap.Z) < g.cfg.EntryThreshold {
		return CheckResult{}
	}

	nowMS := snap.T.UnixMilli()
	if g.cfg.MinInterExecutionMS > 0 && g.lastExecutedAtMS > 0 {
		if nowMS-g.lastExecutedAtMS < g.cfg.MinInterExecutionMS {
			return CheckResult{}
		}
	}

	var skipped []types.GridLevel
	for i := 0; i < deepestTriggered; i++ {
		if g.levels[i].Status == types.LevelWaiting {
			g.levels[i].Status = types.LevelSkipped
			skipped = append(skipped, g.levels[i])
		}
	}

	triggeredLevel := g.levels[deepestTriggered]
	g.levels[deepestTriggered].Status = types.LevelExecuted
	g.lastExecutedSnapshotID = snap.ID
	g.lastExecutedAtMS = nowMS

	return CheckResult{Triggered: &triggeredLevel, Skipped: skipped}
}

// Restore re-activates a grid from a persisted spread state after a
// restart. The exact per-level executed/skipped history is not
// persisted (spec.md leaves this detail to the implementation); the
// ladder is rebuilt fresh from the spread's last executed z-score, so
// at most one further level may be skipped before the next trigger
// compared to the pre-restart ladder.
func (g *Grid) Restore(side types.PositionSide, lastExecutedZ float64, nowMS int64) {
	g.Activate(side, lastExecutedZ, nowMS)
}

// ArmReverseBlock blocks entry of side until this grid next
// deactivates. Exported so tests can arm the block directly.
func (g *Grid) ArmReverseBlock(side types.PositionSide) {
	g.hasReverseBlock = true
	g.reverseBlocked = side
}

func (g *Grid) exitReason(z float64) types.ExitReason {
	if abs(z) >= g.cfg.StopLossZScore {
		return types.ExitReasonStopLoss
	}
	switch g.side {
	case types.PositionSideLong:
		if z >= -g.cfg.ExitThreshold {
			return types.ExitReasonMeanReversion
		}
	case types.PositionSideShort:
		if z <= g.cfg.ExitThreshold {
			return types.ExitReasonMeanReversion
		}
	}
	return ""
}

func (g *Grid) triggered(lvl types.GridLevel, z float64) bool {
	if g.side == types.PositionSideLong {
		return z <= lvl.TargetZ
	}
	return z >= lvl.TargetZ
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
