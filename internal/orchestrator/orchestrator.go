// Package orchestrator wires C1-C7 into the five-thread pipeline spec.md
// §4.8/§5 describes: DataThread, SignalThread, ExecutionThread,
// RiskThread, and MonitorThread, communicating over bounded channels.
// Grounded on internal/orchestrator's original TradingOrchestrator for
// its mutex-guarded running/stopCh Start/Stop lifecycle and on
// internal/workers.Pool for the fast parallel close path, adapted from
// a general event-bus-driven strategy coordinator down to this engine's
// fixed five-thread structure.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/alert"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/feed"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/gateway"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/grid"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/hedgeratio"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/metrics"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/monitor"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rebalancer"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rollingwindow"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/workers"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/utils"
)

// decision is what the SignalThread hands to the ExecutionThread: at
// most one of the three kinds, with exits taking strict priority.
type decision struct {
	snapshotID uint64
	snapshot   types.Snapshot
	exit       *types.ExitReason
	trigger    *types.GridLevel
	adjustment *types.VolumeAdjustment
}

// Config bundles the orchestrator's wiring parameters.
type Config struct {
	PrimarySymbol     string
	SecondarySymbol   string
	MagicNumber       int
	LotStep           decimal.Decimal
	VolumeMultiplier  float64
	FastClosePoolSize int
	GatewayTimeout    time.Duration
}

// Orchestrator owns the five threads and the shared components they
// read and mutate.
type Orchestrator struct {
	logger *zap.Logger
	cfg    Config

	mf    feed.MarketFeed
	gw    gateway.OrderGateway
	win   *rollingwindow.Window
	hr    *hedgeratio.Estimator
	sched *hedgeratio.Scheduler
	gr    *grid.Grid
	rg    *riskgate.Gate
	tr    *tracker.Tracker
	mon   *monitor.Monitor
	met   *metrics.Registry
	snk   alert.Sink

	// closePool backs the fast parallel close path: every ticket of a
	// closed spread is submitted here so broker round-trips overlap
	// instead of serialising.
	closePool *workers.Pool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	ticks chan types.Tick
	// signalCh is capacity 1 with overwrite semantics: only the newest
	// snapshot matters (spec.md §4.8 DataThread).
	signalCh chan types.Snapshot
	execCh   chan decision

	snapshotCounter uint64
	activeSpreadID  string
}

// New wires the components into an Orchestrator. Each component is
// constructed by the caller (cmd/pairengine/main.go) so tests can swap
// in fakes for MarketFeed/OrderGateway.
func New(logger *zap.Logger, cfg Config, mf feed.MarketFeed, gw gateway.OrderGateway, win *rollingwindow.Window, hr *hedgeratio.Estimator, sched *hedgeratio.Scheduler, gr *grid.Grid, rg *riskgate.Gate, tr *tracker.Tracker, mon *monitor.Monitor, met *metrics.Registry, snk alert.Sink) *Orchestrator {
	if cfg.FastClosePoolSize <= 0 {
		cfg.FastClosePoolSize = 100
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.VolumeMultiplier <= 0 {
		cfg.VolumeMultiplier = 1.0
	}
	poolCfg := workers.DefaultPoolConfig("fast-close")
	poolCfg.NumWorkers = cfg.FastClosePoolSize
	poolCfg.QueueSize = cfg.FastClosePoolSize * 4
	poolCfg.TaskTimeout = cfg.GatewayTimeout

	return &Orchestrator{
		logger:    logger.Named("orchestrator"),
		cfg:       cfg,
		mf:        mf,
		gw:        gw,
		win:       win,
		sched:     sched,
		hr:        hr,
		gr:        gr,
		rg:        rg,
		tr:        tr,
		mon:       mon,
		met:       met,
		snk:       snk,
		closePool: workers.NewPool(logger.Named("fast-close"), poolCfg),
		ticks:     make(chan types.Tick, 64),
		signalCh:  make(chan types.Snapshot, 1),
		execCh:    make(chan decision, 16),
	}
}

// Start launches the five threads. It returns once every thread has
// been spawned; Stop signals them to exit and returns without waiting
// for them to finish.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: already running")
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	if err := o.mf.Subscribe(ctx, o.cfg.PrimarySymbol, o.cfg.SecondarySymbol, o.ticks); err != nil {
		return fmt.Errorf("orchestrator: subscribe: %w", err)
	}

	o.closePool.Start()

	// Resume a spread restored by internal/statestore before Start was
	// called: at most one is ever open in this single-pair engine.
	if open := o.tr.OpenSpreadIDs(); len(open) == 1 {
		o.activeSpreadID = open[0]
		if tickets, ok := o.tr.Tickets(o.activeSpreadID); ok {
			o.mon.Register(o.activeSpreadID, []uint64{tickets[0], tickets[1]})
		}
		o.logger.Info("resumed spread from persisted state", zap.String("spread_id", o.activeSpreadID))
	}

	go o.dataThread(ctx)
	go o.signalThread(ctx)
	go o.executionThread(ctx)
	go o.riskThread(ctx)
	go o.mon.Start(ctx)
	go o.monitorEventThread(ctx)

	o.logger.Info("orchestrator started",
		zap.String("primary", o.cfg.PrimarySymbol),
		zap.String("secondary", o.cfg.SecondarySymbol),
	)
	return nil
}

// Stop signals every thread to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.stopCh)
	o.mu.Unlock()
	if err := o.closePool.Stop(); err != nil {
		o.logger.Warn("fast close pool shutdown error", zap.Error(err))
	}
	o.logger.Info("orchestrator stopped")
}

// dataThread pulls quotes, feeds C1, and pushes the newest snapshot
// onto signalCh with overwrite semantics.
func (o *Orchestrator) dataThread(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case t, ok := <-o.ticks:
			if !ok {
				return
			}
			o.win.OnTick(t)
			o.snapshotCounter++
			snap, err := o.win.Snapshot(o.snapshotCounter)
			if err != nil {
				continue
			}
			o.met.CurrentZScore.Set(snap.Z)
			o.met.HedgeRatio.Set(snap.Beta)

			select {
			case o.signalCh <- snap:
			default:
				// Overwrite: drain the stale snapshot, then push.
				select {
				case <-o.signalCh:
				default:
				}
				o.signalCh <- snap
			}
		}
	}
}

// signalThread runs risk-cap -> exit -> level-trigger -> volume-rebalance
// in that order and emits at most one decision per snapshot onto execCh,
// which blocks (no drop-oldest) to throttle the producer.
func (o *Orchestrator) signalThread(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case snap, ok := <-o.signalCh:
			if !ok {
				return
			}
			d := o.evaluate(snap)
			if d == nil {
				continue
			}
			select {
			case o.execCh <- *d:
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			}
		}
	}
}

func (o *Orchestrator) evaluate(snap types.Snapshot) *decision {
	state, _ := o.gr.State()

	if state == grid.StateActive {
		if capSnap := o.rg.Snapshot(); capSnap.TradingLocked {
			reason := types.ExitReasonStopLoss
			return &decision{snapshotID: snap.ID, exit: &reason}
		}

		result := o.gr.Check(snap)
		if result.Exit != nil {
			return &decision{snapshotID: snap.ID, exit: result.Exit}
		}
		if result.Triggered != nil {
			return &decision{snapshotID: snap.ID, snapshot: snap, trigger: result.Triggered}
		}

		if o.activeSpreadID != "" {
			if spreadState, ok := o.tr.SpreadState(o.activeSpreadID); ok {
				adj := rebalancer.Check(rebalancer.Config{MinAbsoluteDriftLots: 0.01, LotStep: o.cfg.LotStep},
					o.activeSpreadID, o.cfg.PrimarySymbol, o.cfg.SecondarySymbol,
					spreadState.PrimaryLots.InexactFloat64(), spreadState.SecondaryLots.InexactFloat64(),
					snap.Beta, snap.Z)
				if adj != nil {
					return &decision{snapshotID: snap.ID, adjustment: adj}
				}
			}
		}
		return nil
	}

	// INACTIVE: look for a fresh entry signal. Side mirrors grid's own
	// trigger convention: a long entry fires once z drops to or below
	// -EntryThreshold, a short entry once z rises to or above it.
	threshold := o.gr.EntryThreshold()
	var entrySide types.PositionSide
	switch {
	case snap.Z <= -threshold:
		entrySide = types.PositionSideLong
	case snap.Z >= threshold:
		entrySide = types.PositionSideShort
	default:
		return nil
	}

	if o.gr.BlockedReverseEntry(entrySide) {
		return nil
	}
	if err := o.rg.CanActivate(); err != nil {
		return nil
	}

	level := o.gr.Activate(entrySide, snap.Z, snap.T.UnixMilli())
	return &decision{snapshotID: snap.ID, snapshot: snap, trigger: &level}
}

// executionThread consumes decisions and places orders through
// OrderGateway, applying the stale-decision guard against the current
// snapshot counter.
func (o *Orchestrator) executionThread(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.drainAndCloseAll(context.Background())
			return
		case <-o.stopCh:
			o.drainAndCloseAll(context.Background())
			return
		case d, ok := <-o.execCh:
			if !ok {
				return
			}
			o.applyDecision(ctx, d)
		}
	}
}

func (o *Orchestrator) applyDecision(ctx context.Context, d decision) {
	if d.snapshotID < o.snapshotCounter && d.exit == nil {
		o.logger.Debug("stale decision dropped", zap.Uint64("decision_snapshot", d.snapshotID))
		return
	}

	switch {
	case d.exit != nil:
		o.closeActiveSpread(ctx, *d.exit)
	case d.trigger != nil:
		o.executeLevel(ctx, *d.trigger, d.snapshot)
	case d.adjustment != nil:
		o.executeAdjustment(ctx, *d.adjustment)
	}
}

// baseLotsForLevel sizes the primary leg of a grid level: position_value =
// balance * level.Fraction * volume_multiplier, converted to lots at the
// primary's current bid and contract size, then rounded to its lot step
// and floored at its minimum. The secondary leg is derived afterwards via
// HedgeQuantities so the primary_lots * beta invariant always holds.
// Grounded on original_source/executors/grid_executor.py's
// _calculate_volumes fallback path.
func (o *Orchestrator) baseLotsForLevel(ctx context.Context, level types.GridLevel, snap types.Snapshot) (float64, error) {
	if snap.BidPrimary <= 0 {
		return 0, errs.ErrStaleQuote
	}
	account, err := o.gw.AccountInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("account info: %w", err)
	}
	primaryInfo, err := o.mf.SymbolInfo(ctx, o.cfg.PrimarySymbol)
	if err != nil {
		return 0, fmt.Errorf("primary symbol info: %w", err)
	}
	if primaryInfo.ContractSize.IsZero() {
		return 0, fmt.Errorf("primary contract size is zero")
	}

	positionValue := account.Balance.InexactFloat64() * level.Fraction * o.cfg.VolumeMultiplier
	rawLots := positionValue / (snap.BidPrimary * primaryInfo.ContractSize.InexactFloat64())

	lots := utils.RoundToStepSize(decimal.NewFromFloat(rawLots), primaryInfo.LotStep)
	lots = utils.MaxDecimal(lots, primaryInfo.MinLot)
	return lots.InexactFloat64(), nil
}

// executeLevel places the entry/pyramid order(s) for a triggered level.
// A secondary-leg failure after the primary fills is a hedge-incomplete
// condition: the level is left EXECUTED with the partial fill and a
// warning is raised. For a fresh entry (level 0) the tracker records the
// single leg; a pyramid level's single leg is logged but not tracked.
// No automatic unwind (spec.md §4.8).
func (o *Orchestrator) executeLevel(ctx context.Context, level types.GridLevel, snap types.Snapshot) {
	state, side := o.gr.State()
	if state != grid.StateActive {
		return
	}

	baseLots, err := o.baseLotsForLevel(ctx, level, snap)
	if err != nil {
		o.logger.Warn("position sizing unavailable", zap.Error(err))
		return
	}

	primaryLots, secondaryLots, err := o.win.HedgeQuantities(baseLots)
	if err != nil {
		o.logger.Warn("hedge quantities unavailable", zap.Error(err))
		return
	}

	primarySide := types.OrderSideBuy
	if side == types.PositionSideShort {
		primarySide = types.OrderSideSell
	}
	secondarySide := primarySide
	if primarySide == types.OrderSideBuy {
		secondarySide = types.OrderSideSell
	} else {
		secondarySide = types.OrderSideBuy
	}

	comment := "ID:" + time.Now().Format("150405")

	primaryResult, err := o.gw.PlaceMarket(ctx, o.cfg.PrimarySymbol, primarySide, primaryLots, comment)
	if err != nil {
		o.met.OrderFailures.WithLabelValues(o.cfg.PrimarySymbol).Inc()
		o.logger.Error("primary leg order failed", zap.Error(err))
		return
	}

	secondaryResult, err := o.gw.PlaceMarket(ctx, o.cfg.SecondarySymbol, secondarySide, secondaryLots, comment)
	if err != nil {
		o.met.OrderFailures.WithLabelValues(o.cfg.SecondarySymbol).Inc()
		o.snk.Publish(alert.Event{
			Severity: alert.SeverityWarning,
			Code:     "hedge_incomplete",
			Message:  "secondary leg failed after primary filled; single leg recorded, no auto-unwind",
			Fields:   map[string]any{"primary_ticket": primaryResult.Ticket},
		})
		o.recordPartialFill(level, primaryResult, primarySide)
		return
	}

	o.recordFullFill(level, side, primaryResult, primarySide, secondaryResult, secondarySide)
	o.met.GridLevelsExecuted.WithLabelValues(string(side)).Inc()
}

func (o *Orchestrator) recordFullFill(level types.GridLevel, side types.PositionSide, primaryResult, secondaryResult types.OrderResult, primarySide, secondarySide types.OrderSide) {
	spreadID := o.activeSpreadID
	if spreadID == "" {
		spreadID = fmt.Sprintf("%d-%d", primaryResult.Ticket, secondaryResult.Ticket)
		o.activeSpreadID = spreadID
	}

	primaryPos := types.Position{Ticket: primaryResult.Ticket, Symbol: o.cfg.PrimarySymbol, Side: primarySide, Lots: primaryResult.FilledLots, EntryPrice: primaryResult.FilledPrice}
	secondaryPos := types.Position{Ticket: secondaryResult.Ticket, Symbol: o.cfg.SecondarySymbol, Side: secondarySide, Lots: secondaryResult.FilledLots, EntryPrice: secondaryResult.FilledPrice}

	if level.Index == 0 {
		state := types.SpreadState{
			SpreadID:      spreadID,
			Side:          side,
			EntryZ:        level.TargetZ,
			LastExecutedZ: level.TargetZ,
			PrimaryLots:   primaryResult.FilledLots,
			SecondaryLots: secondaryResult.FilledLots,
			EntryTime:     time.Now(),
		}
		if err := o.tr.OpenSpread(spreadID, state, primaryPos, secondaryPos); err != nil {
			o.logger.Error("failed to open spread", zap.Error(err))
			return
		}
		o.mon.Register(spreadID, []uint64{primaryPos.Ticket, secondaryPos.Ticket})
		return
	}

	if spreadState, ok := o.tr.SpreadState(spreadID); ok {
		spreadState.PrimaryLots = spreadState.PrimaryLots.Add(primaryResult.FilledLots)
		spreadState.SecondaryLots = spreadState.SecondaryLots.Add(secondaryResult.FilledLots)
		spreadState.LastExecutedZ = level.TargetZ
		o.tr.UpdateSpreadState(spreadID, spreadState)
	}
}

// recordPartialFill persists the single filled leg so a later close-all
// still has a ticket to act on. Only done for a fresh entry (level 0):
// a pyramid level's partial fill would collide with the spread already
// open under o.activeSpreadID, so it is logged but left untracked, same
// as before.
func (o *Orchestrator) recordPartialFill(level types.GridLevel, primaryResult types.OrderResult, primarySide types.OrderSide) {
	o.logger.Warn("hedge incomplete, single leg recorded", zap.Uint64("ticket", primaryResult.Ticket))

	if level.Index != 0 || o.activeSpreadID != "" {
		return
	}

	spreadID := fmt.Sprintf("%d-%d", primaryResult.Ticket, 0)
	side := types.PositionSideLong
	if primarySide == types.OrderSideSell {
		side = types.PositionSideShort
	}

	primaryPos := types.Position{Ticket: primaryResult.Ticket, Symbol: o.cfg.PrimarySymbol, Side: primarySide, Lots: primaryResult.FilledLots, EntryPrice: primaryResult.FilledPrice}
	secondaryPos := types.Position{Symbol: o.cfg.SecondarySymbol}

	state := types.SpreadState{
		SpreadID:      spreadID,
		Side:          side,
		EntryZ:        level.TargetZ,
		LastExecutedZ: level.TargetZ,
		PrimaryLots:   primaryResult.FilledLots,
		SecondaryLots: decimal.Zero,
		EntryTime:     time.Now(),
	}
	if err := o.tr.OpenSpread(spreadID, state, primaryPos, secondaryPos); err != nil {
		o.logger.Error("failed to record partial fill", zap.Error(err))
		return
	}
	o.activeSpreadID = spreadID
	o.mon.Register(spreadID, []uint64{primaryPos.Ticket})
}

func (o *Orchestrator) executeAdjustment(ctx context.Context, adj types.VolumeAdjustment) {
	comment := fmt.Sprintf("pe-%d-reb", o.cfg.MagicNumber)
	qty, _ := adj.Quantity.Float64()
	result, err := o.gw.PlaceMarket(ctx, adj.Symbol, adj.Side, qty, comment)
	if err != nil {
		o.met.OrderFailures.WithLabelValues(adj.Symbol).Inc()
		o.logger.Error("volume adjustment order failed", zap.Error(err))
		return
	}
	o.met.VolumeAdjustments.Inc()

	spreadState, ok := o.tr.SpreadState(adj.SpreadID)
	if !ok {
		return
	}
	if adj.Symbol == o.cfg.PrimarySymbol {
		spreadState.PrimaryLots = spreadState.PrimaryLots.Add(signedQty(adj.Side, result.FilledLots))
	} else {
		spreadState.SecondaryLots = spreadState.SecondaryLots.Add(signedQty(adj.Side, result.FilledLots))
	}
	o.tr.UpdateSpreadState(adj.SpreadID, spreadState)
}

func signedQty(side types.OrderSide, qty decimal.Decimal) decimal.Decimal {
	if side == types.OrderSideSell {
		return qty.Neg()
	}
	return qty
}

// closeActiveSpread closes every leg of the active spread via the fast
// parallel close path and resets the grid to INACTIVE.
func (o *Orchestrator) closeActiveSpread(ctx context.Context, reason types.ExitReason) {
	spreadID := o.activeSpreadID
	if spreadID == "" {
		o.gr.Deactivate()
		return
	}
	tickets, ok := o.tr.Tickets(spreadID)
	if !ok {
		o.gr.Deactivate()
		return
	}

	o.closeTicketsParallel(ctx, tickets[:])

	var exitPrimaryPx, exitSecondaryPx decimal.Decimal
	if pos, ok := o.tr.Position(tickets[0]); ok {
		exitPrimaryPx = pos.CurrentPrice
	}
	if pos, ok := o.tr.Position(tickets[1]); ok {
		exitSecondaryPx = pos.CurrentPrice
	}
	pnl, err := o.tr.CloseSpread(spreadID, exitPrimaryPx, exitSecondaryPx)
	if err == nil {
		o.rg.RecordRealised(pnl)
	}
	o.mon.Unregister(spreadID)
	o.activeSpreadID = ""
	o.gr.Deactivate()
	o.met.GridExits.WithLabelValues(string(reason)).Inc()
}

// closeTicketsParallel issues per-ticket close calls concurrently
// through a small worker pool, the only place concurrent broker calls
// are allowed (spec.md §5).
func (o *Orchestrator) closeTicketsParallel(ctx context.Context, tickets []uint64) {
	var wg sync.WaitGroup
	for _, ticket := range tickets {
		if ticket == 0 {
			continue
		}
		wg.Add(1)
		t := ticket
		task := workers.TaskFunc(func() error {
			defer wg.Done()
			if _, err := o.gw.Close(ctx, t); err != nil {
				o.logger.Error("fast close failed", zap.Uint64("ticket", t), zap.Error(err))
				return err
			}
			return nil
		})
		if err := o.closePool.Submit(task); err != nil {
			wg.Done()
			o.logger.Error("fast close pool saturated, closing synchronously", zap.Uint64("ticket", t), zap.Error(err))
			if _, closeErr := o.gw.Close(ctx, t); closeErr != nil {
				o.logger.Error("fast close failed", zap.Uint64("ticket", t), zap.Error(closeErr))
			}
		}
	}
	wg.Wait()
}

// drainAndCloseAll is run on shutdown: any outstanding execution items
// are drained and the active spread (if any) is closed.
func (o *Orchestrator) drainAndCloseAll(ctx context.Context) {
	for {
		select {
		case <-o.execCh:
		default:
			reason := types.ExitReasonStopLoss
			if o.activeSpreadID != "" {
				o.closeActiveSpread(ctx, reason)
			}
			return
		}
	}
}

// riskThread wakes once a second to refresh the risk ledger and fire
// caps, per spec.md §4.8.
func (o *Orchestrator) riskThread(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.refreshHedgeRatio()
			o.refreshRisk(ctx)
		}
	}
}

// refreshHedgeRatio re-estimates beta on the configured cadence and
// pushes it into the rolling window, which recomputes its statistics
// at the new ratio (spec.md §4.2).
func (o *Orchestrator) refreshHedgeRatio() {
	if !o.sched.ShouldUpdate(time.Now()) {
		return
	}
	bars := o.win.Bars()
	if len(bars) < 2 {
		return
	}
	primary := make([]float64, len(bars))
	secondary := make([]float64, len(bars))
	for i, b := range bars {
		primary[i] = b.PPrimary
		secondary[i] = b.PSecondary
	}
	beta, err := o.hr.Estimate(primary, secondary)
	if err != nil {
		o.logger.Warn("hedge ratio re-estimation failed, keeping prior beta", zap.Error(err))
		return
	}
	o.win.ReplaceBeta(beta)
}

func (o *Orchestrator) refreshRisk(ctx context.Context) {
	account, err := o.gw.AccountInfo(ctx)
	if err != nil {
		o.logger.Warn("risk refresh: account info unavailable", zap.Error(err))
		return
	}

	unrealised := o.tr.TotalUnrealisedPnL()
	perSetup := map[string]decimal.Decimal{}
	if o.activeSpreadID != "" {
		perSetup[o.activeSpreadID] = unrealised
	}
	marginLevel, _ := account.MarginLevel.Float64()

	result := o.rg.Evaluate(time.Now(), account.Balance, decimal.Zero, unrealised, marginLevel, perSetup)
	switch {
	case result.CloseAll:
		o.met.RiskLocksTriggered.WithLabelValues(result.Cap).Inc()
		reason := types.ExitReasonStopLoss
		o.closeActiveSpread(ctx, reason)
	case result.CloseSetupOnly != "":
		o.met.RiskLocksTriggered.WithLabelValues(result.Cap).Inc()
		reason := types.ExitReasonStopLoss
		o.closeActiveSpread(ctx, reason)
	}
}

// monitorEventThread consumes C7's events for the active spread: a full
// disappearance, or a partial disappearance resolved as close-all,
// closes whatever legs remain at the broker, settles the spread in the
// tracker, stops monitoring it and resets the grid. A rebalance
// resolution places no orders.
func (o *Orchestrator) monitorEventThread(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case evt, ok := <-o.mon.Events():
			if !ok {
				return
			}
			if evt.Kind == monitor.KindFull && evt.SpreadID == o.activeSpreadID {
				o.closeActiveSpread(ctx, types.ExitReason("manual_closure"))
			}
		case res, ok := <-o.mon.Resolutions():
			if !ok {
				return
			}
			if !res.Rebalance && res.SpreadID == o.activeSpreadID {
				o.closeActiveSpread(ctx, types.ExitReason("manual_closure"))
			}
		}
	}
}
