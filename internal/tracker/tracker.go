// Package tracker owns the in-memory record of open and closed spread
// positions. Grounded near-1:1 on
// original_source/strategy/position_tracker.py's PositionTracker: a
// spread_id -> SpreadState map and a ticket -> Position map, kept in
// sync under a single mutex.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// ClosedSpread is a settled spread moved out of the open maps, carrying
// the total realised P&L for reporting.
type ClosedSpread struct {
	State       types.SpreadState
	Primary     types.Position
	Secondary   types.Position
	RealisedPnL decimal.Decimal
	ClosedAt    time.Time
}

// Tracker owns the open spread_id -> SpreadState and ticket -> Position
// maps. All exported methods are safe for concurrent use.
type Tracker struct {
	mu sync.RWMutex

	spreads   map[string]types.SpreadState
	positions map[uint64]types.Position
	// bySpread indexes the two ticket numbers belonging to a spread_id,
	// in (primary, secondary) order.
	bySpread map[string][2]uint64

	closed []ClosedSpread
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		spreads:   make(map[string]types.SpreadState),
		positions: make(map[uint64]types.Position),
		bySpread:  make(map[string][2]uint64),
	}
}

// OpenSpread records a newly filled pair of legs as a single open
// SpreadState, linked by spreadID. Fails if either ticket is already
// tracked (no two open Positions may share a ticket).
func (t *Tracker) OpenSpread(spreadID string, state types.SpreadState, primary, secondary types.Position) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.positions[primary.Ticket]; ok {
		return fmt.Errorf("tracker: ticket %d already tracked", primary.Ticket)
	}
	if _, ok := t.positions[secondary.Ticket]; ok {
		return fmt.Errorf("tracker: ticket %d already tracked", secondary.Ticket)
	}

	primary.SpreadID = spreadID
	secondary.SpreadID = spreadID

	t.spreads[spreadID] = state
	t.positions[primary.Ticket] = primary
	t.positions[secondary.Ticket] = secondary
	t.bySpread[spreadID] = [2]uint64{primary.Ticket, secondary.Ticket}
	return nil
}

// UpdatePrice refreshes a leg's current price and recomputes its
// unrealised P&L as (px - entry_price) * lots * sign(side).
func (t *Tracker) UpdatePrice(ticket uint64, px decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[ticket]
	if !ok {
		return fmt.Errorf("tracker: unknown ticket %d", ticket)
	}
	pos.CurrentPrice = px
	sign := decimal.NewFromInt(1)
	if pos.Side == types.OrderSideSell {
		sign = decimal.NewFromInt(-1)
	}
	pos.UnrealisedPnL = px.Sub(pos.EntryPrice).Mul(pos.Lots).Mul(sign)
	t.positions[ticket] = pos
	return nil
}

// CloseSpread realises both legs at the given exit prices, moves them
// to the closed-history list, and returns the total realised P&L.
func (t *Tracker) CloseSpread(spreadID string, exitPrimaryPx, exitSecondaryPx decimal.Decimal) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tickets, ok := t.bySpread[spreadID]
	if !ok {
		return decimal.Zero, fmt.Errorf("tracker: unknown spread %s", spreadID)
	}
	state := t.spreads[spreadID]
	primary := t.positions[tickets[0]]
	secondary := t.positions[tickets[1]]

	primaryPnL := realise(primary, exitPrimaryPx)
	secondaryPnL := realise(secondary, exitSecondaryPx)
	total := primaryPnL.Add(secondaryPnL)

	primary.CurrentPrice = exitPrimaryPx
	primary.UnrealisedPnL = primaryPnL
	secondary.CurrentPrice = exitSecondaryPx
	secondary.UnrealisedPnL = secondaryPnL

	t.closed = append(t.closed, ClosedSpread{
		State:       state,
		Primary:     primary,
		Secondary:   secondary,
		RealisedPnL: total,
		ClosedAt:    time.Now(),
	})

	delete(t.spreads, spreadID)
	delete(t.positions, tickets[0])
	delete(t.positions, tickets[1])
	delete(t.bySpread, spreadID)

	return total, nil
}

func realise(pos types.Position, exitPx decimal.Decimal) decimal.Decimal {
	sign := decimal.NewFromInt(1)
	if pos.Side == types.OrderSideSell {
		sign = decimal.NewFromInt(-1)
	}
	return exitPx.Sub(pos.EntryPrice).Mul(pos.Lots).Mul(sign)
}

// SpreadState returns a copy of the open state for spreadID.
func (t *Tracker) SpreadState(spreadID string) (types.SpreadState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.spreads[spreadID]
	return s, ok
}

// UpdateSpreadState overwrites the stored state for spreadID, used
// after a volume adjustment or a pyramid-level execution changes lots
// or next_trigger_z.
func (t *Tracker) UpdateSpreadState(spreadID string, state types.SpreadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.spreads[spreadID]; ok {
		t.spreads[spreadID] = state
	}
}

// Position returns a copy of the tracked position for ticket.
func (t *Tracker) Position(ticket uint64) (types.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.positions[ticket]
	return p, ok
}

// Tickets returns the (primary, secondary) tickets for an open spread.
func (t *Tracker) Tickets(spreadID string) ([2]uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tk, ok := t.bySpread[spreadID]
	return tk, ok
}

// SpreadIDForTicket derives the owning spread_id for a ticket, or false
// if the ticket is not tracked.
func (t *Tracker) SpreadIDForTicket(ticket uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[ticket]
	if !ok {
		return "", false
	}
	return pos.SpreadID, true
}

// OpenSpreadIDs returns every currently open spread_id.
func (t *Tracker) OpenSpreadIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.spreads))
	for id := range t.spreads {
		out = append(out, id)
	}
	return out
}

// OpenCount returns the number of currently open spreads.
func (t *Tracker) OpenCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.spreads)
}

// TotalUnrealisedPnL sums unrealised P&L across every open leg.
func (t *Tracker) TotalUnrealisedPnL() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := decimal.Zero
	for _, p := range t.positions {
		total = total.Add(p.UnrealisedPnL)
	}
	return total
}

// ClosedHistory returns every settled spread, oldest first.
func (t *Tracker) ClosedHistory() []ClosedSpread {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ClosedSpread, len(t.closed))
	copy(out, t.closed)
	return out
}
