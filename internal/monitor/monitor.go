// Package monitor polls the broker for positions that disappeared
// outside the engine's own close path and raises events for the
// orchestrator to act on. Translated near-1:1 from
// original_source/core/position_monitor.py's PositionMonitor, with its
// threading.Event/RLock primitives replaced by a Go channel and
// sync.Mutex.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/gateway"
)

// DisappearanceKind distinguishes the two events the monitor raises.
type DisappearanceKind string

const (
	KindFull    DisappearanceKind = "full"
	KindPartial DisappearanceKind = "partial"
)

// Event is raised by the monitor for the orchestrator to consume. The
// monitor never places or closes orders itself.
type Event struct {
	Kind            DisappearanceKind
	SpreadID        string
	ExpectedTickets []uint64
	MissingTickets  []uint64
	// Confirm resolves a partial-disappearance confirmation prompt: true
	// to rebalance the remaining legs, false to close all. Nil for
	// KindFull events, which need no confirmation.
	Confirm func(rebalance bool)
}

// Config holds the monitor's polling/timeout parameters (spec.md §4.7).
type Config struct {
	CheckInterval       time.Duration
	UserResponseTimeout time.Duration
}

// Resolution is the final outcome of a partial-disappearance
// confirmation prompt, delivered once regardless of whether an operator
// answered or the timeout defaulted to close-all.
type Resolution struct {
	SpreadID       string
	MissingTickets []uint64
	Rebalance      bool // false means close all remaining legs
}

// Monitor polls gw for the broker's open positions and compares them
// against the set registered for each spread.
type Monitor struct {
	logger      *zap.Logger
	cfg         Config
	gw          gateway.OrderGateway
	events      chan Event
	resolutions chan Resolution

	mu       sync.Mutex
	expected map[string][]uint64 // spread_id -> expected tickets
}

// New creates a Monitor. Call Start to begin polling.
func New(logger *zap.Logger, cfg Config, gw gateway.OrderGateway) *Monitor {
	return &Monitor{
		logger:      logger.Named("monitor"),
		cfg:         cfg,
		gw:          gw,
		events:      make(chan Event, 16),
		resolutions: make(chan Resolution, 16),
		expected:    make(map[string][]uint64),
	}
}

// Events exposes the event stream for the orchestrator's Monitor thread
// to range over.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Resolutions exposes the final rebalance-or-close-all outcome of every
// partial-disappearance prompt, for the orchestrator to act on.
func (m *Monitor) Resolutions() <-chan Resolution {
	return m.resolutions
}

// Register records the tickets a newly opened spread is expected to
// keep open.
func (m *Monitor) Register(spreadID string, tickets []uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expected[spreadID] = append([]uint64(nil), tickets...)
}

// Unregister removes a spread from monitoring, called once the
// orchestrator closes it through the normal path.
func (m *Monitor) Unregister(spreadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expected, spreadID)
}

// Start runs the polling loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	positions, err := m.gw.Positions(ctx)
	if err != nil {
		m.logger.Warn("position poll failed", zap.Error(err))
		return
	}
	current := make(map[uint64]bool, len(positions))
	for _, p := range positions {
		current[p.Ticket] = true
	}

	m.mu.Lock()
	spreads := make(map[string][]uint64, len(m.expected))
	for id, tickets := range m.expected {
		spreads[id] = tickets
	}
	m.mu.Unlock()

	for spreadID, expected := range spreads {
		var missing []uint64
		for _, t := range expected {
			if !current[t] {
				missing = append(missing, t)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if len(missing) == len(expected) {
			m.raiseFull(spreadID, expected)
			continue
		}
		m.raisePartial(spreadID, expected, missing)
	}
}

func (m *Monitor) raiseFull(spreadID string, expected []uint64) {
	m.logger.Warn("all legs of spread disappeared", zap.String("spread_id", spreadID))
	select {
	case m.events <- Event{Kind: KindFull, SpreadID: spreadID, ExpectedTickets: expected, MissingTickets: expected}:
	default:
		m.logger.Error("monitor event buffer full, dropping full-disappearance event", zap.String("spread_id", spreadID))
	}
}

// raisePartial emits a confirmation-prompt event and waits up to
// UserResponseTimeout for a response via the Confirm callback; on
// timeout it defaults to CLOSE-ALL, per spec.md §4.7.
func (m *Monitor) raisePartial(spreadID string, expected, missing []uint64) {
	m.logger.Warn("partial leg disappearance detected",
		zap.String("spread_id", spreadID),
		zap.Uint64s("missing", missing),
	)

	response := make(chan bool, 1)
	var once sync.Once
	confirm := func(rebalance bool) {
		once.Do(func() { response <- rebalance })
	}

	evt := Event{Kind: KindPartial, SpreadID: spreadID, ExpectedTickets: expected, MissingTickets: missing, Confirm: confirm}
	select {
	case m.events <- evt:
	default:
		m.logger.Error("monitor event buffer full, dropping partial-disappearance event", zap.String("spread_id", spreadID))
		return
	}

	go func() {
		var rebalance bool
		select {
		case rebalance = <-response:
			if rebalance {
				m.logger.Info("partial disappearance resolved: rebalance", zap.String("spread_id", spreadID))
			} else {
				m.logger.Info("partial disappearance resolved: close all", zap.String("spread_id", spreadID))
			}
		case <-time.After(m.cfg.UserResponseTimeout):
			m.logger.Warn("confirmation timed out, defaulting to close all", zap.String("spread_id", spreadID))
			rebalance = false
		}
		select {
		case m.resolutions <- Resolution{SpreadID: spreadID, MissingTickets: missing, Rebalance: rebalance}:
		default:
			m.logger.Error("monitor resolution buffer full, dropping", zap.String("spread_id", spreadID))
		}
	}()
}
