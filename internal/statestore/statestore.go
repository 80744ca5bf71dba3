// Package statestore persists the tracker's open spreads and the risk
// gate's session ledger to a JSON file so a restart resumes mid-session
// instead of losing realised P&L and open positions, per spec.md §9's
// reload-if-present rule. Grounded on internal/data.Store's
// mutex-guarded, JSON-marshalled file read/write pattern, narrowed from
// a multi-symbol OHLCV cache down to a single periodically-saved
// snapshot.
package statestore

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/grid"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// persistedSpread is a single open spread's round-trippable record.
type persistedSpread struct {
	SpreadID  string            `json:"spread_id"`
	State     types.SpreadState `json:"state"`
	Primary   types.Position    `json:"primary"`
	Secondary types.Position    `json:"secondary"`
}

// persistedLedger is the risk gate's round-trippable session state.
type persistedLedger struct {
	RealisedPnL   decimal.Decimal `json:"realised_pnl"`
	TradingLocked bool            `json:"trading_locked"`
	LockedAt      time.Time       `json:"locked_at"`
	LockedUntil   time.Time       `json:"locked_until"`
	SessionDate   string          `json:"session_date"`
}

// document is the on-disk shape written to StateFilePath.
type document struct {
	SavedAt time.Time         `json:"saved_at"`
	Spreads []persistedSpread `json:"spreads"`
	Ledger  persistedLedger   `json:"ledger"`
}

// Store owns the state file path. It takes no lock of its own around
// reads or writes of the file.
type Store struct {
	logger *zap.Logger
	path   string
}

// New creates a Store writing to path. An empty path disables
// persistence; Load becomes a no-op and Save writes nothing.
func New(logger *zap.Logger, path string) *Store {
	return &Store{logger: logger.Named("statestore"), path: path}
}

// Save snapshots every open spread and the risk ledger to the state
// file, overwriting it atomically via a temp-file rename.
func (s *Store) Save(tr *tracker.Tracker, rg *riskgate.Gate) error {
	if s.path == "" {
		return nil
	}

	doc := document{SavedAt: time.Now()}

	for _, spreadID := range tr.OpenSpreadIDs() {
		state, ok := tr.SpreadState(spreadID)
		if !ok {
			continue
		}
		tickets, ok := tr.Tickets(spreadID)
		if !ok {
			continue
		}
		primary, _ := tr.Position(tickets[0])
		secondary, _ := tr.Position(tickets[1])
		doc.Spreads = append(doc.Spreads, persistedSpread{
			SpreadID:  spreadID,
			State:     state,
			Primary:   primary,
			Secondary: secondary,
		})
	}

	realisedPnL, tradingLocked, lockedAt, lockedUntil, sessionDate := rg.PersistFields()
	doc.Ledger = persistedLedger{
		RealisedPnL:   realisedPnL,
		TradingLocked: tradingLocked,
		LockedAt:      lockedAt,
		LockedUntil:   lockedUntil,
		SessionDate:   sessionDate,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load restores any persisted open spreads into tr and seeds rg/gr from
// the persisted ledger. Returns nil (not an error) and logs a warning if
// the state file does not exist yet; per spec.md §9, absence means
// "initialise to zero," which is the caller's already-constructed
// default state.
func (s *Store) Load(tr *tracker.Tracker, rg *riskgate.Gate, gr *grid.Grid) error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("no state file; risk ledger starts with zero realised P&L", zap.String("path", s.path))
			return nil
		}
		return err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	for _, sp := range doc.Spreads {
		if err := tr.OpenSpread(sp.SpreadID, sp.State, sp.Primary, sp.Secondary); err != nil {
			s.logger.Warn("failed to restore spread", zap.String("spread_id", sp.SpreadID), zap.Error(err))
			continue
		}
		gr.Restore(sp.State.Side, sp.State.LastExecutedZ, time.Now().UnixMilli())
	}

	rg.Restore(doc.Ledger.RealisedPnL, doc.Ledger.TradingLocked, doc.Ledger.LockedAt, doc.Ledger.LockedUntil, doc.Ledger.SessionDate)

	s.logger.Info("state restored", zap.Int("open_spreads", len(doc.Spreads)), zap.Time("saved_at", doc.SavedAt))
	return nil
}

// RunPeriodicSave saves every interval until ctx is cancelled, and
// returns a cancel function the caller can invoke to stop it early (the
// caller is still responsible for one final Save after ctx cancels).
func RunPeriodicSave(ctx context.Context, logger *zap.Logger, s *Store, tr *tracker.Tracker, rg *riskgate.Gate) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Save(tr, rg); err != nil {
					logger.Warn("periodic state save failed", zap.Error(err))
				}
			}
		}
	}()
	return func() { close(stop) }
}
