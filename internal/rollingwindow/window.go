// Package rollingwindow maintains the spread time series and its
// statistics (mean, standard deviation, correlation, z-score) that
// every downstream component reads a Snapshot of. Grounded on the
// other-examples pairs-trading strategy's ProcessBars/calculatePairParameters
// split between an O(1) per-tick update and a periodic O(N) recompute,
// and on the teacher's incremental-calculator idiom in pkg/utils.
package rollingwindow

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/feed"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// Window owns the bar history and the O(1) running statistics derived
// from it. All exported methods are safe for concurrent use.
type Window struct {
	mu sync.RWMutex

	size     int
	barPeriod time.Duration

	bars []types.Bar

	beta float64

	// Welford-style running aggregates over the spread series, valid
	// only when len(bars) == size (the window is full).
	mean   float64
	m2     float64 // sum of squared deviations from mean
	nSeen  int

	lastBid struct {
		primary, secondary float64
	}
	lastAsk struct {
		primary, secondary float64
	}

	nextID uint64
}

// New creates an empty Window sized to hold windowSize bars bucketed at
// barPeriod.
func New(windowSize int, barPeriod time.Duration) *Window {
	return &Window{
		size:      windowSize,
		barPeriod: barPeriod,
		bars:      make([]types.Bar, 0, windowSize),
	}
}

// Bootstrap fills the window from MarketFeed history for both legs,
// aligning each leg's PriceBar series by timestamp into paired Bars,
// and performs the initial O(N) statistics computation.
func (w *Window) Bootstrap(ctx context.Context, mf feed.MarketFeed, primary, secondary string, beta float64, days int) error {
	to := time.Now()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)

	primaryBars, err := mf.History(ctx, primary, w.barPeriod, from, to)
	if err != nil {
		return fmt.Errorf("rollingwindow: bootstrap history for %s: %w", primary, err)
	}
	secondaryBars, err := mf.History(ctx, secondary, w.barPeriod, from, to)
	if err != nil {
		return fmt.Errorf("rollingwindow: bootstrap history for %s: %w", secondary, err)
	}

	secByTime := make(map[int64]float64, len(secondaryBars))
	for _, b := range secondaryBars {
		secByTime[b.T.Unix()] = b.Close
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.beta = beta
	w.bars = w.bars[:0]
	for _, pb := range primaryBars {
		sc, ok := secByTime[pb.T.Unix()]
		if !ok {
			continue
		}
		w.bars = append(w.bars, types.Bar{
			T:          pb.T,
			PPrimary:   pb.Close,
			PSecondary: sc,
			Spread:     pb.Close - beta*sc,
		})
	}
	if len(w.bars) > w.size {
		w.bars = w.bars[len(w.bars)-w.size:]
	}

	w.recomputeLocked()
	return nil
}

// OnTick feeds a new quote pair into the window: it either mutates the
// in-progress bar or seals it and opens a new one, per spec's
// wall-clock-aligned bar-period handling.
func (w *Window) OnTick(t types.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastBid.primary = t.BidPrimary
	w.lastBid.secondary = t.BidSecondary
	w.lastAsk.primary = t.AskPrimary
	w.lastAsk.secondary = t.AskSecondary

	mid := func(bid, ask float64) float64 {
		if ask == 0 {
			return bid
		}
		return (bid + ask) / 2
	}
	pp := mid(t.BidPrimary, t.AskPrimary)
	ps := mid(t.BidSecondary, t.AskSecondary)
	spread := pp - w.beta*ps

	bucket := t.T.Truncate(w.barPeriod)

	if len(w.bars) == 0 || bucket.After(w.bars[len(w.bars)-1].T) {
		w.bars = append(w.bars, types.Bar{T: bucket, PPrimary: pp, PSecondary: ps, Spread: spread})
		if len(w.bars) > w.size {
			// Evict the oldest bar via an O(1) Welford removal so the
			// running aggregates stay consistent without an O(N) pass.
			w.removeOldestLocked()
			w.bars = w.bars[1:]
		}
		w.addSampleLocked(spread)
		return
	}

	// Mutate the in-progress bar: undo its previous contribution to the
	// running aggregates, then add the new one.
	last := &w.bars[len(w.bars)-1]
	if w.nSeen > 0 {
		w.undoSampleLocked(last.Spread)
	}
	last.PPrimary = pp
	last.PSecondary = ps
	last.Spread = spread
	w.addSampleLocked(spread)
}

// ReplaceBeta is called by C2 when the hedge ratio changes. It rewrites
// every bar's spread at the new beta and performs the required O(N)
// recompute before the next snapshot.
func (w *Window) ReplaceBeta(beta float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beta = beta
	for i := range w.bars {
		w.bars[i].Spread = w.bars[i].PPrimary - beta*w.bars[i].PSecondary
	}
	w.recomputeLocked()
}

// Snapshot returns the current read-model, or an error if the window
// has not yet warmed up, if sigma is zero, or if either leg's latest
// bid is stale (zero).
func (w *Window) Snapshot(id uint64) (types.Snapshot, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.bars) < w.size {
		return types.Snapshot{}, errs.ErrInsufficientWindow
	}
	if w.lastBid.primary == 0 || w.lastBid.secondary == 0 {
		return types.Snapshot{}, errs.ErrStaleQuote
	}
	sigma := w.sigmaLocked()
	if sigma == 0 {
		return types.Snapshot{}, fmt.Errorf("rollingwindow: sigma is zero")
	}

	last := w.bars[len(w.bars)-1]
	rho := w.correlationLocked()
	z := (last.Spread - w.mean) / sigma

	return types.Snapshot{
		ID:           id,
		T:            last.T,
		BidPrimary:   w.lastBid.primary,
		AskPrimary:   w.lastAsk.primary,
		BidSecondary: w.lastBid.secondary,
		AskSecondary: w.lastAsk.secondary,
		Spread:       last.Spread,
		Z:            z,
		Mu:           w.mean,
		Sigma:        sigma,
		Beta:         w.beta,
		Rho:          rho,
		WindowSize:   len(w.bars),
	}, nil
}

// HedgeQuantities returns (primaryLots, secondaryLots) for a proposed
// primary-leg size at the current beta. Fails with ErrStaleQuote when
// either leg's latest bid is zero.
func (w *Window) HedgeQuantities(primaryLots float64) (float64, float64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastBid.primary == 0 || w.lastBid.secondary == 0 {
		return 0, 0, errs.ErrStaleQuote
	}
	return primaryLots, primaryLots * w.beta, nil
}

// Beta returns the hedge ratio the window currently prices spreads at.
func (w *Window) Beta() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.beta
}

// Bars returns a copy of the spread series, used by C2 estimators that
// need the full history rather than a running statistic.
func (w *Window) Bars() []types.Bar {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.Bar, len(w.bars))
	copy(out, w.bars)
	return out
}

func (w *Window) addSampleLocked(x float64) {
	w.nSeen++
	delta := x - w.mean
	w.mean += delta / float64(w.nSeen)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

// undoSampleLocked reverses the effect of the most recent addSampleLocked
// call for the in-progress bar being overwritten, so OnTick can mutate the
// bar in place without drifting the Welford aggregates.
func (w *Window) undoSampleLocked(x float64) {
	if w.nSeen <= 1 {
		w.nSeen = 0
		w.mean = 0
		w.m2 = 0
		return
	}
	n := w.nSeen
	meanPrev := (float64(n)*w.mean - x) / float64(n-1)
	delta := x - meanPrev
	delta2 := x - w.mean
	w.m2 -= delta * delta2
	w.mean = meanPrev
	w.nSeen--
}

// removeOldestLocked drops the oldest bar's contribution to the running
// aggregates before it is evicted from the slice.
func (w *Window) removeOldestLocked() {
	if len(w.bars) == 0 || w.nSeen == 0 {
		return
	}
	w.undoSampleLocked(w.bars[0].Spread)
}

// recomputeLocked performs the O(N) full statistics recompute gonum's
// stat package handles, used on bootstrap and after a beta replacement.
func (w *Window) recomputeLocked() {
	n := len(w.bars)
	if n == 0 {
		w.mean, w.m2, w.nSeen = 0, 0, 0
		return
	}
	spreads := make([]float64, n)
	for i, b := range w.bars {
		spreads[i] = b.Spread
	}
	mean := stat.Mean(spreads, nil)
	var sumSq float64
	for _, s := range spreads {
		d := s - mean
		sumSq += d * d
	}
	w.mean = mean
	w.m2 = sumSq
	w.nSeen = n
}

func (w *Window) sigmaLocked() float64 {
	if w.nSeen == 0 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.nSeen))
}

func (w *Window) correlationLocked() float64 {
	n := len(w.bars)
	if n < 2 {
		return 0
	}
	primary := make([]float64, n)
	secondary := make([]float64, n)
	for i, b := range w.bars {
		primary[i] = b.PPrimary
		secondary[i] = b.PSecondary
	}
	return stat.Correlation(primary, secondary, nil)
}
