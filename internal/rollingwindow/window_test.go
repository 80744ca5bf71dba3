package rollingwindow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/feed"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rollingwindow"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func bootstrapped(t *testing.T, size int) (*rollingwindow.Window, *feed.Fake) {
	t.Helper()
	f := feed.NewFake()
	now := time.Now()
	n := size + 5
	primaryBars := make([]types.PriceBar, n)
	secondaryBars := make([]types.PriceBar, n)
	for i := 0; i < n; i++ {
		ts := now.Add(-time.Duration(n-i) * time.Hour)
		primaryBars[i] = types.PriceBar{T: ts, Close: 2000 + float64(i)}
		secondaryBars[i] = types.PriceBar{T: ts, Close: 25}
	}
	f.SetHistory("XAUUSD", primaryBars)
	f.SetHistory("XAGUSD", secondaryBars)

	w := rollingwindow.New(size, time.Hour)
	require.NoError(t, w.Bootstrap(context.Background(), f, "XAUUSD", "XAGUSD", 1.0, 10))
	return w, f
}

func TestSnapshotFailsBeforeWindowFills(t *testing.T) {
	w := rollingwindow.New(100, time.Hour)
	_, err := w.Snapshot(1)
	assert.ErrorIs(t, err, errs.ErrInsufficientWindow)
}

func TestSnapshotFailsOnStaleQuoteBeforeFirstTick(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	_, err := w.Snapshot(1)
	assert.ErrorIs(t, err, errs.ErrStaleQuote)
}

func TestOnTickProducesSnapshot(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	w.OnTick(types.Tick{T: time.Now(), BidPrimary: 2010, AskPrimary: 2010.2, BidSecondary: 25.1, AskSecondary: 25.2})

	snap, err := w.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.ID)
	assert.Equal(t, 1.0, snap.Beta)
}

func TestHedgeQuantitiesAppliesBeta(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	w.ReplaceBeta(30.0)
	w.OnTick(types.Tick{T: time.Now(), BidPrimary: 2010, AskPrimary: 2010.2, BidSecondary: 25.1, AskSecondary: 25.2})

	primary, secondary, err := w.HedgeQuantities(0.10)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, primary, 1e-9)
	assert.InDelta(t, 3.0, secondary, 1e-9)
}

func TestHedgeQuantitiesFailsOnStaleQuote(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	_, _, err := w.HedgeQuantities(0.10)
	assert.ErrorIs(t, err, errs.ErrStaleQuote)
}

func TestReplaceBetaRewritesSpreadSeries(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	assert.Equal(t, 1.0, w.Beta())
	w.ReplaceBeta(2.5)
	assert.Equal(t, 2.5, w.Beta())

	for _, b := range w.Bars() {
		assert.InDelta(t, b.PPrimary-2.5*b.PSecondary, b.Spread, 1e-9)
	}
}

func TestWindowEvictsOldestBarOnOverflow(t *testing.T) {
	w, _ := bootstrapped(t, 10)
	require.Len(t, w.Bars(), 10)

	base := time.Now().Truncate(time.Hour).Add(time.Hour)
	for i := 0; i < 3; i++ {
		w.OnTick(types.Tick{
			T:            base.Add(time.Duration(i) * time.Hour),
			BidPrimary:   2000, AskPrimary: 2000.1,
			BidSecondary: 25, AskSecondary: 25.1,
		})
	}
	assert.Len(t, w.Bars(), 10)
}
