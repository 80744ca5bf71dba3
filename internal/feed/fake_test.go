package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/feed"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func TestHistoryReturnsRegisteredBars(t *testing.T) {
	f := feed.NewFake()
	bars := []types.PriceBar{{T: time.Now(), Close: 2000}}
	f.SetHistory("XAUUSD", bars)

	got, err := f.History(context.Background(), "XAUUSD", time.Minute, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, bars, got)
}

func TestHistoryUnknownSymbolReturnsEmpty(t *testing.T) {
	f := feed.NewFake()
	got, err := f.History(context.Background(), "UNKNOWN", time.Minute, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSymbolInfoReturnsRegisteredInfo(t *testing.T) {
	f := feed.NewFake()
	info := types.SymbolInfo{ContractSize: decimal.NewFromInt(100), LotStep: decimal.NewFromFloat(0.01)}
	f.SetSymbolInfo("XAUUSD", info)

	got, err := f.SymbolInfo(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.True(t, got.ContractSize.Equal(info.ContractSize))
}

func TestPushDeliversToSubscribers(t *testing.T) {
	f := feed.NewFake()
	ch := make(chan types.Tick, 1)
	require.NoError(t, f.Subscribe(context.Background(), "XAUUSD", "XAGUSD", ch))

	tick := types.Tick{T: time.Now(), BidPrimary: 2000}
	f.Push(tick)

	select {
	case got := <-ch:
		assert.Equal(t, tick.BidPrimary, got.BidPrimary)
	case <-time.After(time.Second):
		t.Fatal("expected a delivered tick")
	}
}

func TestPushWithNoSubscribersDoesNotBlock(t *testing.T) {
	f := feed.NewFake()
	f.Push(types.Tick{T: time.Now(), BidPrimary: 2000})
}
