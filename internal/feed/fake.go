package feed

import (
	"context"
	"sync"
	"time"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// Fake is an in-memory MarketFeed for tests: History is served from a
// preloaded table and ticks are pushed explicitly via Push rather than
// streamed from a real source.
type Fake struct {
	mu       sync.Mutex
	history  map[string][]types.PriceBar
	symbols  map[string]types.SymbolInfo
	chans    []chan<- types.Tick
}

// NewFake creates an empty Fake feed.
func NewFake() *Fake {
	return &Fake{
		history: make(map[string][]types.PriceBar),
		symbols: make(map[string]types.SymbolInfo),
	}
}

// SetHistory registers the history a future History(symbol, ...) call
// returns.
func (f *Fake) SetHistory(symbol string, bars []types.PriceBar) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[symbol] = bars
}

// SetSymbolInfo registers the SymbolInfo a future SymbolInfo(symbol) call
// returns.
func (f *Fake) SetSymbolInfo(symbol string, info types.SymbolInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols[symbol] = info
}

func (f *Fake) Subscribe(ctx context.Context, primary, secondary string, ch chan<- types.Tick) error {
	f.mu.Lock()
	f.chans = append(f.chans, ch)
	f.mu.Unlock()
	return nil
}

func (f *Fake) History(ctx context.Context, symbol string, barPeriod time.Duration, from, to time.Time) ([]types.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[symbol], nil
}

func (f *Fake) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbols[symbol], nil
}

// Push delivers a tick to every subscriber registered so far. Tests drive
// the z-sequences in spec.md §8's scenarios through this.
func (f *Fake) Push(tick types.Tick) {
	f.mu.Lock()
	chans := append([]chan<- types.Tick(nil), f.chans...)
	f.mu.Unlock()
	for _, ch := range chans {
		ch <- tick
	}
}
