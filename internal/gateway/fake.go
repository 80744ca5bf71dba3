package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// Fake is an in-memory OrderGateway for tests. Every PlaceMarket call fills
// immediately at a price supplied via SetPrice (defaulting to 1.0), and
// Close removes the position from the open set.
type Fake struct {
	mu        sync.Mutex
	nextTicket uint64
	prices    map[string]decimal.Decimal
	positions map[uint64]types.BrokerPosition
	account   types.AccountInfo

	// FailSymbols makes PlaceMarket return an error for the named symbol,
	// used to exercise the hedge-incomplete path.
	FailSymbols map[string]bool

	Orders []PlacedOrder
}

// PlacedOrder records a PlaceMarket call for test assertions.
type PlacedOrder struct {
	Symbol  string
	Side    types.OrderSide
	Lots    float64
	Comment string
}

// NewFake creates a Fake gateway with a default account snapshot.
func NewFake() *Fake {
	return &Fake{
		prices:      make(map[string]decimal.Decimal),
		positions:   make(map[uint64]types.BrokerPosition),
		FailSymbols: make(map[string]bool),
		account: types.AccountInfo{
			Balance:     decimal.NewFromInt(100000),
			Equity:      decimal.NewFromInt(100000),
			Margin:      decimal.Zero,
			FreeMargin:  decimal.NewFromInt(100000),
			MarginLevel: decimal.NewFromInt(10000),
		},
	}
}

// SetPrice sets the fill price PlaceMarket uses for symbol.
func (f *Fake) SetPrice(symbol string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

// SetAccountInfo overrides the account snapshot returned by AccountInfo.
func (f *Fake) SetAccountInfo(info types.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = info
}

func (f *Fake) PlaceMarket(ctx context.Context, symbol string, side types.OrderSide, lots float64, comment string) (types.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Orders = append(f.Orders, PlacedOrder{Symbol: symbol, Side: side, Lots: lots, Comment: comment})

	if f.FailSymbols[symbol] {
		return types.OrderResult{}, fmt.Errorf("fake gateway: order rejected for %s", symbol)
	}

	f.nextTicket++
	ticket := f.nextTicket
	price := f.prices[symbol]
	if price.IsZero() {
		price = decimal.NewFromInt(1)
	}
	lotsDec := decimal.NewFromFloat(lots)

	f.positions[ticket] = types.BrokerPosition{
		Ticket:       ticket,
		Symbol:       symbol,
		Side:         side,
		Lots:         lotsDec,
		OpenPrice:    price,
		CurrentPrice: price,
	}

	return types.OrderResult{Ticket: ticket, FilledLots: lotsDec, FilledPrice: price}, nil
}

func (f *Fake) Close(ctx context.Context, ticket uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.positions[ticket]; !ok {
		return false, nil
	}
	delete(f.positions, ticket)
	return true, nil
}

func (f *Fake) Positions(ctx context.Context) ([]types.BrokerPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.BrokerPosition, 0, len(f.positions))
	for _, p := range f.positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *Fake) AccountInfo(ctx context.Context) (types.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

// CloseExternally removes a position without going through Close, to
// simulate a manual/broker-side closure for Position Monitor tests.
func (f *Fake) CloseExternally(ticket uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.positions, ticket)
}
