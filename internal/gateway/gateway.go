// Package gateway defines the OrderGateway collaborator contract (spec.md
// §6), generalized from internal/execution's concrete order-placement and
// position-query code into a small interface the engine depends on instead
// of a broker client.
package gateway

import (
	"context"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// OrderGateway places and queries orders against the broker. Only Close is
// permitted to be called concurrently (by the fast parallel close path in
// internal/orchestrator); every other method is expected to serialise calls
// internally (spec.md §6).
type OrderGateway interface {
	// PlaceMarket submits a market order. comment is opaque to the
	// gateway and must fit the broker's 15-character limit.
	PlaceMarket(ctx context.Context, symbol string, side types.OrderSide, lots float64, comment string) (types.OrderResult, error)

	// Close closes an open position by ticket. Safe to call concurrently
	// with other Close calls.
	Close(ctx context.Context, ticket uint64) (bool, error)

	// Positions returns every open broker position, the authoritative
	// source the tracker/rebalancer/monitor reconcile against.
	Positions(ctx context.Context) ([]types.BrokerPosition, error)

	// AccountInfo returns the current account snapshot used by the risk
	// gate's margin-safety check.
	AccountInfo(ctx context.Context) (types.AccountInfo, error)
}
