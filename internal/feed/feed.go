// Package feed defines the MarketFeed collaborator contract (spec.md §6):
// the quote source is an external concern and this package only speaks to
// it through an interface, following the teacher's injectable-collaborator
// pattern generalized from internal/data.MarketDataService's concrete
// WebSocket client.
package feed

import (
	"context"
	"time"

	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// MarketFeed is the external quote source. Implementations must be safe for
// concurrent use by a single DataThread caller; spec.md §1 places the actual
// broker bridge out of scope, so production wiring plugs a concrete client
// in behind this interface at startup.
type MarketFeed interface {
	// Subscribe streams ticks for the given primary/secondary pair on ch
	// until ctx is cancelled. The returned error (if any) is from
	// establishing the subscription, not from the stream itself.
	Subscribe(ctx context.Context, primary, secondary string, ch chan<- types.Tick) error

	// History returns historical close-price bars for symbol over
	// [from, to] bucketed at barPeriod, used by C1's bootstrap.
	History(ctx context.Context, symbol string, barPeriod time.Duration, from, to time.Time) ([]types.PriceBar, error)

	// SymbolInfo returns the contract/lot constraints for symbol.
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)
}
