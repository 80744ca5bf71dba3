package tracker_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func openSpread(t *testing.T, tr *tracker.Tracker, spreadID string, primaryTicket, secondaryTicket uint64) {
	t.Helper()
	state := types.SpreadState{SpreadID: spreadID, Side: types.PositionSideLong}
	primary := types.Position{
		Ticket: primaryTicket, Symbol: "XAUUSD", Side: types.OrderSideBuy,
		Lots: decimal.NewFromFloat(0.1), EntryPrice: decimal.NewFromInt(2000),
	}
	secondary := types.Position{
		Ticket: secondaryTicket, Symbol: "XAGUSD", Side: types.OrderSideSell,
		Lots: decimal.NewFromFloat(3), EntryPrice: decimal.NewFromInt(25),
	}
	require.NoError(t, tr.OpenSpread(spreadID, state, primary, secondary))
}

func TestOpenSpreadRejectsDuplicateTicket(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)

	state := types.SpreadState{SpreadID: "s2"}
	dup := types.Position{Ticket: 1, Symbol: "XAUUSD"}
	other := types.Position{Ticket: 3, Symbol: "XAGUSD"}
	err := tr.OpenSpread("s2", state, dup, other)
	assert.Error(t, err)
}

func TestUpdatePriceComputesUnrealisedPnL(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)

	require.NoError(t, tr.UpdatePrice(1, decimal.NewFromInt(2010)))
	pos, ok := tr.Position(1)
	require.True(t, ok)
	// (2010-2000)*0.1*+1 = 1.0
	assert.True(t, pos.UnrealisedPnL.Equal(decimal.NewFromFloat(1.0)))

	require.NoError(t, tr.UpdatePrice(2, decimal.NewFromInt(24)))
	pos2, ok := tr.Position(2)
	require.True(t, ok)
	// (24-25)*3*-1 = 3.0 (short leg gains as price falls)
	assert.True(t, pos2.UnrealisedPnL.Equal(decimal.NewFromFloat(3.0)))
}

func TestUpdatePriceRejectsUnknownTicket(t *testing.T) {
	tr := tracker.New()
	err := tr.UpdatePrice(999, decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestCloseSpreadRealisesAndRemovesFromOpenState(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)

	total, err := tr.CloseSpread("s1", decimal.NewFromInt(2010), decimal.NewFromInt(24))
	require.NoError(t, err)
	// primary: (2010-2000)*0.1 = 1.0, secondary short: (24-25)*3*-1 = 3.0
	assert.True(t, total.Equal(decimal.NewFromFloat(4.0)))

	assert.Equal(t, 0, tr.OpenCount())
	_, ok := tr.SpreadState("s1")
	assert.False(t, ok)

	history := tr.ClosedHistory()
	require.Len(t, history, 1)
	assert.True(t, history[0].RealisedPnL.Equal(decimal.NewFromFloat(4.0)))
}

func TestCloseSpreadUnknownIDErrors(t *testing.T) {
	tr := tracker.New()
	_, err := tr.CloseSpread("missing", decimal.Zero, decimal.Zero)
	assert.Error(t, err)
}

func TestTotalUnrealisedPnLSumsOpenLegs(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)
	require.NoError(t, tr.UpdatePrice(1, decimal.NewFromInt(2010)))
	require.NoError(t, tr.UpdatePrice(2, decimal.NewFromInt(24)))

	assert.True(t, tr.TotalUnrealisedPnL().Equal(decimal.NewFromFloat(4.0)))
}

func TestSpreadIDForTicket(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)

	id, ok := tr.SpreadIDForTicket(2)
	require.True(t, ok)
	assert.Equal(t, "s1", id)

	_, ok = tr.SpreadIDForTicket(999)
	assert.False(t, ok)
}

func TestUpdateSpreadStateOnlyAppliesToOpenSpread(t *testing.T) {
	tr := tracker.New()
	openSpread(t, tr, "s1", 1, 2)

	tr.UpdateSpreadState("s1", types.SpreadState{SpreadID: "s1", NextTriggerZ: 2.5})
	state, ok := tr.SpreadState("s1")
	require.True(t, ok)
	assert.InDelta(t, 2.5, state.NextTriggerZ, 1e-9)

	tr.UpdateSpreadState("missing", types.SpreadState{NextTriggerZ: 9})
	_, ok = tr.SpreadState("missing")
	assert.False(t, ok)
}
