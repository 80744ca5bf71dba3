package hedgeratio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/hedgeratio"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

func TestEstimateRejectsMismatchedLengths(t *testing.T) {
	e := hedgeratio.New(types.DefaultHedgeRatioConfig())
	_, err := e.Estimate([]float64{1, 2, 3}, []float64{1, 2})
	assert.Error(t, err)
}

func TestEstimateRejectsTooShortSeries(t *testing.T) {
	e := hedgeratio.New(types.DefaultHedgeRatioConfig())
	_, err := e.Estimate([]float64{1}, []float64{1})
	assert.Error(t, err)
}

// TestEstimatePerfectlyCorrelatedSeries exercises the common case: a
// primary series that is exactly a multiple of the secondary plus a
// constant, which every estimator should agree is close to that multiple.
func TestEstimatePerfectlyCorrelatedSeries(t *testing.T) {
	e := hedgeratio.New(types.DefaultHedgeRatioConfig())

	const n = 80
	primary := make([]float64, n)
	secondary := make([]float64, n)
	for i := 0; i < n; i++ {
		secondary[i] = 25 + float64(i)*0.01
		primary[i] = 30*secondary[i] + 100
	}

	beta, err := e.Estimate(primary, secondary)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, beta, 3.0)
}

func TestEstimateIsDeterministicGivenSameInput(t *testing.T) {
	cfg := types.DefaultHedgeRatioConfig()
	e1 := hedgeratio.New(cfg)
	e2 := hedgeratio.New(cfg)

	const n = 50
	primary := make([]float64, n)
	secondary := make([]float64, n)
	for i := 0; i < n; i++ {
		secondary[i] = 25 + float64(i)*0.02
		primary[i] = 30*secondary[i] + 50
	}

	b1, err1 := e1.Estimate(primary, secondary)
	require.NoError(t, err1)
	b2, err2 := e2.Estimate(primary, secondary)
	require.NoError(t, err2)
	assert.Equal(t, b1, b2)
}

func TestSchedulerAllowsFirstUpdateImmediately(t *testing.T) {
	s := hedgeratio.NewScheduler(time.Hour)
	assert.True(t, s.ShouldUpdate(time.Now()))
}

func TestSchedulerBlocksWithinInterval(t *testing.T) {
	s := hedgeratio.NewScheduler(time.Hour)
	now := time.Now()
	require.True(t, s.ShouldUpdate(now))
	assert.False(t, s.ShouldUpdate(now.Add(30*time.Minute)))
}

func TestSchedulerAllowsAfterIntervalElapses(t *testing.T) {
	s := hedgeratio.NewScheduler(time.Hour)
	now := time.Now()
	require.True(t, s.ShouldUpdate(now))
	assert.True(t, s.ShouldUpdate(now.Add(61*time.Minute)))
}
