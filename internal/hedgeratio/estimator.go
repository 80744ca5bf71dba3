// Package hedgeratio computes the blended hedge ratio beta that
// internal/rollingwindow prices spreads at. It is grounded on
// original_source/models/hedge_ratios.py's HedgeRatioCalculator: four
// independent estimators (OLS, dollar-neutral, volatility-adjusted,
// Kalman), each wrapped in its own failure boundary and combined by a
// weighted average that renormalizes over whichever estimators
// succeeded.
package hedgeratio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/errs"
	"github.com/Danhhoang1306/Pair-Trading--sub000/pkg/types"
)

// Estimator blends the four methods into a single beta, re-normalizing
// weights over whichever estimators produced a finite result.
type Estimator struct {
	cfg types.HedgeRatioConfig

	// kalman carries the 2-state [beta, alpha] filter forward between
	// calls so it tracks a time-varying ratio rather than re-fitting
	// from scratch on every Estimate.
	kalmanState *mat.VecDense
	kalmanCov   *mat.Dense
}

// New creates an Estimator with its Kalman filter state reset.
func New(cfg types.HedgeRatioConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// methodResult is an estimator's beta, or an error if it could not
// produce one.
type methodResult struct {
	name  string
	beta  float64
	err   error
}

// Estimate blends the four estimators over the given primary/secondary
// close-price series, which must be the same length and in time order.
// It fails only when every estimator fails.
func (e *Estimator) Estimate(primary, secondary []float64) (float64, error) {
	if len(primary) != len(secondary) || len(primary) < 2 {
		return 0, fmt.Errorf("%w: mismatched or too-short series", errs.ErrSingularEstimator)
	}

	results := []methodResult{
		e.tryOLS(primary, secondary),
		e.tryDollarNeutral(primary, secondary),
		e.tryVolAdjusted(primary, secondary),
		e.tryKalman(primary, secondary),
	}

	weights := map[string]float64{
		"ols":            e.cfg.OLSWeight,
		"dollar_neutral": e.cfg.DollarNeutralWeight,
		"vol_adjusted":   e.cfg.VolAdjustedWeight,
		"kalman":         e.cfg.KalmanWeight,
	}

	var weighted, totalWeight float64
	for _, r := range results {
		if r.err != nil || math.IsNaN(r.beta) || math.IsInf(r.beta, 0) {
			continue
		}
		w := weights[r.name]
		weighted += r.beta * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0, fmt.Errorf("%w: every hedge ratio estimator failed", errs.ErrSingularEstimator)
	}
	return weighted / totalWeight, nil
}

// tryOLS fits primary = beta*secondary + alpha via least squares,
// mirroring calculate_ols's np.linalg.lstsq call via gonum/stat.
func (e *Estimator) tryOLS(primary, secondary []float64) methodResult {
	alpha, beta := stat.LinearRegression(secondary, primary, nil, false)
	_ = alpha
	if math.IsNaN(beta) {
		return methodResult{name: "ols", err: errs.ErrSingularEstimator}
	}
	return methodResult{name: "ols", beta: beta}
}

// tryDollarNeutral returns the last-bar price ratio, so that $1 of
// primary is hedged with $1 of secondary.
func (e *Estimator) tryDollarNeutral(primary, secondary []float64) methodResult {
	last := len(primary) - 1
	if secondary[last] == 0 {
		return methodResult{name: "dollar_neutral", err: errs.ErrSingularEstimator}
	}
	return methodResult{name: "dollar_neutral", beta: primary[last] / secondary[last]}
}

// tryVolAdjusted scales the dollar-neutral ratio by sqrt(primary
// variance / secondary variance) over cfg.VolLookback returns, unlike
// the original's straight volatility ratio (see SPEC_FULL.md's
// supplemented-feature note on this divisor).
func (e *Estimator) tryVolAdjusted(primary, secondary []float64) methodResult {
	lookback := e.cfg.VolLookback
	if lookback > len(primary)-1 {
		lookback = len(primary) - 1
	}
	if lookback < 2 {
		return methodResult{name: "vol_adjusted", err: errs.ErrSingularEstimator}
	}

	primaryReturns := returns(primary[len(primary)-lookback-1:])
	secondaryReturns := returns(secondary[len(secondary)-lookback-1:])

	primaryVol := stat.StdDev(primaryReturns, nil)
	secondaryVol := stat.StdDev(secondaryReturns, nil)
	if secondaryVol == 0 {
		return methodResult{name: "vol_adjusted", err: errs.ErrSingularEstimator}
	}

	last := len(primary) - 1
	if secondary[last] == 0 {
		return methodResult{name: "vol_adjusted", err: errs.ErrSingularEstimator}
	}
	baseRatio := primary[last] / secondary[last]
	volAdjustment := math.Sqrt(primaryVol / secondaryVol)
	return methodResult{name: "vol_adjusted", beta: baseRatio * volAdjustment}
}

// tryKalman advances the 2-state [beta, alpha] filter one step per
// observation and returns the final beta, mirroring calculate_kalman's
// loop. State persists across calls on e so the filter tracks drift
// instead of restarting from a flat prior every time.
func (e *Estimator) tryKalman(primary, secondary []float64) methodResult {
	if e.kalmanState == nil {
		e.kalmanState = mat.NewVecDense(2, []float64{0, 0})
		e.kalmanCov = mat.NewDense(2, 2, []float64{100, 0, 0, 100})
	}

	q := e.cfg.KalmanProcessNoise
	r := e.cfg.KalmanObservationVar
	if r == 0 {
		r = 1.0
	}

	x := e.kalmanState
	p := e.kalmanCov

	var beta, alpha float64
	for i := range primary {
		// Prediction step: state transition is identity, covariance
		// grows by the process noise Q every step.
		var pPred mat.Dense
		pPred.Add(p, identityScaled(q))

		h := mat.NewDense(1, 2, []float64{secondary[i], 1.0})

		var hx mat.Dense
		hx.Mul(h, x)
		innovation := primary[i] - hx.At(0, 0)

		var hp mat.Dense
		hp.Mul(h, &pPred)
		var s mat.Dense
		s.Mul(&hp, h.T())
		sVal := s.At(0, 0) + r
		if sVal == 0 {
			return methodResult{name: "kalman", err: errs.ErrSingularEstimator}
		}

		var pht mat.Dense
		pht.Mul(&pPred, h.T())
		k := mat.NewDense(2, 1, nil)
		k.Scale(1/sVal, &pht)

		var correction mat.Dense
		correction.Scale(innovation, k)
		var xNew mat.Dense
		xNew.Add(x, &correction)
		x = mat.NewVecDense(2, []float64{xNew.At(0, 0), xNew.At(1, 0)})

		var kh mat.Dense
		kh.Mul(k, h)
		var eye mat.Dense
		eye.Sub(identityScaled(1), &kh)
		var pNew mat.Dense
		pNew.Mul(&eye, &pPred)
		p = &pNew

		beta, alpha = x.AtVec(0), x.AtVec(1)
	}
	_ = alpha

	e.kalmanState = x
	e.kalmanCov = p

	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return methodResult{name: "kalman", err: errs.ErrSingularEstimator}
	}
	return methodResult{name: "kalman", beta: beta}
}

func identityScaled(s float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{s, 0, 0, s})
}

func returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
