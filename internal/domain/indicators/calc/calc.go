// Package calc holds the shared numeric primitives the indicator engine and
// the regime classifier both build on: moving averages, Wilder smoothing,
// and the few series-wide helpers (slope, rate of change) that recur across
// several indicators. Kept separate from the per-indicator files so the
// regime classifier (§4.5) can reuse the same RSI/ATR/Bollinger math the
// indicator catalog (§4.4) uses, without either package owning the other.
package calc

import "math"

// Floor guards every division in the indicator/regime/signal-engine layers
// against divide-by-zero (§4.4 "division by zero guarded by a floor of 1e-10").
const Floor = 1e-10

// SafeDiv divides, substituting Floor for a zero or near-zero denominator.
func SafeDiv(num, den float64) float64 {
	if math.Abs(den) < Floor {
		if den < 0 {
			den = -Floor
		} else {
			den = Floor
		}
	}
	return num / den
}

// SMA is the simple moving average of the last `period` values. Returns
// (0, false) if there is not enough history.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// SMASeries computes a trailing SMA at every index where enough history
// exists; earlier indices are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMASeries computes an exponential moving average series, seeded with the
// SMA of the first `period` values (the conventional seeding used by MACD
// and the moving-averages indicator).
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	seed, _ := SMA(values[:period], period)
	out[period-1] = seed
	alpha := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = values[i]*alpha + prev*(1-alpha)
		out[i] = prev
	}
	return out
}

// WilderSmoothSeries applies Wilder's smoothing (used by RSI and ATR): seed
// with the plain average of the first `period` values, then recurse with
// alpha = 1/period.
func WilderSmoothSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	seed, _ := SMA(values[:period], period)
	out[period-1] = seed
	alpha := 1.0 / float64(period)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = prev*(1-alpha) + values[i]*alpha
		out[i] = prev
	}
	return out
}

// TrueRanges computes the True Range series for OHLC bars; index 0 is NaN
// (no previous close).
func TrueRanges(high, low, close []float64) []float64 {
	n := len(high)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATRSeries is Wilder-smoothed True Range.
func ATRSeries(high, low, close []float64, period int) []float64 {
	tr := TrueRanges(high, low, close)
	// WilderSmoothSeries needs the first value finite; replace the leading
	// NaN at index 0 with the second true range to seed cleanly.
	if len(tr) > 1 {
		tr[0] = tr[1]
	}
	return WilderSmoothSeries(tr, period)
}

// RSISeries is the Wilder 14-period RSI, expressed over the whole series.
func RSISeries(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n < period+1 {
		return out
	}
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := WilderSmoothSeries(gains[1:], period)
	avgLoss := WilderSmoothSeries(losses[1:], period)
	for i := 0; i < len(avgGain); i++ {
		if math.IsNaN(avgGain[i]) {
			continue
		}
		rs := SafeDiv(avgGain[i], avgLoss[i])
		out[i+1] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// StdDevSeries computes the trailing population standard deviation of the
// last `period` values at each index, aligned index-for-index with
// SMASeries over the same period (Bollinger Bands combines the two).
func StdDevSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(period)
		out[i] = math.Sqrt(variance)
	}
	return out
}

// ROC is the rate of change over `period` bars ending at the last value, as
// a percentage. Returns (0, false) if there isn't enough history.
func ROC(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) <= period {
		return 0, false
	}
	prev := values[len(values)-1-period]
	cur := values[len(values)-1]
	return SafeDiv(cur-prev, prev) * 100, true
}

// Slope is a simple (last-first)/n linear slope over the last `period`
// values — used by the moving-average-slope regime feature.
func Slope(values []float64, period int) (float64, bool) {
	if period <= 1 || len(values) < period {
		return 0, false
	}
	window := values[len(values)-period:]
	return (window[len(window)-1] - window[0]) / float64(period-1), true
}

// ADXProxy computes a simplified +DI/-DI/ADX triple via Wilder smoothing of
// true range and directional movement. Used as the regime classifier's
// trend-strength feature (§4.5 "rolling-mean absolute-slope proxy for ADX").
// The ADX value here is the single-bar DX (|+DI-DI| / (+DI+-DI)) rather than
// a further-smoothed ADX; for the regime classifier's purposes (a coarse
// trend-strength signal, not a precise ADX reading) this is sufficient.
func ADXProxy(high, low, close []float64, period int) (adx, plusDI, minusDI float64, ok bool) {
	n := len(high)
	if n < period*2+1 {
		return 0, 0, 0, false
	}
	tr := make([]float64, n-1)
	plusDM := make([]float64, n-1)
	minusDM := make([]float64, n-1)
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i-1] = math.Max(hl, math.Max(hc, lc))

		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}
	smTR := WilderSmoothSeries(tr, period)
	smPlus := WilderSmoothSeries(plusDM, period)
	smMinus := WilderSmoothSeries(minusDM, period)
	last := len(smTR) - 1
	if math.IsNaN(smTR[last]) || smTR[last] < Floor {
		return 0, 0, 0, false
	}
	plusDI = 100 * smPlus[last] / smTR[last]
	minusDI = 100 * smMinus[last] / smTR[last]
	sum := plusDI + minusDI
	if sum < Floor {
		return 0, plusDI, minusDI, true
	}
	adx = 100 * math.Abs(plusDI-minusDI) / sum
	return adx, plusDI, minusDI, true
}

// Last returns the final element of a float slice, or NaN if empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// LastN returns the last n finite (non-NaN) values in order, or fewer if
// the series is shorter / has leading NaNs.
func LastN(values []float64, n int) []float64 {
	var out []float64
	for i := len(values) - 1; i >= 0 && len(out) < n; i-- {
		if !math.IsNaN(values[i]) {
			out = append([]float64{values[i]}, out...)
		}
	}
	return out
}
