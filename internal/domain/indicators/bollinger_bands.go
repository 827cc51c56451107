package indicators

import (
	"math"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const (
	bbPeriod       = 20
	bbStdDevMult   = 2.0
	bbSqueezeRatio = 0.75
	bbBandwidthLB  = 50 // rolling lookback for average bandwidth (squeeze detection)
)

// BollingerBands is the 20-period, 2-sigma band indicator (§4.4).
type BollingerBands struct{}

func NewBollingerBands() *BollingerBands { return &BollingerBands{} }

func (i *BollingerBands) Name() string { return "bollinger_bands" }

func (i *BollingerBands) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	closes := series.Closes()
	n := len(closes)
	if n < bbPeriod {
		return nil, nil
	}
	mid := calc.SMASeries(closes, bbPeriod)
	std := calc.StdDevSeries(closes, bbPeriod)

	bandwidth := make([]float64, n)
	for idx := 0; idx < n; idx++ {
		if isNaN(mid[idx]) {
			bandwidth[idx] = math.NaN()
			continue
		}
		upper := mid[idx] + bbStdDevMult*std[idx]
		lower := mid[idx] - bbStdDevMult*std[idx]
		bandwidth[idx] = calc.SafeDiv(upper-lower, mid[idx])
	}

	var out []signalmodel.IndicatorResult
	for idx := bbPeriod - 1; idx < n; idx++ {
		if isNaN(mid[idx]) {
			continue
		}
		upper := mid[idx] + bbStdDevMult*std[idx]
		lower := mid[idx] - bbStdDevMult*std[idx]
		price := closes[idx]
		percentB := calc.SafeDiv(price-lower, upper-lower)

		classification := classifyBollinger(price, upper, lower, mid[idx])
		lookback := bandwidth[:idx+1]
		if len(lookback) > bbBandwidthLB {
			lookback = lookback[len(lookback)-bbBandwidthLB:]
		}
		avgBW, ok := avgFinite(lookback)
		if ok && bandwidth[idx] < bbSqueezeRatio*avgBW {
			classification = "squeeze"
		}

		out = append(out, signalmodel.IndicatorResult{
			Name:      i.Name(),
			Value:     mid[idx],
			Timestamp: series.Candles[idx].Timestamp,
			Metadata: map[string]any{
				"classification": classification,
				"upper":          upper,
				"lower":          lower,
				"bandwidth":      bandwidth[idx],
				"percent_b":      percentB,
			},
		})
	}
	return out, nil
}

func classifyBollinger(price, upper, lower, mid float64) string {
	switch {
	case price > upper:
		return "above_upper_band"
	case price > mid+0.8*(upper-mid):
		return "near_upper_band"
	case price < lower:
		return "below_lower_band"
	case price < mid-0.8*(mid-lower):
		return "near_lower_band"
	default:
		return "within_bands"
	}
}

func avgFinite(v []float64) (float64, bool) {
	sum, count := 0.0, 0
	for _, x := range v {
		if !isNaN(x) {
			sum += x
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
