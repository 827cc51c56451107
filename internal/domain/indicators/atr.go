package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const atrPeriod = 14
const atrRollingLookback = 50

// ATR is the 14-period Wilder average true range (§4.4).
type ATR struct{}

func NewATR() *ATR { return &ATR{} }

func (i *ATR) Name() string { return "atr" }

func (i *ATR) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n < atrPeriod+1 {
		return nil, nil
	}
	high := make([]float64, n)
	low := make([]float64, n)
	closeP := make([]float64, n)
	for idx, c := range series.Candles {
		high[idx], low[idx], closeP[idx] = c.High, c.Low, c.Close
	}
	atr := calc.ATRSeries(high, low, closeP, atrPeriod)

	var out []signalmodel.IndicatorResult
	for idx, v := range atr {
		if isNaN(v) {
			continue
		}
		pct := calc.SafeDiv(v, closeP[idx]) * 100
		lookback := calc.LastN(atr[:idx+1], atrRollingLookback)
		avgATR, ok := avgFinite(lookback)
		classification := "normal"
		if ok && avgATR > 0 {
			ratio := v / avgATR
			switch {
			case ratio >= 1.3:
				classification = "high"
			case ratio >= 1.1:
				classification = "rising"
			case ratio <= 0.7:
				classification = "low_volatility"
			case ratio <= 0.9:
				classification = "falling"
			}
		}
		sv := pct
		out = append(out, signalmodel.IndicatorResult{
			Name:           i.Name(),
			Value:          v,
			SecondaryValue: &sv,
			Timestamp:      series.Candles[idx].Timestamp,
			Metadata: map[string]any{
				"classification":    classification,
				"atr_pct":           pct,
				"suggested_stop_2x": 2 * v,
			},
		})
	}
	return out, nil
}
