package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const obvDivergenceLookback = 14

// OBV is cumulative signed-volume with bullish/bearish divergence detection
// against price over a trailing window (§4.4).
type OBV struct{}

func NewOBV() *OBV { return &OBV{} }

func (i *OBV) Name() string { return "obv" }

func (i *OBV) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n < 2 {
		return nil, nil
	}
	obv := make([]float64, n)
	for idx := 1; idx < n; idx++ {
		prev := series.Candles[idx-1]
		cur := series.Candles[idx]
		switch {
		case cur.Close > prev.Close:
			obv[idx] = obv[idx-1] + cur.Volume
		case cur.Close < prev.Close:
			obv[idx] = obv[idx-1] - cur.Volume
		default:
			obv[idx] = obv[idx-1]
		}
	}

	closes := series.Closes()
	out := make([]signalmodel.IndicatorResult, 0, n-1)
	for idx := 1; idx < n; idx++ {
		divergence := detectDivergence(closes, obv, idx, obvDivergenceLookback)
		classification := "neutral"
		if divergence == "bullish_divergence" {
			classification = "bullish"
		} else if divergence == "bearish_divergence" {
			classification = "bearish"
		}
		meta := map[string]any{"classification": classification}
		if divergence != "" {
			meta["divergence"] = divergence
		}
		out = append(out, signalmodel.IndicatorResult{
			Name:      i.Name(),
			Value:     obv[idx],
			Timestamp: series.Candles[idx].Timestamp,
			Metadata:  meta,
		})
	}
	return out, nil
}

// detectDivergence implements the shared OBV/AD-line rule (§4.4): bearish
// divergence when price makes a higher high over the window while the
// oscillator makes a lower high; bullish divergence is the mirror on lows.
func detectDivergence(price, osc []float64, idx, lookback int) string {
	start := idx - lookback
	if start < 0 {
		return ""
	}
	priceWindow := price[start : idx+1]
	oscWindow := osc[start : idx+1]

	priceHighIdx, priceLowIdx := argMax(priceWindow), argMin(priceWindow)
	oscHighIdx, oscLowIdx := argMax(oscWindow), argMin(oscWindow)

	lastIdx := len(priceWindow) - 1
	// Higher high in price but lower high in oscillator, with the price high
	// occurring at or after the oscillator's high bar -> bearish divergence.
	if priceWindow[lastIdx] >= priceWindow[priceHighIdx] && oscHighIdx < lastIdx &&
		oscWindow[lastIdx] < oscWindow[oscHighIdx] && priceHighIdx >= oscHighIdx {
		return "bearish_divergence"
	}
	if priceWindow[lastIdx] <= priceWindow[priceLowIdx] && oscLowIdx < lastIdx &&
		oscWindow[lastIdx] > oscWindow[oscLowIdx] && priceLowIdx >= oscLowIdx {
		return "bullish_divergence"
	}
	return ""
}

func argMax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}

func argMin(v []float64) int {
	best := 0
	for i, x := range v {
		if x < v[best] {
			best = i
		}
	}
	return best
}
