package indicators

import (
	"math"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACD is the 12/26/9 EMA convergence-divergence oscillator (§4.4).
type MACD struct{}

func NewMACD() *MACD { return &MACD{} }

func (i *MACD) Name() string { return "macd" }

func (i *MACD) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	closes := series.Closes()
	n := len(closes)
	if n < macdSlow+macdSignal {
		return nil, nil
	}
	fastEMA := calc.EMASeries(closes, macdFast)
	slowEMA := calc.EMASeries(closes, macdSlow)

	macdLine := make([]float64, n)
	for idx := 0; idx < n; idx++ {
		if isNaN(fastEMA[idx]) || isNaN(slowEMA[idx]) {
			macdLine[idx] = math.NaN()
			continue
		}
		macdLine[idx] = fastEMA[idx] - slowEMA[idx]
	}
	signalLine := calc.EMASeries(trimLeadingNaN(macdLine), macdSignal)
	// signalLine is computed over the trimmed (NaN-free) slice; re-align to
	// the original index space.
	offset := n - len(trimLeadingNaN(macdLine))

	var out []signalmodel.IndicatorResult
	var prevHist float64
	havePrev := false
	for idx := 0; idx < n; idx++ {
		sigIdx := idx - offset
		if sigIdx < 0 || sigIdx >= len(signalLine) || isNaN(signalLine[sigIdx]) {
			continue
		}
		hist := macdLine[idx] - signalLine[sigIdx]
		classification := classifyMACD(macdLine[idx], hist, havePrev, prevHist)
		meta := map[string]any{"classification": classification}
		if havePrev {
			if prevHist <= 0 && hist > 0 {
				meta["crossover"] = "bullish_crossover"
			} else if prevHist >= 0 && hist < 0 {
				meta["crossover"] = "bearish_crossover"
			}
		}
		sv := signalLine[sigIdx]
		out = append(out, signalmodel.IndicatorResult{
			Name:           i.Name(),
			Value:          macdLine[idx],
			SecondaryValue: &sv,
			Timestamp:      series.Candles[idx].Timestamp,
			Metadata:       meta,
		})
		prevHist = hist
		havePrev = true
	}
	return out, nil
}

func classifyMACD(macdVal, hist float64, havePrev bool, prevHist float64) string {
	switch {
	case macdVal > 0 && (!havePrev || hist >= prevHist):
		return "bullish_momentum"
	case macdVal > 0:
		return "bullish_weakening"
	case macdVal < 0 && (!havePrev || hist <= prevHist):
		return "bearish_momentum"
	case macdVal < 0:
		return "bearish_weakening"
	default:
		return "neutral"
	}
}

func trimLeadingNaN(v []float64) []float64 {
	for i, x := range v {
		if !isNaN(x) {
			return v[i:]
		}
	}
	return nil
}
