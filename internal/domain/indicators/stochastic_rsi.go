package indicators

import (
	"math"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const (
	stochRSIPeriod  = 14
	stochKPeriod    = 14
	stochKSmoothing = 3
	stochDSmoothing = 3
)

// StochasticRSI applies the stochastic oscillator formula to the RSI series
// itself (14/14/3/3), per §4.4.
type StochasticRSI struct{}

func NewStochasticRSI() *StochasticRSI { return &StochasticRSI{} }

func (i *StochasticRSI) Name() string { return "stochastic_rsi" }

func (i *StochasticRSI) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	closes := series.Closes()
	rsi := calc.RSISeries(closes, stochRSIPeriod)
	n := len(rsi)

	rawK := make([]float64, n)
	for idx := range rawK {
		rawK[idx] = math.NaN()
	}
	for idx := stochKPeriod - 1; idx < n; idx++ {
		window := rsi[idx-stochKPeriod+1 : idx+1]
		lo, hi, ok := minMaxFinite(window)
		if !ok {
			continue
		}
		rawK[idx] = calc.SafeDiv(rsi[idx]-lo, hi-lo) * 100
	}

	kTrimmed := trimLeadingNaN(rawK)
	kOffset := n - len(kTrimmed)
	kSmoothed := calc.SMASeries(kTrimmed, stochKSmoothing)

	dTrimmed := trimLeadingNaN(kSmoothed)
	dOffset := kOffset + (len(kSmoothed) - len(dTrimmed))
	dSmoothed := calc.SMASeries(dTrimmed, stochDSmoothing)

	var out []signalmodel.IndicatorResult
	var prevKAboveD bool
	havePrev := false
	for idx := 0; idx < n; idx++ {
		ki := idx - kOffset
		di := idx - dOffset
		if ki < 0 || ki >= len(kSmoothed) || isNaN(kSmoothed[ki]) {
			continue
		}
		if di < 0 || di >= len(dSmoothed) || isNaN(dSmoothed[di]) {
			continue
		}
		k, d := kSmoothed[ki], dSmoothed[di]
		classification := classifyStochRSI(k, d, prevKAboveD, havePrev)
		meta := map[string]any{"classification": classification}
		above := k > d
		if havePrev {
			if above && !prevKAboveD {
				meta["crossover"] = "bullish_crossover"
			} else if !above && prevKAboveD {
				meta["crossover"] = "bearish_crossover"
			}
		}
		prevKAboveD = above
		havePrev = true

		dv := d
		out = append(out, signalmodel.IndicatorResult{
			Name:           i.Name(),
			Value:          k,
			SecondaryValue: &dv,
			Timestamp:      series.Candles[idx].Timestamp,
			Metadata:       meta,
		})
	}
	return out, nil
}

func classifyStochRSI(k, d float64, prevKAboveD, havePrev bool) string {
	switch {
	case k >= 80 && d >= 80:
		return "overbought"
	case k <= 20 && d <= 20:
		return "oversold"
	case havePrev && k > d && !prevKAboveD && k < 50:
		return "bullish_reversal"
	case havePrev && k < d && prevKAboveD && k > 50:
		return "bearish_reversal"
	default:
		return "neutral"
	}
}

func minMaxFinite(v []float64) (lo, hi float64, ok bool) {
	first := true
	for _, x := range v {
		if isNaN(x) {
			continue
		}
		if first {
			lo, hi = x, x
			first = false
			continue
		}
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi, !first
}
