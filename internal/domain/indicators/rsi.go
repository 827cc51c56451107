package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const rsiPeriod = 14
const rsiDivergenceLookback = 14

// RSI is the 14-period Wilder relative strength index (§4.4).
type RSI struct{}

func NewRSI() *RSI { return &RSI{} }

func (i *RSI) Name() string { return "rsi" }

func ClassifyRSI(v float64) string {
	switch {
	case v >= 70:
		return "overbought"
	case v >= 60:
		return "bullish_momentum"
	case v <= 30:
		return "oversold"
	case v <= 40:
		return "bearish_momentum"
	default:
		return "neutral"
	}
}

func (i *RSI) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	closes := series.Closes()
	rsi := calc.RSISeries(closes, rsiPeriod)

	var out []signalmodel.IndicatorResult
	for idx, v := range rsi {
		if isNaN(v) {
			continue
		}
		meta := map[string]any{"classification": ClassifyRSI(v)}
		priceSlope, ok := calc.Slope(closes[:idx+1], rsiDivergenceLookback)
		if ok {
			rsiWindow := calc.LastN(rsi[:idx+1], rsiDivergenceLookback)
			if len(rsiWindow) == rsiDivergenceLookback {
				rsiSlope := (rsiWindow[len(rsiWindow)-1] - rsiWindow[0]) / float64(rsiDivergenceLookback-1)
				if priceSlope > 0 && rsiSlope < 0 {
					meta["divergence"] = "bearish_divergence"
				} else if priceSlope < 0 && rsiSlope > 0 {
					meta["divergence"] = "bullish_divergence"
				}
			}
		}
		out = append(out, signalmodel.IndicatorResult{
			Name:      i.Name(),
			Value:     v,
			Timestamp: series.Candles[idx].Timestamp,
			Metadata:  meta,
		})
	}
	return out, nil
}

func isNaN(f float64) bool { return f != f }
