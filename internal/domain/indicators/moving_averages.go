package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// MovingAverages reports SMA 20/50/(200 if available) and EMA 9/21,
// classifying trend strength and flagging crossovers (§4.4).
type MovingAverages struct{}

func NewMovingAverages() *MovingAverages { return &MovingAverages{} }

func (i *MovingAverages) Name() string { return "moving_averages" }

func (i *MovingAverages) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	closes := series.Closes()
	n := len(closes)
	if n < 50 {
		return nil, nil
	}
	sma20 := calc.SMASeries(closes, 20)
	sma50 := calc.SMASeries(closes, 50)
	var sma200 []float64
	have200 := n >= 200
	if have200 {
		sma200 = calc.SMASeries(closes, 200)
	}
	ema9 := calc.EMASeries(closes, 9)
	ema21 := calc.EMASeries(closes, 21)

	var out []signalmodel.IndicatorResult
	var prevEMA9Above, haveEMAPrev bool
	var prevSMA50Above, haveSMAPrev bool
	for idx := 49; idx < n; idx++ {
		if isNaN(sma20[idx]) || isNaN(sma50[idx]) {
			continue
		}
		price := closes[idx]
		score := 0
		if price > sma20[idx] {
			score++
		}
		if price > sma50[idx] {
			score++
		}
		if have200 && !isNaN(sma200[idx]) && price > sma200[idx] {
			score++
		}
		if sma20[idx] > sma50[idx] {
			score++
		}
		denom := 3
		if have200 {
			denom = 4
		}
		classification := classifyTrend(score, denom)

		meta := map[string]any{"classification": classification}

		if !isNaN(ema9[idx]) && !isNaN(ema21[idx]) {
			above := ema9[idx] > ema21[idx]
			if haveEMAPrev {
				if above && !prevEMA9Above {
					meta["crossover"] = "bullish_ema_crossover"
				} else if !above && prevEMA9Above {
					meta["crossover"] = "bearish_ema_crossover"
				}
			}
			prevEMA9Above = above
			haveEMAPrev = true
		}

		if have200 && !isNaN(sma200[idx]) {
			above := sma50[idx] > sma200[idx]
			if haveSMAPrev {
				if above && !prevSMA50Above {
					meta["crossover"] = "golden_cross"
				} else if !above && prevSMA50Above {
					meta["crossover"] = "death_cross"
				}
			}
			prevSMA50Above = above
			haveSMAPrev = true
		}

		sv := sma50[idx]
		out = append(out, signalmodel.IndicatorResult{
			Name:           i.Name(),
			Value:          sma20[idx],
			SecondaryValue: &sv,
			Timestamp:      series.Candles[idx].Timestamp,
			Metadata:       meta,
		})
	}
	return out, nil
}

func classifyTrend(score, denom int) string {
	ratio := float64(score) / float64(denom)
	switch {
	case ratio >= 1.0:
		return "strong_uptrend"
	case ratio >= 0.75:
		return "uptrend"
	case ratio <= 0.0:
		return "strong_downtrend"
	case ratio <= 0.25:
		return "downtrend"
	default:
		return "neutral"
	}
}
