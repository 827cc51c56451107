package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const adLineDivergenceLookback = 14

// ADLine is the cumulative money-flow-volume (Accumulation/Distribution)
// line, with the same divergence logic as OBV (§4.4).
type ADLine struct{}

func NewADLine() *ADLine { return &ADLine{} }

func (i *ADLine) Name() string { return "ad_line" }

func (i *ADLine) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n < 2 {
		return nil, nil
	}
	ad := make([]float64, n)
	for idx, c := range series.Candles {
		rng := c.High - c.Low
		mfm := calc.SafeDiv((c.Close-c.Low)-(c.High-c.Close), rng)
		mfv := mfm * c.Volume
		if idx == 0 {
			ad[idx] = mfv
			continue
		}
		ad[idx] = ad[idx-1] + mfv
	}

	closes := series.Closes()
	out := make([]signalmodel.IndicatorResult, 0, n-1)
	for idx := 1; idx < n; idx++ {
		divergence := detectDivergence(closes, ad, idx, adLineDivergenceLookback)
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
			Value:     ad[idx],
			Timestamp: series.Candles[idx].Timestamp,
			Metadata:  meta,
		})
	}
	return out, nil
}
