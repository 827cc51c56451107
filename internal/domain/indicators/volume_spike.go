package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const volumeSpikeLookback = 20
const volumeSpikeThreshold = 1.5

// VolumeSpike emits only when volume ratio to its trailing SMA clears a
// threshold, classifying the bar by the sign of its price change (§4.4).
type VolumeSpike struct{}

func NewVolumeSpike() *VolumeSpike { return &VolumeSpike{} }

func (i *VolumeSpike) Name() string { return "volume_spike" }

func (i *VolumeSpike) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n < volumeSpikeLookback+1 {
		return nil, nil
	}
	volumes := make([]float64, n)
	for idx, c := range series.Candles {
		volumes[idx] = c.Volume
	}
	smas := calc.SMASeries(volumes, volumeSpikeLookback)

	var out []signalmodel.IndicatorResult
	for idx := volumeSpikeLookback; idx < n; idx++ {
		sma := smas[idx-1] // ratio looks at volume vs prior bars' average
		if sma <= 0 {
			continue
		}
		ratio := calc.SafeDiv(volumes[idx], sma)
		if ratio < volumeSpikeThreshold {
			continue
		}
		pctChange := calc.SafeDiv(series.Candles[idx].Close-series.Candles[idx].Open, series.Candles[idx].Open)
		classification := "neutral_high_volume"
		sig := "neutral"
		switch {
		case pctChange > 0:
			classification = "accumulation"
			sig = "bullish"
		case pctChange < 0:
			classification = "distribution"
			sig = "bearish"
		}
		out = append(out, signalmodel.IndicatorResult{
			Name:      i.Name(),
			Value:     ratio,
			Timestamp: series.Candles[idx].Timestamp,
			Metadata: map[string]any{
				"classification": classification,
				"signal":         sig,
				"ratio":          ratio,
			},
		})
	}
	return out, nil
}
