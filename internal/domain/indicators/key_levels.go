package indicators

import (
	"sort"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const (
	klSwingLookback  = 5
	klClusterPct     = 0.003 // swing points within 0.3% cluster into one level
	klProximityPct   = 0.01  // "near" a level within 1%
	klStructureWindow = 100
)

// KeyLevels clusters recent swing points into support/resistance levels and
// adds floor pivots (PP, R1/R2, S1/S2) from the up to 23 bars before the
// latest one and a Fibonacci retracement grid over the visible range (§4.4).
// Its metadata has no "classification" key, so the signal engine scores it
// as neutral.
type KeyLevels struct{}

func NewKeyLevels() *KeyLevels { return &KeyLevels{} }

func (i *KeyLevels) Name() string { return "key_levels" }

func (i *KeyLevels) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n < klSwingLookback*2+2 {
		return nil, nil
	}
	candles := series.Candles
	window := candles
	if n > klStructureWindow {
		window = candles[n-klStructureWindow:]
	}
	highs, lows := detectSwingPoints(window, klSwingLookback)

	var pivots []float64
	for _, idx := range highs {
		pivots = append(pivots, window[idx].High)
	}
	for _, idx := range lows {
		pivots = append(pivots, window[idx].Low)
	}
	levels := clusterLevels(pivots, klClusterPct)

	last := candles[n-1]
	price := last.Close
	prevDayHigh, prevDayLow, prevDayClose := priorPeriodHLC(window)
	pivot := (prevDayHigh + prevDayLow + prevDayClose) / 3
	r1 := 2*pivot - prevDayLow
	s1 := 2*pivot - prevDayHigh
	r2 := pivot + (prevDayHigh - prevDayLow)
	s2 := pivot - (prevDayHigh - prevDayLow)

	rangeHigh, rangeLow := windowHighLow(window)
	fibLevels := fibonacciRetracements(rangeHigh, rangeLow)

	nearestSupport, nearestResistance := 0.0, 0.0
	haveSupport, haveResistance := false, false
	for _, lvl := range levels {
		if lvl <= price && (!haveSupport || lvl > nearestSupport) {
			nearestSupport, haveSupport = lvl, true
		}
		if lvl >= price && (!haveResistance || lvl < nearestResistance) {
			nearestResistance, haveResistance = lvl, true
		}
	}

	nearLevel := false
	if haveSupport && calcPct(price, nearestSupport) <= klProximityPct {
		nearLevel = true
	}
	if haveResistance && calcPct(price, nearestResistance) <= klProximityPct {
		nearLevel = true
	}

	result := signalmodel.IndicatorResult{
		Name:      i.Name(),
		Value:     price,
		Timestamp: last.Timestamp,
		Metadata: map[string]any{
			"levels":             levels,
			"nearest_support":    nearestSupport,
			"nearest_resistance": nearestResistance,
			"near_key_level":     nearLevel,
			"pivot":              pivot,
			"r1":                 r1,
			"s1":                 s1,
			"r2":                 r2,
			"s2":                 s2,
			"fibonacci":          fibLevels,
		},
	}
	return []signalmodel.IndicatorResult{result}, nil
}

func calcPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d / b
}

// clusterLevels groups nearby pivot prices into single representative
// levels (mean of the cluster), sorted ascending.
func clusterLevels(pivots []float64, tolerance float64) []float64 {
	if len(pivots) == 0 {
		return nil
	}
	sorted := append([]float64(nil), pivots...)
	sort.Float64s(sorted)

	var levels []float64
	clusterSum, clusterCount := sorted[0], 1
	clusterStart := sorted[0]
	for idx := 1; idx < len(sorted); idx++ {
		if calcPct(sorted[idx], clusterStart) <= tolerance {
			clusterSum += sorted[idx]
			clusterCount++
			continue
		}
		levels = append(levels, clusterSum/float64(clusterCount))
		clusterStart = sorted[idx]
		clusterSum, clusterCount = sorted[idx], 1
	}
	levels = append(levels, clusterSum/float64(clusterCount))
	return levels
}

func priorPeriodHLC(candles []candle.Candle) (high, low, close float64) {
	n := len(candles)
	segment := candles
	if n > 24 {
		segment = candles[n-24 : n-1]
	} else if n > 1 {
		segment = candles[:n-1]
	}
	high, low = segment[0].High, segment[0].Low
	for _, c := range segment {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	close = segment[len(segment)-1].Close
	return high, low, close
}

func windowHighLow(candles []candle.Candle) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

func fibonacciRetracements(high, low float64) map[string]float64 {
	diff := high - low
	return map[string]float64{
		"0.0":   high,
		"0.236": high - 0.236*diff,
		"0.382": high - 0.382*diff,
		"0.5":   high - 0.5*diff,
		"0.618": high - 0.618*diff,
		"0.786": high - 0.786*diff,
		"1.0":   low,
	}
}
