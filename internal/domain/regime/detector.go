package regime

import (
	"sync"
	"time"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
)

// Regime is the classified market state (§4.5).
type Regime string

const (
	TrendingUp       Regime = "trending_up"
	TrendingDown     Regime = "trending_down"
	Ranging          Regime = "ranging"
	VolatileBreakout Regime = "volatile_breakout"
	Unknown          Regime = "unknown"
)

const (
	validityWindow = 4 * time.Hour
	stabilityBars  = 20
)

// Features are the raw inputs the rule set maps into a Regime.
type Features struct {
	ATRPct      float64
	EMA20Slope  float64 // 5-bar EMA20 slope divided by ATR
	RSI         float64
	BBWidth     float64
	VolumeRatio float64
	ROC10       float64
	ADXProxy    float64
}

// Detection is a cached classification result for one symbol/timeframe.
type Detection struct {
	Symbol     string
	Regime     Regime
	Confidence float64
	Stability  float64
	Features   Features
	DetectedAt time.Time
	ValidUntil time.Time
}

// Detector classifies market regime from a candle series, caching results
// per symbol for validityWindow and recomputing when stale (§4.5, grounded
// on the teacher's cached majority-vote detector).
type Detector struct {
	mu      sync.Mutex
	cache   map[string]*Detection
	history map[string][]Regime
}

func NewDetector() *Detector {
	return &Detector{
		cache:   make(map[string]*Detection),
		history: make(map[string][]Regime),
	}
}

// Classify returns the cached detection if still valid, otherwise
// recomputes from series.
func (d *Detector) Classify(symbol string, series candle.Series) *Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if cached, ok := d.cache[symbol]; ok && now.Before(cached.ValidUntil) {
		return cached
	}
	return d.recompute(symbol, series, now)
}

// ForceRefresh ignores the cache and recomputes immediately.
func (d *Detector) ForceRefresh(symbol string, series candle.Series) *Detection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recompute(symbol, series, time.Now())
}

func (d *Detector) recompute(symbol string, series candle.Series, now time.Time) *Detection {
	features, ok := computeFeatures(series)
	detection := &Detection{
		Symbol:     symbol,
		DetectedAt: now,
		ValidUntil: now.Add(validityWindow),
		Features:   features,
	}
	if !ok {
		detection.Regime = Unknown
		detection.Confidence = 0
		d.cache[symbol] = detection
		return detection
	}

	regime, confidence := classify(features)
	detection.Regime = regime
	detection.Confidence = confidence

	hist := append(d.history[symbol], regime)
	if len(hist) > stabilityBars {
		hist = hist[len(hist)-stabilityBars:]
	}
	d.history[symbol] = hist
	detection.Stability = stability(hist, regime)

	d.cache[symbol] = detection
	return detection
}

func stability(hist []Regime, current Regime) float64 {
	if len(hist) == 0 {
		return 0
	}
	matches := 0
	for _, r := range hist {
		if r == current {
			matches++
		}
	}
	return float64(matches) / float64(len(hist))
}

const (
	minFeatureBars = 25
	slopeLookback  = 5
)

func computeFeatures(series candle.Series) (Features, bool) {
	closes := series.Closes()
	n := len(closes)
	if n < minFeatureBars {
		return Features{}, false
	}
	high := make([]float64, n)
	low := make([]float64, n)
	for idx, c := range series.Candles {
		high[idx] = c.High
		low[idx] = c.Low
	}

	atr := calc.ATRSeries(high, low, closes, 14)
	atrLast := calc.Last(atr)
	price := closes[n-1]
	atrPct := calc.SafeDiv(atrLast, price) * 100

	ema20 := calc.EMASeries(closes, 20)
	var emaSlope float64
	if n > slopeLookback && !isNaNf(ema20[n-1]) && !isNaNf(ema20[n-1-slopeLookback]) && atrLast > 0 {
		emaSlope = (ema20[n-1] - ema20[n-1-slopeLookback]) / float64(slopeLookback) / atrLast
	}

	rsi := calc.Last(calc.RSISeries(closes, 14))

	sma20 := calc.Last(calc.SMASeries(closes, 20))
	std20 := calc.Last(calc.StdDevSeries(closes, 20))
	bbWidth := calc.SafeDiv(4*std20, sma20)

	volumes := make([]float64, n)
	for idx, c := range series.Candles {
		volumes[idx] = c.Volume
	}
	lookback := 20
	if lookback > n {
		lookback = n
	}
	recentVol := calc.LastN(volumes, lookback)
	avgVol, ok := avgSlice(recentVol)
	volRatio := 1.0
	if ok && avgVol > 0 {
		volRatio = volumes[n-1] / avgVol
	}

	roc10, _ := calc.ROC(closes, 10)

	adx, _, _, adxOK := calc.ADXProxy(high, low, closes, 14)
	if !adxOK {
		adx = 0
	}

	return Features{
		ATRPct:      atrPct,
		EMA20Slope:  emaSlope,
		RSI:         rsi,
		BBWidth:     bbWidth,
		VolumeRatio: volRatio,
		ROC10:       roc10,
		ADXProxy:    adx,
	}, true
}

func avgSlice(v []float64) (float64, bool) {
	sum, count := 0.0, 0
	for _, x := range v {
		if !isNaNf(x) {
			sum += x
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func isNaNf(f float64) bool { return f != f }

// classify maps Features to a Regime and a confidence in [0,1], preferring
// volatile_breakout when volatility/volume spikes dominate, then trend
// direction from EMA slope + ADX strength, falling back to ranging.
func classify(f Features) (Regime, float64) {
	switch {
	case f.ATRPct > 3.0 && f.VolumeRatio > 1.8 && f.BBWidth > 0.08:
		confidence := clamp01(0.5 + (f.VolumeRatio-1.8)/4)
		return VolatileBreakout, confidence

	case f.ADXProxy > 25 && f.EMA20Slope > 0.15 && f.ROC10 > 0:
		confidence := clamp01(0.5 + f.ADXProxy/100)
		return TrendingUp, confidence

	case f.ADXProxy > 25 && f.EMA20Slope < -0.15 && f.ROC10 < 0:
		confidence := clamp01(0.5 + f.ADXProxy/100)
		return TrendingDown, confidence

	case f.BBWidth < 0.04 && absF(f.EMA20Slope) < 0.1:
		confidence := clamp01(0.5 + (0.04-f.BBWidth)*5)
		return Ranging, confidence

	default:
		return Ranging, 0.4
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Compatible reports whether direction is consistent with the regime per
// §4.7.3 (long disfavored in trending_down, short disfavored in
// trending_up).
func Compatible(r Regime, long bool) bool {
	if long && r == TrendingDown {
		return false
	}
	if !long && r == TrendingUp {
		return false
	}
	return true
}
