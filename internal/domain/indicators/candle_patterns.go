package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// CandlePatterns recognizes single, two, and three-candle reversal and
// continuation patterns, emitting a result only on bars where at least one
// pattern fires, with a strength score (§4.4).
type CandlePatterns struct{}

func NewCandlePatterns() *CandlePatterns { return &CandlePatterns{} }

func (i *CandlePatterns) Name() string { return "candle_patterns" }

func (i *CandlePatterns) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	candles := series.Candles
	n := len(candles)
	if n < 3 {
		return nil, nil
	}
	var out []signalmodel.IndicatorResult
	for idx := 2; idx < n; idx++ {
		c0, c1, c2 := candles[idx-2], candles[idx-1], candles[idx]
		pattern, bullish, strength := detectPattern(c0, c1, c2)
		if pattern == "" {
			continue
		}
		direction := "bearish"
		if bullish {
			direction = "bullish"
		}
		out = append(out, signalmodel.IndicatorResult{
			Name:      i.Name(),
			Value:     strength,
			Timestamp: c2.Timestamp,
			Metadata: map[string]any{
				"pattern":        pattern,
				"direction":      direction,
				"classification": direction,
				"strength":       strength,
			},
		})
	}
	return out, nil
}

func body(c candle.Candle) float64 {
	b := c.Close - c.Open
	if b < 0 {
		return -b
	}
	return b
}

func fullRange(c candle.Candle) float64 {
	return c.High - c.Low
}

func upperWick(c candle.Candle) float64 {
	top := c.Close
	if c.Open > top {
		top = c.Open
	}
	return c.High - top
}

func lowerWick(c candle.Candle) float64 {
	bottom := c.Close
	if c.Open < bottom {
		bottom = c.Open
	}
	return bottom - c.Low
}

func isBullish(c candle.Candle) bool { return c.Close > c.Open }
func isBearish(c candle.Candle) bool { return c.Close < c.Open }

// detectPattern checks three-candle patterns first, falls back to
// two-candle, then single-candle; returns the first match with a strength
// score in [0,1].
func detectPattern(c0, c1, c2 candle.Candle) (pattern string, bullish bool, strength float64) {
	if p, b, s, ok := threeCandlePattern(c0, c1, c2); ok {
		return p, b, s
	}
	if p, b, s, ok := twoCandlePattern(c1, c2); ok {
		return p, b, s
	}
	if p, b, s, ok := singleCandlePattern(c2); ok {
		return p, b, s
	}
	return "", false, 0
}

func threeCandlePattern(c0, c1, c2 candle.Candle) (string, bool, float64, bool) {
	r0, r1, r2 := fullRange(c0), fullRange(c1), fullRange(c2)
	if r0 <= 0 || r1 <= 0 || r2 <= 0 {
		return "", false, 0, false
	}
	// Morning star: bearish, small-body, bullish closing above c0's midpoint.
	if isBearish(c0) && body(c0)/r0 > 0.5 &&
		body(c1)/r1 < 0.3 &&
		isBullish(c2) && c2.Close > (c0.Open+c0.Close)/2 {
		strength := minF(1.0, body(c2)/r2+0.3)
		return "morning_star", true, strength, true
	}
	// Evening star: mirror.
	if isBullish(c0) && body(c0)/r0 > 0.5 &&
		body(c1)/r1 < 0.3 &&
		isBearish(c2) && c2.Close < (c0.Open+c0.Close)/2 {
		strength := minF(1.0, body(c2)/r2+0.3)
		return "evening_star", false, strength, true
	}
	// Three white soldiers: three consecutive strong bullish candles with
	// higher closes.
	if isBullish(c0) && isBullish(c1) && isBullish(c2) &&
		c1.Close > c0.Close && c2.Close > c1.Close &&
		body(c0)/r0 > 0.5 && body(c1)/r1 > 0.5 && body(c2)/r2 > 0.5 {
		return "three_white_soldiers", true, 0.8, true
	}
	// Three black crows: mirror.
	if isBearish(c0) && isBearish(c1) && isBearish(c2) &&
		c1.Close < c0.Close && c2.Close < c1.Close &&
		body(c0)/r0 > 0.5 && body(c1)/r1 > 0.5 && body(c2)/r2 > 0.5 {
		return "three_black_crows", false, 0.8, true
	}
	return "", false, 0, false
}

func twoCandlePattern(c1, c2 candle.Candle) (string, bool, float64, bool) {
	r2 := fullRange(c2)
	if r2 <= 0 {
		return "", false, 0, false
	}
	// Bullish engulfing.
	if isBearish(c1) && isBullish(c2) && c2.Open <= c1.Close && c2.Close >= c1.Open {
		strength := minF(1.0, safeRatio(body(c2), body(c1)))
		return "bullish_engulfing", true, strength, true
	}
	// Bearish engulfing.
	if isBullish(c1) && isBearish(c2) && c2.Open >= c1.Close && c2.Close <= c1.Open {
		strength := minF(1.0, safeRatio(body(c2), body(c1)))
		return "bearish_engulfing", false, strength, true
	}
	// Bullish harami: small bullish body contained within prior bearish body.
	if isBearish(c1) && isBullish(c2) && c2.Open >= c1.Close && c2.Close <= c1.Open {
		return "bullish_harami", true, 0.5, true
	}
	// Bearish harami: mirror.
	if isBullish(c1) && isBearish(c2) && c2.Open <= c1.Close && c2.Close >= c1.Open {
		return "bearish_harami", false, 0.5, true
	}
	// Tweezer bottom: matching lows, second candle bullish.
	if isBearish(c1) && isBullish(c2) && calcPct(c1.Low, c2.Low) < 0.002 {
		return "tweezer_bottom", true, 0.5, true
	}
	// Tweezer top: matching highs, second candle bearish.
	if isBullish(c1) && isBearish(c2) && calcPct(c1.High, c2.High) < 0.002 {
		return "tweezer_top", false, 0.5, true
	}
	return "", false, 0, false
}

func singleCandlePattern(c candle.Candle) (string, bool, float64, bool) {
	r := fullRange(c)
	if r <= 0 {
		return "", false, 0, false
	}
	b := body(c)
	upper, lower := upperWick(c), lowerWick(c)

	// Doji: body is negligible relative to range.
	if b/r < 0.1 {
		return "doji", isBullish(c), 0.3, true
	}
	// Hammer: small body near top, long lower wick >= 2x body.
	if lower >= 2*b && upper <= b*0.5 && b/r < 0.4 {
		return "hammer", true, minF(1.0, lower/r), true
	}
	// Shooting star: small body near bottom, long upper wick >= 2x body.
	if upper >= 2*b && lower <= b*0.5 && b/r < 0.4 {
		return "shooting_star", false, minF(1.0, upper/r), true
	}
	// Marubozu: full body, negligible wicks either direction.
	if b/r > 0.95 {
		return "marubozu", isBullish(c), 0.7, true
	}
	return "", false, 0, false
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	return a / b
}
