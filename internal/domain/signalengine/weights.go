package signalengine

import "github.com/sawpanic/marketintel/internal/domain/asset"

// weightCatalog is the scalper-profile indicator weight table (§4.7.1).
var weightCatalog = map[string]float64{
	"smart_money":       2.5,
	"moving_averages":   2.0,
	"macd":              2.0,
	"volume_spike":      2.0,
	"key_levels":        2.0,
	"rsi":               1.5,
	"stochastic_rsi":    1.5,
	"candle_patterns":   1.5,
	"bollinger_bands":   1.0,
	"obv":               1.0,
	"session_analysis":  0.75,
	"ad_line":           0.75,
	"atr":               0.5,
}

// bullishKeywords / bearishKeywords drive the classification→tri-state
// mapping (§4.7.1). A classification/divergence/crossover string containing
// any of these substrings votes for that side; ties default to neutral.
var bullishKeywords = []string{
	"bullish", "uptrend", "accumulation", "oversold", "at_support", "golden",
	"strong_uptrend", "hammer", "morning_star", "three_white_soldiers",
}

var bearishKeywords = []string{
	"bearish", "downtrend", "distribution", "overbought", "at_resistance", "death",
	"strong_downtrend", "shooting_star", "evening_star", "three_black_crows",
}

// thresholdRow is one (min_score, min_confidence, min_confluence) entry.
type thresholdRow struct {
	MinScore      float64
	MinConfidence float64
	MinConfluence int
}

// thresholdTable holds per-timeframe rows for one asset class, with a
// "default" fallback row for unlisted timeframes (§4.7.2).
type thresholdTable map[string]thresholdRow

var cryptoThresholds = thresholdTable{
	"5m":      {72, 0.70, 7},
	"15m":     {68, 0.65, 6},
	"1h":      {62, 0.58, 5},
	"1d":      {58, 0.52, 4},
	"default": {65, 0.60, 5},
}

var forexThresholds = thresholdTable{
	"5m":      {68, 0.65, 6},
	"15m":     {64, 0.60, 5},
	"1h":      {58, 0.55, 4},
	"1d":      {54, 0.50, 4},
	"default": {60, 0.55, 4},
}

var otherThresholds = thresholdTable{
	"5m":      {65, 0.60, 5},
	"15m":     {60, 0.55, 4},
	"1h":      {58, 0.52, 4},
	"1d":      {55, 0.50, 4},
	"default": {58, 0.52, 4},
}

func thresholdsFor(class asset.Class, timeframe string) thresholdRow {
	var table thresholdTable
	switch class {
	case asset.ClassCrypto:
		table = cryptoThresholds
	case asset.ClassForex:
		table = forexThresholds
	default:
		table = otherThresholds
	}
	if row, ok := table[timeframe]; ok {
		return row
	}
	return table["default"]
}

// levelMult is an (sl_mult, tp_mult) pair for level construction (§4.7.4).
type levelMult struct {
	SL float64
	TP float64
}

type levelTable map[string]levelMult

var cryptoLevels = levelTable{
	"5m":      {3.0, 5.0},
	"15m":     {2.8, 4.5},
	"1h":      {2.2, 3.5},
	"1d":      {1.5, 2.5},
	"default": {2.5, 4.0},
}

var forexLevels = levelTable{
	"5m":      {2.5, 4.0},
	"15m":     {2.2, 3.5},
	"1h":      {1.8, 3.0},
	"1d":      {1.5, 2.5},
	"default": {2.0, 3.5},
}

var otherLevels = levelTable{
	"5m":      {2.5, 4.0},
	"15m":     {2.2, 3.5},
	"1h":      {1.8, 3.0},
	"1d":      {1.5, 2.5},
	"default": {2.0, 3.5},
}

func levelsFor(class asset.Class, timeframe string) levelMult {
	var table levelTable
	switch class {
	case asset.ClassCrypto:
		table = cryptoLevels
	case asset.ClassForex:
		table = forexLevels
	default:
		table = otherLevels
	}
	if mult, ok := table[timeframe]; ok {
		return mult
	}
	return table["default"]
}

// expiryMinutes maps timeframe to expiry window in minutes (§4.7.6).
var expiryMinutes = map[string]int{
	"1m":  15,
	"5m":  60,
	"15m": 180,
	"30m": 360,
	"1h":  600,
	"4h":  1440,
	"1d":  2880,
}
