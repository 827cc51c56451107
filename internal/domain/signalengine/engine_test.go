package signalengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators"
	"github.com/sawpanic/marketintel/internal/domain/predictor"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// stubPredictor is a fixed-confidence Predictor double: the fixtures below
// are engineered to clear the composite-score/confluence gates on their own,
// but the ML blend (§4.7.3) still needs a concrete, deterministic
// prediction rather than depending on the heuristic's behavior on
// synthetic data.
type stubPredictor struct {
	direction  predictor.Direction
	confidence float64
}

func (s stubPredictor) Predict(_ context.Context, _ candle.Series, _ string, _ candle.Timeframe) (predictor.Prediction, error) {
	return predictor.Prediction{Direction: s.direction, Confidence: s.confidence}, nil
}

// trendingSeries builds a long, net-bullish daily series that alternates a
// +4 bar with a -2 bar (steady-state RSI ~66.7, comfortably bullish without
// tripping the 72 overextension cutoff), ending on an up-bar preceded by a
// down-bar so the final candle_patterns read is a bullish engulfing and the
// final bar carries a deliberate volume spike. n must be odd so the last
// index is even (an up-bar).
func trendingSeries(symbol string, n int) candle.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 1000.0
	for idx := 0; idx < n; idx++ {
		delta := 4.0
		if idx%2 == 1 {
			delta = -2.0
		}
		open := price
		price += delta
		closeP := price
		high := open
		if closeP > high {
			high = closeP
		}
		high += 1
		low := open
		if closeP < low {
			low = closeP
		}
		low -= 1
		candles[idx] = candle.Candle{
			Timestamp: base.Add(time.Duration(idx) * 24 * time.Hour),
			Open:      open, High: high, Low: low, Close: closeP,
			Volume: 1000,
		}
	}
	candles[n-1].Volume = 5000 // trailing-SMA volume spike on the closing up-bar
	return candle.Series{Symbol: symbol, Timeframe: candle.TF1d, Candles: candles}
}

func withClassification(value float64, classification string, extra map[string]any) signalmodel.IndicatorResult {
	meta := map[string]any{"classification": classification}
	for k, v := range extra {
		meta[k] = v
	}
	return signalmodel.IndicatorResult{Value: value, Metadata: meta}
}

func TestScoreIndicators_WeightsKnownIndicatorsByClassification(t *testing.T) {
	latest := map[string]signalmodel.IndicatorResult{
		"rsi":             withClassification(25, "oversold", nil),
		"macd":            withClassification(1.2, "bearish_crossover", nil),
		"unknown_ind":     withClassification(1, "bullish", nil),
	}

	result := scoreIndicators(latest)

	assert.Contains(t, result.bullishNames, "rsi")
	assert.Contains(t, result.bearishNames, "macd")
	assert.NotContains(t, result.bullishNames, "unknown_ind")
	assert.Greater(t, result.totalWeight, 0.0)
}

func TestScoreIndicators_EmptyLatestYieldsNeutralScore(t *testing.T) {
	result := scoreIndicators(map[string]signalmodel.IndicatorResult{})

	assert.Equal(t, 0.0, result.totalWeight)
	assert.Equal(t, 50.0, result.compositeScore)
}

func TestClassifyIndicator_DivergenceBoostsWeight(t *testing.T) {
	r := withClassification(10, "neutral", map[string]any{"divergence": "bullish_divergence"})

	side, mult := classifyIndicator(r)

	assert.Equal(t, "bullish", side)
	assert.InDelta(t, 1.3, mult, 1e-9)
}

func TestClassifyIndicator_CrossoverBoostsWeight(t *testing.T) {
	r := withClassification(10, "neutral", map[string]any{"crossover": "golden_cross"})

	side, mult := classifyIndicator(r)

	assert.Equal(t, "bullish", side)
	assert.InDelta(t, 1.2, mult, 1e-9)
}

func TestClassifyIndicator_ConflictingSignalsAreNeutral(t *testing.T) {
	r := withClassification(10, "bullish_but_overbought", nil)

	side, _ := classifyIndicator(r)

	assert.Equal(t, "neutral", side)
}

func TestPickDirection_LongWhenScoreAtOrAboveThreshold(t *testing.T) {
	dir, ok := pickDirection(65, 60)
	require.True(t, ok)
	assert.Equal(t, signalmodel.Long, dir)
}

func TestPickDirection_ShortWhenScoreAtOrBelowMirroredThreshold(t *testing.T) {
	dir, ok := pickDirection(35, 60)
	require.True(t, ok)
	assert.Equal(t, signalmodel.Short, dir)
}

func TestPickDirection_NoDirectionInDeadZone(t *testing.T) {
	_, ok := pickDirection(50, 60)
	assert.False(t, ok)
}

func TestThresholdsFor_ReturnsExactTimeframeRow(t *testing.T) {
	row := thresholdsFor(asset.ClassCrypto, "5m")
	assert.Equal(t, 72.0, row.MinScore)
}

func TestThresholdsFor_FallsBackToDefaultForUnknownTimeframe(t *testing.T) {
	row := thresholdsFor(asset.ClassForex, "3h")
	assert.Equal(t, forexThresholds["default"], row)
}

func TestLevelsFor_ReturnsExactTimeframeRow(t *testing.T) {
	levels := levelsFor(asset.ClassCrypto, "1h")
	assert.Equal(t, 2.2, levels.SL)
	assert.Equal(t, 3.5, levels.TP)
}

func TestAtrFromResults_PrefersATRIndicatorWhenPresent(t *testing.T) {
	latest := map[string]signalmodel.IndicatorResult{"atr": {Value: 12.5}}
	series := candle.Series{Candles: []candle.Candle{{Close: 100}}}

	assert.Equal(t, 12.5, atrFromResults(latest, series))
}

func TestAtrFromResults_FallsBackToPricePercentage(t *testing.T) {
	series := candle.Series{Candles: []candle.Candle{{Close: 100}}}

	assert.InDelta(t, 0.2, atrFromResults(nil, series), 1e-9)
}

func TestBuildSignal_LongLevelsBracketEntryCorrectly(t *testing.T) {
	sig := buildSignal("BTCUSD", candle.TF1h, signalmodel.Long, 100, 10, levelMult{SL: 2, TP: 3})

	assert.Less(t, sig.StopLoss, sig.EntryPrice)
	assert.Greater(t, sig.TakeProfit, sig.EntryPrice)
	assert.InDelta(t, 1.5, sig.RiskRewardRatio, 1e-9)
	assert.True(t, sig.ValidateLevels())
}

func TestBuildSignal_ShortLevelsBracketEntryCorrectly(t *testing.T) {
	sig := buildSignal("BTCUSD", candle.TF1h, signalmodel.Short, 100, 10, levelMult{SL: 2, TP: 3})

	assert.Greater(t, sig.StopLoss, sig.EntryPrice)
	assert.Less(t, sig.TakeProfit, sig.EntryPrice)
	assert.True(t, sig.ValidateLevels())
}

func TestClamp01_BoundsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.4, clamp01(0.4))
}

func TestHasOverextendedPattern_RequiresActiveCategoryMatch(t *testing.T) {
	patterns := []signalmodel.LossPattern{{Category: "weak_volume", IsActive: true}}
	assert.False(t, hasOverextendedPattern(patterns))

	patterns = append(patterns, signalmodel.LossPattern{Category: "overextended", IsActive: true})
	assert.True(t, hasOverextendedPattern(patterns))
}

func TestScan_EmptySeriesYieldsNoSignal(t *testing.T) {
	e := New(indicators.NewRegistry(), nil, nil, nil)

	sig, err := e.Scan(context.Background(), "BTCUSD", candle.TF1h, candle.Series{})

	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestScanMultiTimeframe_EmptyFramesYieldsNoSignals(t *testing.T) {
	e := New(indicators.NewRegistry(), nil, nil, nil)

	out, err := e.ScanMultiTimeframe(context.Background(), "BTCUSD", map[candle.Timeframe]candle.Series{
		candle.TF1h: {}, candle.TF4h: {},
	})

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScan_TrendingSeriesEmitsLongSignalSatisfyingLevelCoherenceAndOverextensionBlock(t *testing.T) {
	e := New(indicators.NewRegistry(), nil, stubPredictor{direction: predictor.Bullish, confidence: 0.9}, nil)
	series := trendingSeries("TESTCOIN", 221)

	sig, err := e.Scan(context.Background(), "TESTCOIN", candle.TF1d, series)

	require.NoError(t, err)
	require.NotNil(t, sig, "fixture is engineered to clear score/confluence/confidence gates for a long signal")

	// P4: level coherence and risk/reward ratio derived from levelsFor(other, "1d").
	assert.Equal(t, signalmodel.Long, sig.Direction)
	assert.True(t, sig.ValidateLevels())
	assert.Less(t, sig.StopLoss, sig.EntryPrice)
	assert.Greater(t, sig.TakeProfit, sig.EntryPrice)
	assert.InDelta(t, 2.5/1.5, sig.RiskRewardRatio, 1e-6)

	// P7: no emitted long signal has snapshot RSI > 72.
	rsiSnapshot, ok := sig.IndicatorSnapshot["rsi"]
	require.True(t, ok)
	assert.LessOrEqual(t, rsiSnapshot.Value, 72.0)
}

func TestScanMultiTimeframe_RealScanAgreementAcrossTimeframesFlagsConfluence(t *testing.T) {
	e := New(indicators.NewRegistry(), nil, stubPredictor{direction: predictor.Bullish, confidence: 0.9}, nil)
	series := trendingSeries("TESTCOIN", 221)

	out, err := e.ScanMultiTimeframe(context.Background(), "TESTCOIN", map[candle.Timeframe]candle.Series{
		candle.TF1h: series,
		candle.TF1d: series,
	})

	require.NoError(t, err)
	require.Len(t, out, 2, "both timeframes are expected to independently qualify a long signal")

	for _, sig := range out {
		assert.Equal(t, signalmodel.Long, sig.Direction)
		assert.True(t, sig.MTFConfluence)
		assert.Len(t, sig.AgreeingTFs, 2)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
	}
}
