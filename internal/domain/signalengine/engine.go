// Package signalengine implements the weighted-scoring signal generator
// (§4.7): composite scoring from the indicator catalog, direction and
// confidence adjustment, level construction, and multi-timeframe
// confluence.
package signalengine

import (
	"context"
	"strings"
	"time"

	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators"
	"github.com/sawpanic/marketintel/internal/domain/indicators/calc"
	"github.com/sawpanic/marketintel/internal/domain/predictor"
	"github.com/sawpanic/marketintel/internal/domain/regime"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
	"github.com/sawpanic/marketintel/internal/score/composite"
)

const (
	overextendedLongRSI  = 72.0
	overextendedShortRSI = 28.0
	extendedLongRSI      = 65.0
	extendedShortRSI     = 35.0
	mtfConfluenceBoost   = 1.15
)

// LossPatternSource supplies the active loss-learning filters the engine
// consults during direction/confidence adjustment (§4.7.3, C11).
type LossPatternSource interface {
	ActivePatterns() []signalmodel.LossPattern
}

// Engine ties the indicator registry, regime classifier, and ML predictor
// into signal generation.
type Engine struct {
	Registry  *indicators.Registry
	Regime    *regime.Detector
	Predictor predictor.Predictor
	LossSource LossPatternSource
	scorer    *composite.Scorer
}

func New(reg *indicators.Registry, rd *regime.Detector, pred predictor.Predictor, lossSource LossPatternSource) *Engine {
	return &Engine{Registry: reg, Regime: rd, Predictor: pred, LossSource: lossSource, scorer: composite.NewScorer()}
}

// Scan runs the full signal-generation path for one symbol/timeframe series
// and returns nil (no error) if no signal qualifies.
func (e *Engine) Scan(ctx context.Context, symbol string, tf candle.Timeframe, series candle.Series) (*signalmodel.Signal, error) {
	if len(series.Candles) == 0 {
		return nil, nil
	}
	all := e.Registry.CalculateAll(series)
	latest := indicators.Latest(all)
	if len(latest) == 0 {
		return nil, nil
	}

	class := asset.ClassOf(symbol)
	thresholds := thresholdsFor(class, string(tf))

	scoring := scoreIndicators(latest)
	if scoring.totalWeight <= 0 {
		return nil, nil
	}

	direction, ok := pickDirection(scoring.compositeScore, thresholds.MinScore)
	if !ok {
		return nil, nil
	}

	rsiResult, haveRSI := latest["rsi"]
	if haveRSI {
		if direction == signalmodel.Long && rsiResult.Value > overextendedLongRSI {
			return nil, nil
		}
		if direction == signalmodel.Short && rsiResult.Value < overextendedShortRSI {
			return nil, nil
		}
	}

	lossPatterns := e.activeLossPatterns()
	if haveRSI && hasOverextendedPattern(lossPatterns) {
		if direction == signalmodel.Long && rsiResult.Value > extendedLongRSI {
			return nil, nil
		}
		if direction == signalmodel.Short && rsiResult.Value < extendedShortRSI {
			return nil, nil
		}
	}

	var explain []string
	baseConfidence := scoring.winningWeight(direction) / scoring.totalWeight
	confidence := baseConfidence
	explain = append(explain, "base_confidence")

	pred := predictor.NeutralOnError(ctx, e.Predictor, series, symbol, tf)
	mlDirection := mapPredictorDirection(pred.Direction)
	mlAgrees := mlDirection == "" || mlDirection == direction
	if mlAgrees {
		confidence = 0.7*confidence + 0.3*pred.Confidence
		explain = append(explain, "ml_blend")
	}

	var detection *regime.Detection
	if e.Regime != nil {
		detection = e.Regime.Classify(symbol, series)
	}
	regimeCompatible := true
	if detection != nil {
		regimeCompatible = regime.Compatible(detection.Regime, direction == signalmodel.Long)
		if !regimeCompatible {
			confidence *= 0.4
			explain = append(explain, "regime_incompatible")
		}
	}

	if scoring.confluenceCount(direction) < thresholds.MinConfluence {
		confidence *= 0.7
		explain = append(explain, "low_confluence")
	}

	lossFilterApplied := false
	regimeLabel := ""
	if detection != nil {
		regimeLabel = string(detection.Regime)
	}
	for _, p := range lossPatterns {
		if p.Matches(regimeLabel, direction) {
			confidence *= 0.5
			lossFilterApplied = true
			explain = append(explain, "loss_pattern_match")
			break
		}
	}

	if confidence < thresholds.MinConfidence {
		return nil, nil
	}

	atrValue := atrFromResults(latest, series)
	levels := levelsFor(class, string(tf))
	last, _ := series.Last()
	entry := last.Close
	sig := buildSignal(symbol, tf, direction, entry, atrValue, levels)

	sig.Confidence = clamp01(confidence)
	sig.CompositeScore = scoring.compositeScore
	if haveRSI || mlDirection != "" {
		mc := pred.Confidence
		sig.MLConfidence = &mc
	}
	sig.RegimeAtSignal = regimeLabel

	compositeSummary := ""
	if explanation, eerr := e.scorer.Explain(scoring.compositeScore, regimeLabel, scoring.bullishNames, scoring.bearishNames, explain); eerr == nil {
		compositeSummary = explanation.Summary()
	}

	sig.Reasons = signalmodel.SignalReasons{
		BullishIndicators: scoring.bullishNames,
		BearishIndicators: scoring.bearishNames,
		ConfluenceCount:   scoring.confluenceCount(direction),
		MLAgrees:          mlAgrees,
		MLDirection:       string(pred.Direction),
		MLConfidence:      pred.Confidence,
		RegimeCompatible:  regimeCompatible,
		LossFilterApplied: lossFilterApplied,
		ATRValue:          atrValue,
		CompositeScore:    scoring.compositeScore,
		Explain:           explain,
		CompositeSummary:  compositeSummary,
	}
	sig.IndicatorSnapshot = scoring.snapshot
	sig.GeneratedAt = time.Now()
	if window, ok := expiryMinutes[string(tf)]; ok {
		sig.ExpiresAt = sig.GeneratedAt.Add(time.Duration(window) * time.Minute)
	} else {
		sig.ExpiresAt = sig.GeneratedAt.Add(time.Duration(expiryMinutes["default"]) * time.Minute)
	}

	return &sig, nil
}

// ScanMultiTimeframe runs Scan per timeframe then, if two or more agree on
// direction, flags mtf_confluence and boosts each contributing signal's
// confidence by 1.15 (clamped to 1.0) per §4.7.5.
func (e *Engine) ScanMultiTimeframe(ctx context.Context, symbol string, framesByTF map[candle.Timeframe]candle.Series) ([]*signalmodel.Signal, error) {
	var out []*signalmodel.Signal
	for tf, series := range framesByTF {
		sig, err := e.Scan(ctx, symbol, tf, series)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			out = append(out, sig)
		}
	}

	counts := map[signalmodel.Direction][]candle.Timeframe{}
	for _, sig := range out {
		counts[sig.Direction] = append(counts[sig.Direction], sig.Timeframe)
	}
	for _, sig := range out {
		agreeing := counts[sig.Direction]
		if len(agreeing) >= 2 {
			sig.MTFConfluence = true
			sig.AgreeingTFs = agreeing
			sig.Confidence = clamp01(sig.Confidence * mtfConfluenceBoost)
		}
	}
	return out, nil
}

func (e *Engine) activeLossPatterns() []signalmodel.LossPattern {
	if e.LossSource == nil {
		return nil
	}
	return e.LossSource.ActivePatterns()
}

func hasOverextendedPattern(patterns []signalmodel.LossPattern) bool {
	for _, p := range patterns {
		if p.Category == "overextended" && p.IsActive {
			return true
		}
	}
	return false
}

func mapPredictorDirection(d predictor.Direction) signalmodel.Direction {
	switch d {
	case predictor.Bullish:
		return signalmodel.Long
	case predictor.Bearish:
		return signalmodel.Short
	default:
		return ""
	}
}

func pickDirection(score, minScore float64) (signalmodel.Direction, bool) {
	switch {
	case score >= minScore:
		return signalmodel.Long, true
	case score <= 100-minScore:
		return signalmodel.Short, true
	default:
		return "", false
	}
}

// atrFromResults is the three-tier ATR fallback (§4.7.4): prefer the ATR
// indicator's latest value, else compute a manual 14-bar true-range average
// inline, else fall back to 0.2% of the last close.
func atrFromResults(latest map[string]signalmodel.IndicatorResult, series candle.Series) float64 {
	if r, ok := latest["atr"]; ok && r.Value > 0 {
		return r.Value
	}
	if manual, ok := manualATR(series, 14); ok && manual > 0 {
		return manual
	}
	closes := series.Closes()
	n := len(closes)
	if n == 0 {
		return 0
	}
	price := closes[n-1]
	return price * 0.002
}

func manualATR(series candle.Series, period int) (float64, bool) {
	n := len(series.Candles)
	if n < period+1 {
		return 0, false
	}
	high := make([]float64, n)
	low := make([]float64, n)
	closeP := make([]float64, n)
	for idx, c := range series.Candles {
		high[idx], low[idx], closeP[idx] = c.High, c.Low, c.Close
	}
	window := calc.LastN(calc.TrueRanges(high, low, closeP), period)
	sum, count := 0.0, 0
	for _, v := range window {
		if v == v { // skip NaN
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func buildSignal(symbol string, tf candle.Timeframe, direction signalmodel.Direction, entry, atrValue float64, levels levelMult) signalmodel.Signal {
	var sl, tp float64
	if direction == signalmodel.Long {
		sl = entry - levels.SL*atrValue
		tp = entry + levels.TP*atrValue
	} else {
		sl = entry + levels.SL*atrValue
		tp = entry - levels.TP*atrValue
	}
	rr := 0.0
	if denom := absF(entry - sl); denom > 0 {
		rr = absF(tp-entry) / denom
	}
	return signalmodel.Signal{
		Symbol:          symbol,
		Timeframe:       tf,
		Direction:       direction,
		Status:          signalmodel.StatusPending,
		EntryPrice:      entry,
		StopLoss:        sl,
		TakeProfit:      tp,
		RiskRewardRatio: rr,
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
