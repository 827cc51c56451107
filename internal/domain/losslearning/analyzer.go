// Package losslearning categorizes closed-loss signals and extracts
// recurring patterns the signal engine consults as soft filters (§4.10).
package losslearning

import (
	"sort"
	"strings"

	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

const (
	defaultWindow          = 50
	minPatternFrequency    = 3
	overextendedLongRSI    = 75.0
	overextendedShortRSI   = 25.0
	overextendedStochHigh  = 80.0
	overextendedStochLow   = 20.0
	minConfluenceThreshold = 4
	weakVolumeRatio        = 0.8
	falseBreakoutMFERatio  = 0.3
	newsEventMAEMult       = 2.0
)

// Category is one of the seven fixed loss tags, checked in this fixed
// order; the first to fire is primary (§4.10).
const (
	CategoryRegimeMismatch = "regime_mismatch"
	CategoryOverextended   = "overextended"
	CategoryLowConfluence  = "low_confluence"
	CategoryWeakVolume     = "weak_volume"
	CategoryAgainstTrend   = "against_trend"
	CategoryFalseBreakout  = "false_breakout"
	CategoryNewsEvent      = "news_event"
	CategoryUnknown        = "unknown"
)

var categoryOrder = []string{
	CategoryRegimeMismatch,
	CategoryOverextended,
	CategoryLowConfluence,
	CategoryWeakVolume,
	CategoryAgainstTrend,
	CategoryFalseBreakout,
	CategoryNewsEvent,
}

var recommendations = map[string]string{
	CategoryRegimeMismatch: "avoid trading against the detected regime direction",
	CategoryOverextended:   "wait for RSI/StochRSI to retreat from extremes before entry",
	CategoryLowConfluence:  "require more agreeing indicators before entry",
	CategoryWeakVolume:     "avoid entries on below-average volume",
	CategoryAgainstTrend:   "avoid entries opposing the moving-average trend",
	CategoryFalseBreakout:  "tighten targets or wait for retest confirmation",
	CategoryNewsEvent:      "widen stops or avoid trading around high-impact events",
}

// Categorize determines the primary category and the full set of
// categories whose predicate fired for a closed-loss signal (§4.10 table).
func Categorize(sig signalmodel.Signal) (primary string, all []string) {
	checks := map[string]bool{
		CategoryRegimeMismatch: regimeMismatch(sig),
		CategoryOverextended:   overextended(sig),
		CategoryLowConfluence:  sig.Reasons.ConfluenceCount < minConfluenceThreshold,
		CategoryWeakVolume:     weakVolume(sig),
		CategoryAgainstTrend:   againstTrend(sig),
		CategoryFalseBreakout:  falseBreakout(sig),
		CategoryNewsEvent:      newsEvent(sig),
	}
	for _, cat := range categoryOrder {
		if checks[cat] {
			all = append(all, cat)
		}
	}
	if len(all) == 0 {
		return CategoryUnknown, []string{CategoryUnknown}
	}
	return all[0], all
}

func regimeMismatch(sig signalmodel.Signal) bool {
	if !sig.Reasons.RegimeCompatible {
		return true
	}
	switch sig.RegimeAtSignal {
	case "trending_down", "volatile_breakout":
		return sig.Direction == signalmodel.Long
	case "trending_up":
		return sig.Direction == signalmodel.Short
	}
	return false
}

func overextended(sig signalmodel.Signal) bool {
	rsiSnap, haveRSI := sig.IndicatorSnapshot["rsi"]
	stochSnap, haveStoch := sig.IndicatorSnapshot["stochastic_rsi"]
	if sig.Direction == signalmodel.Long {
		if haveRSI && rsiSnap.Value > overextendedLongRSI {
			return true
		}
		if haveStoch && stochSnap.Value > overextendedStochHigh {
			return true
		}
		return false
	}
	if haveRSI && rsiSnap.Value < overextendedShortRSI {
		return true
	}
	if haveStoch && stochSnap.Value < overextendedStochLow {
		return true
	}
	return false
}

func weakVolume(sig signalmodel.Signal) bool {
	snap, ok := sig.IndicatorSnapshot["volume_spike"]
	if !ok {
		return false
	}
	if snap.Value < weakVolumeRatio {
		return true
	}
	return strings.Contains(strings.ToLower(snap.Classification), "low")
}

func againstTrend(sig signalmodel.Signal) bool {
	snap, ok := sig.IndicatorSnapshot["moving_averages"]
	if !ok {
		return false
	}
	cls := strings.ToLower(snap.Classification)
	if sig.Direction == signalmodel.Long {
		return strings.Contains(cls, "downtrend")
	}
	return strings.Contains(cls, "uptrend")
}

func falseBreakout(sig signalmodel.Signal) bool {
	risk := absF(sig.EntryPrice - sig.StopLoss)
	if risk == 0 {
		risk = 1
	}
	return sig.MaxFavorable > falseBreakoutMFERatio*risk
}

func newsEvent(sig signalmodel.Signal) bool {
	atr := sig.Reasons.ATRValue
	if atr <= 0 {
		return false
	}
	return sig.MaxAdverse > newsEventMAEMult*atr
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// AnalyzeLossPatterns takes the last `window` completed signals, categorizes
// each loss, and returns every category reaching minPatternFrequency as a
// LossPattern, plus the win-rate uplift from hypothetically skipping all
// pattern-matched losses (§4.10).
func AnalyzeLossPatterns(signals []signalmodel.Signal, window int) ([]signalmodel.LossPattern, float64) {
	if window <= 0 {
		window = defaultWindow
	}
	completed := completedOnly(signals)
	if len(completed) > window {
		completed = completed[len(completed)-window:]
	}

	var losses []lossInfo
	wins := 0
	for _, sig := range completed {
		if sig.Status == signalmodel.StatusWin {
			wins++
			continue
		}
		primary := sig.LossCategory
		var category string
		if primary != nil {
			category = *primary
		} else {
			category, _ = Categorize(sig)
		}
		losses = append(losses, lossInfo{sig: sig, primary: category})
	}

	byCategory := map[string][]lossInfo{}
	for _, l := range losses {
		byCategory[l.primary] = append(byCategory[l.primary], l)
	}

	var patterns []signalmodel.LossPattern
	skippedLosses := 0
	for category, items := range byCategory {
		if len(items) < minPatternFrequency {
			continue
		}
		conditions := conditionsFor(category, items)
		patterns = append(patterns, signalmodel.LossPattern{
			ID:             "pattern_" + category,
			Category:       category,
			Conditions:     conditions,
			Frequency:      len(items),
			TotalWindow:    len(completed),
			AvgLossPct:     avgLossPct(items),
			Recommendation: recommendations[category],
			IsActive:       true,
		})
		skippedLosses += len(items)
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Frequency > patterns[j].Frequency })

	total := len(completed)
	winRate := 0.0
	if total > 0 {
		winRate = float64(wins) / float64(total)
	}
	adjustedDenominator := total - skippedLosses
	adjustedWinRate := winRate
	if adjustedDenominator > 0 {
		adjustedWinRate = float64(wins) / float64(adjustedDenominator)
	}
	improvement := adjustedWinRate - winRate

	return patterns, improvement
}

// lossInfo pairs a closed-loss signal with its already-resolved primary
// category, for bucketing and pattern-condition derivation.
type lossInfo struct {
	sig     signalmodel.Signal
	primary string
}

func conditionsFor(category string, items []lossInfo) map[string]any {
	switch category {
	case CategoryRegimeMismatch:
		regime, direction := modalRegimeDirection(items)
		return map[string]any{"regime": regime, "direction": direction}
	case CategoryOverextended:
		return map[string]any{"avg_rsi_at_entry": avgRSIAtEntry(items)}
	default:
		return map[string]any{"category": category}
	}
}

func modalRegimeDirection(items []lossInfo) (string, string) {
	counts := map[[2]string]int{}
	for _, l := range items {
		key := [2]string{l.sig.RegimeAtSignal, string(l.sig.Direction)}
		counts[key]++
	}
	var best [2]string
	bestCount := -1
	for key, count := range counts {
		if count > bestCount {
			best, bestCount = key, count
		}
	}
	return best[0], best[1]
}

func avgRSIAtEntry(items []lossInfo) float64 {
	sum, count := 0.0, 0
	for _, l := range items {
		if snap, ok := l.sig.IndicatorSnapshot["rsi"]; ok {
			sum += snap.Value
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func avgLossPct(items []lossInfo) float64 {
	sum, count := 0.0, 0
	for _, l := range items {
		if l.sig.OutcomePnLPct != nil {
			sum += *l.sig.OutcomePnLPct
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func completedOnly(signals []signalmodel.Signal) []signalmodel.Signal {
	var out []signalmodel.Signal
	for _, sig := range signals {
		if sig.Status == signalmodel.StatusWin || sig.Status == signalmodel.StatusLoss {
			out = append(out, sig)
		}
	}
	return out
}

// GetActiveLossFilters returns only the patterns with frequency reaching the
// activation threshold — already guaranteed by AnalyzeLossPatterns, this
// wrapper exists so callers don't need to know the threshold.
func GetActiveLossFilters(signals []signalmodel.Signal) []signalmodel.LossPattern {
	patterns, _ := AnalyzeLossPatterns(signals, defaultWindow)
	var active []signalmodel.LossPattern
	for _, p := range patterns {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active
}
