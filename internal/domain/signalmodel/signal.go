// Package signalmodel defines the Signal, IndicatorResult, and LossPattern
// record shapes shared across the indicator engine, signal engine, outcome
// tracker, and loss-learning analyzer (§3).
package signalmodel

import (
	"time"

	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Direction is the side of an emitted signal.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Status is the signal lifecycle state (§3, §4.9). Transitions are owned
// exclusively by the outcome tracker.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusWin     Status = "win"
	StatusLoss    Status = "loss"
	StatusExpired Status = "expired"
)

// IndicatorResult is one indicator's output for one bar (§3, §4.4).
type IndicatorResult struct {
	Name           string
	Value          float64
	SecondaryValue *float64
	Timestamp      time.Time
	Metadata       map[string]any
}

// Classification pulls the normalized classification string out of Metadata
// under the key "classification" (§9 "dict-of-str snapshots"). It returns ""
// when the key is absent, as it is for key_levels and session_analysis
// results, which carry no classification.
func (r IndicatorResult) Classification() string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata["classification"].(string); ok {
		return v
	}
	return ""
}

// Divergence returns the divergence tag, if any ("bullish_divergence" /
// "bearish_divergence"), empty otherwise.
func (r IndicatorResult) Divergence() string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata["divergence"].(string); ok {
		return v
	}
	return ""
}

// Crossover returns the crossover tag, if any, empty otherwise.
func (r IndicatorResult) Crossover() string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata["crossover"].(string); ok {
		return v
	}
	return ""
}

// IndicatorSnapshot is the per-indicator slice frozen into a Signal at
// generation time (§3 "Snapshots").
type IndicatorSnapshot struct {
	Value          float64
	SecondaryValue *float64
	Classification string
	Signal         string // "bullish" | "bearish" | "neutral"
}

// SignalReasons is the diagnostic bundle attached to every emitted signal
// (§3 "Snapshots").
type SignalReasons struct {
	BullishIndicators []string
	BearishIndicators []string
	ConfluenceCount   int
	MLAgrees          bool
	MLDirection       string
	MLConfidence      float64
	RegimeCompatible  bool
	LossFilterApplied bool
	ATRValue          float64
	CompositeScore    float64
	Explain           []string // short human-readable trace of contributing adjustments
	CompositeSummary  string    // regime-normalized score trace (§11 "Composite scoring support")
}

// LossAnalysis is attached by the loss-learning analyzer when a signal
// closes as a loss (§4.10).
type LossAnalysis struct {
	Category            string
	AllCategories        []string
	Detail               string
	ContributingFactors map[string]any
	AnalyzedAt           time.Time
}

// Signal is the central compound entity (§3).
type Signal struct {
	ID        int64
	Symbol    string
	Timeframe candle.Timeframe
	Direction Direction
	Status    Status

	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	RiskRewardRatio float64

	Confidence     float64
	CompositeScore float64
	MLConfidence   *float64
	RegimeAtSignal string

	Reasons           SignalReasons
	IndicatorSnapshot map[string]IndicatorSnapshot
	MTFConfluence     bool
	AgreeingTFs       []candle.Timeframe

	ExitPrice      *float64
	OutcomePnL     *float64
	OutcomePnLPct  *float64
	MaxFavorable   float64
	MaxAdverse     float64

	LossCategory *string
	LossAnalysis *LossAnalysis

	GeneratedAt time.Time
	ExpiresAt   time.Time
	TriggeredAt *time.Time
	ClosedAt    *time.Time
}

// ValidateLevels checks P4: level coherence between direction, SL, entry, TP.
func (s Signal) ValidateLevels() bool {
	switch s.Direction {
	case Long:
		return s.StopLoss < s.EntryPrice && s.EntryPrice < s.TakeProfit
	case Short:
		return s.StopLoss > s.EntryPrice && s.EntryPrice > s.TakeProfit
	default:
		return false
	}
}

// LossPattern is a derived, recomputed-on-demand summary (§3, §4.10).
type LossPattern struct {
	ID             string
	Category       string
	Conditions     map[string]any
	Frequency      int
	TotalWindow    int
	AvgLossPct     float64
	Recommendation string
	IsActive       bool
}

// Matches reports whether this pattern's conditions apply to a given
// (regime, direction) combination — used by the signal engine's loss-filter
// adjustment (§4.7.3) and by P8.
func (p LossPattern) Matches(regime string, dir Direction) bool {
	if p.Category != "regime_mismatch" {
		return false
	}
	r, _ := p.Conditions["regime"].(string)
	d, _ := p.Conditions["direction"].(string)
	return r == regime && d == string(dir)
}
