package outcome

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// Analytics aggregates a closed-signal set (§4.9 compute_analytics).
type Analytics struct {
	WinRate          float64
	AvgPnL           float64
	AvgPnLPct        float64
	TotalPnL         float64
	BestTrade        float64
	WorstTrade       float64
	AvgRiskReward    float64
	ProfitFactor     float64
	ProfitFactorUndefined bool
	ByTimeframe      map[candle.Timeframe]SubAnalytics
	ByDirection      map[signalmodel.Direction]SubAnalytics
	EquityCurve      []EquityStep
}

// SubAnalytics is the per-timeframe / per-direction breakdown.
type SubAnalytics struct {
	Count    int
	WinRate  float64
	AvgPnL   float64
	TotalPnL float64
}

// EquityStep is one point on the chronological cumulative-PnL curve.
type EquityStep struct {
	ClosedAt time.Time
	PnL      float64
	Cumulative float64
}

func ComputeAnalytics(signals []signalmodel.Signal) Analytics {
	closed := closedOnly(signals)
	a := Analytics{
		ByTimeframe: make(map[candle.Timeframe]SubAnalytics),
		ByDirection: make(map[signalmodel.Direction]SubAnalytics),
	}
	if len(closed) == 0 {
		a.ProfitFactorUndefined = true
		return a
	}

	sort.Slice(closed, func(i, j int) bool {
		ti, tj := closed[i].ClosedAt, closed[j].ClosedAt
		if ti == nil || tj == nil {
			return false
		}
		return ti.Before(*tj)
	})

	wins, total := 0, 0
	var sumPnL, sumPnLPct, sumPositive, sumNegative, sumRR float64
	best, worst := math.Inf(-1), math.Inf(1)
	haveBest, haveWorst := false, false

	tfBuckets := map[candle.Timeframe][]signalmodel.Signal{}
	dirBuckets := map[signalmodel.Direction][]signalmodel.Signal{}

	var cumulative float64
	equity := make([]EquityStep, 0, len(closed))

	for _, sig := range closed {
		total++
		pnl := derefOr(sig.OutcomePnL, 0)
		pnlPct := derefOr(sig.OutcomePnLPct, 0)
		sumPnL += pnl
		sumPnLPct += pnlPct
		sumRR += sig.RiskRewardRatio
		if sig.Status == signalmodel.StatusWin {
			wins++
			sumPositive += pnl
		} else if sig.Status == signalmodel.StatusLoss {
			sumNegative += -pnl
		}
		if !haveBest || pnl > best {
			best, haveBest = pnl, true
		}
		if !haveWorst || pnl < worst {
			worst, haveWorst = pnl, true
		}

		tfBuckets[sig.Timeframe] = append(tfBuckets[sig.Timeframe], sig)
		dirBuckets[sig.Direction] = append(dirBuckets[sig.Direction], sig)

		if sig.ClosedAt != nil {
			cumulative += pnl
			equity = append(equity, EquityStep{ClosedAt: *sig.ClosedAt, PnL: pnl, Cumulative: cumulative})
		}
	}

	a.WinRate = float64(wins) / float64(total)
	a.AvgPnL = sumPnL / float64(total)
	a.AvgPnLPct = sumPnLPct / float64(total)
	a.TotalPnL = sumPnL
	a.BestTrade = best
	a.WorstTrade = worst
	a.AvgRiskReward = sumRR / float64(total)
	a.EquityCurve = equity

	if sumNegative == 0 {
		a.ProfitFactorUndefined = true
	} else {
		a.ProfitFactor = sumPositive / sumNegative
	}

	for tf, bucket := range tfBuckets {
		a.ByTimeframe[tf] = summarize(bucket)
	}
	for dir, bucket := range dirBuckets {
		a.ByDirection[dir] = summarize(bucket)
	}

	return a
}

func summarize(signals []signalmodel.Signal) SubAnalytics {
	wins, total := 0, len(signals)
	var sumPnL float64
	for _, sig := range signals {
		if sig.Status == signalmodel.StatusWin {
			wins++
		}
		sumPnL += derefOr(sig.OutcomePnL, 0)
	}
	if total == 0 {
		return SubAnalytics{}
	}
	return SubAnalytics{
		Count:    total,
		WinRate:  float64(wins) / float64(total),
		AvgPnL:   sumPnL / float64(total),
		TotalPnL: sumPnL,
	}
}

func closedOnly(signals []signalmodel.Signal) []signalmodel.Signal {
	var out []signalmodel.Signal
	for _, sig := range signals {
		if sig.Status == signalmodel.StatusWin || sig.Status == signalmodel.StatusLoss {
			out = append(out, sig)
		}
	}
	return out
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
