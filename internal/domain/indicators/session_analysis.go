package indicators

import (
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// session boundaries in UTC hours, half-open [start, end).
var (
	asiaSession   = [2]int{0, 9}
	londonSession = [2]int{7, 16}
	nySession     = [2]int{13, 21}
)

// SessionAnalysis partitions recent bars into Asia/London/New York trading
// sessions by UTC hour, flags the London/NY overlap window, and reports
// which session the latest bar falls in along with its relative volume
// (§4.4). Its metadata has no "classification" key, so the signal engine
// scores it as neutral.
type SessionAnalysis struct{}

func NewSessionAnalysis() *SessionAnalysis { return &SessionAnalysis{} }

func (i *SessionAnalysis) Name() string { return "session_analysis" }

func (i *SessionAnalysis) Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error) {
	n := len(series.Candles)
	if n == 0 {
		return nil, nil
	}
	lookback := series.Candles
	if n > 200 {
		lookback = series.Candles[n-200:]
	}

	volByLabel := map[string]float64{"asia": 0, "london": 0, "new_york": 0, "overlap": 0, "off_hours": 0}
	countByLabel := map[string]int{}
	for _, c := range lookback {
		label := sessionLabel(c.Timestamp.UTC().Hour())
		volByLabel[label] += c.Volume
		countByLabel[label]++
	}

	avgByLabel := map[string]float64{}
	for label, total := range volByLabel {
		if countByLabel[label] > 0 {
			avgByLabel[label] = total / float64(countByLabel[label])
		}
	}

	last := series.Candles[n-1]
	hour := last.Timestamp.UTC().Hour()
	label := sessionLabel(hour)
	isOverlap := inSession(hour, londonSession) && inSession(hour, nySession)

	relativeVolume := 1.0
	if avg, ok := avgByLabel[label]; ok && avg > 0 {
		relativeVolume = last.Volume / avg
	}

	result := signalmodel.IndicatorResult{
		Name:      i.Name(),
		Value:     relativeVolume,
		Timestamp: last.Timestamp,
		Metadata: map[string]any{
			"session":              label,
			"is_london_ny_overlap": isOverlap,
			"utc_hour":             hour,
			"avg_volume_by_session": avgByLabel,
		},
	}
	return []signalmodel.IndicatorResult{result}, nil
}

func inSession(hour int, bounds [2]int) bool {
	return hour >= bounds[0] && hour < bounds[1]
}

func sessionLabel(hour int) string {
	inAsia := inSession(hour, asiaSession)
	inLondon := inSession(hour, londonSession)
	inNY := inSession(hour, nySession)
	switch {
	case inLondon && inNY:
		return "overlap"
	case inNY:
		return "new_york"
	case inLondon:
		return "london"
	case inAsia:
		return "asia"
	default:
		return "off_hours"
	}
}
