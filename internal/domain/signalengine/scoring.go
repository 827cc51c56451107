package signalengine

import (
	"strings"

	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// scoring carries the per-scan composite scoring result (§4.7.1): weighted
// tri-state votes, composite score, and the indicator snapshot attached to
// the emitted signal.
type scoring struct {
	bullishWeight float64
	bearishWeight float64
	neutralWeight float64
	totalWeight   float64

	bullishNames []string
	bearishNames []string

	snapshot map[string]signalmodel.IndicatorSnapshot
}

func (s scoring) compositeScoreValue() float64 {
	if s.totalWeight <= 0 {
		return 50
	}
	raw := 50 + 50*(s.bullishWeight-s.bearishWeight)/s.totalWeight
	return clampScore(raw)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (s scoring) winningWeight(direction signalmodel.Direction) float64 {
	if direction == signalmodel.Long {
		return s.bullishWeight
	}
	return s.bearishWeight
}

func (s scoring) confluenceCount(direction signalmodel.Direction) int {
	if direction == signalmodel.Long {
		return len(s.bullishNames)
	}
	return len(s.bearishNames)
}

// scoringResult bundles scoring with the pre-computed composite score so
// engine.go can read scoring.compositeScore directly.
type scoringResult struct {
	scoring
	compositeScore float64
}

func scoreIndicators(latest map[string]signalmodel.IndicatorResult) scoringResult {
	s := scoring{snapshot: make(map[string]signalmodel.IndicatorSnapshot, len(latest))}

	for name, result := range latest {
		weight, ok := weightCatalog[name]
		if !ok {
			continue
		}
		side, mult := classifyIndicator(result)
		effective := weight * mult

		switch side {
		case "bullish":
			s.bullishWeight += effective
			s.bullishNames = append(s.bullishNames, name)
		case "bearish":
			s.bearishWeight += effective
			s.bearishNames = append(s.bearishNames, name)
		default:
			s.neutralWeight += effective
		}
		s.totalWeight += effective

		s.snapshot[name] = signalmodel.IndicatorSnapshot{
			Value:          result.Value,
			SecondaryValue: result.SecondaryValue,
			Classification: result.Classification(),
			Signal:         side,
		}
	}

	return scoringResult{scoring: s, compositeScore: s.compositeScoreValue()}
}

// classifyIndicator derives a tri-state signal from an indicator's
// classification/divergence/crossover metadata via keyword matching, and
// the weight multiplier contributed by divergence (1.3x) or crossover
// (1.2x) presence (§4.7.1).
func classifyIndicator(r signalmodel.IndicatorResult) (side string, weightMult float64) {
	text := strings.ToLower(r.Classification())
	divergence := r.Divergence()
	crossover := r.Crossover()

	combined := text
	if divergence != "" {
		combined += " " + strings.ToLower(divergence)
	}
	if crossover != "" {
		combined += " " + strings.ToLower(crossover)
	}

	bull := containsAny(combined, bullishKeywords)
	bear := containsAny(combined, bearishKeywords)

	side = "neutral"
	switch {
	case bull && !bear:
		side = "bullish"
	case bear && !bull:
		side = "bearish"
	}

	weightMult = 1.0
	if divergence != "" {
		weightMult *= 1.3
	}
	if crossover != "" {
		weightMult *= 1.2
	}
	return side, weightMult
}
