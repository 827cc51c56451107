package composite

// Scorer combines the Normalizer and Explanation builder into the single
// entry point the signal engine calls once a raw composite score and
// regime label are known (§11).
type Scorer struct {
	Normalizer *Normalizer
}

// NewScorer builds a Scorer with default regime tilts.
func NewScorer() *Scorer {
	return &Scorer{Normalizer: NewNormalizer()}
}

// Explain normalizes rawScore for regime and builds the accompanying
// Explanation, ready for Explanation.Summary().
func (s *Scorer) Explain(rawScore float64, regime string, bullish, bearish, adjustments []string) (Explanation, error) {
	normalized, err := s.Normalizer.Apply(rawScore, regime)
	if err != nil {
		return Explanation{}, err
	}
	return Explanation{
		CompositeScore:  rawScore,
		NormalizedScore: normalized,
		Regime:          regime,
		BullishFactors:  bullish,
		BearishFactors:  bearish,
		Adjustments:     adjustments,
	}, nil
}
