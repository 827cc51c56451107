package composite

import (
	"fmt"
	"strings"
)

// Explanation is the human-readable scoring breakdown attached to a
// signal, adapted from the teacher's Explanation/GetWeightSummary output —
// trimmed to the fields the signal engine actually has on hand.
type Explanation struct {
	CompositeScore  float64
	NormalizedScore float64
	Regime          string
	BullishFactors  []string
	BearishFactors  []string
	Adjustments     []string
}

// Summary renders a short multi-line trace in the teacher's
// GetWeightSummary style.
func (e Explanation) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "score=%.1f normalized=%.1f regime=%s", e.CompositeScore, e.NormalizedScore, e.Regime)
	if len(e.BullishFactors) > 0 {
		fmt.Fprintf(&b, "; bullish: %s", strings.Join(e.BullishFactors, ", "))
	}
	if len(e.BearishFactors) > 0 {
		fmt.Fprintf(&b, "; bearish: %s", strings.Join(e.BearishFactors, ", "))
	}
	if len(e.Adjustments) > 0 {
		fmt.Fprintf(&b, "; adjustments: %s", strings.Join(e.Adjustments, ", "))
	}
	return b.String()
}
