// Package composite carries forward the teacher's regime-weighted scoring
// idiom, adapted from a multi-factor momentum/volume/quality model into a
// lightweight post-processing step over the signal engine's own composite
// score (§11 "Composite scoring support").
package composite

import (
	"fmt"
	"math"
)

// Normalizer tilts a composite score by the prevailing market regime and
// keeps it inside a safe, auditable range — the same shape as the
// teacher's regime-weighted Apply/validateNormalized pair, simplified down
// to a single scalar score instead of a four-factor vector.
type Normalizer struct {
	regimeTilts map[string]float64
}

// NewNormalizer builds a Normalizer with the default regime tilts.
func NewNormalizer() *Normalizer {
	return &Normalizer{regimeTilts: defaultRegimeTilts()}
}

// defaultRegimeTilts favors trending regimes and discounts ranging/breakout
// regimes, where a high raw composite score is least trustworthy.
func defaultRegimeTilts() map[string]float64 {
	return map[string]float64{
		"trending_up":       1.05,
		"trending_down":     1.05,
		"ranging":           0.92,
		"volatile_breakout": 0.85,
		"unknown":           1.0,
	}
}

// LoadRegimeTilts replaces the tilt table, e.g. from an operator config.
func (n *Normalizer) LoadRegimeTilts(tilts map[string]float64) {
	n.regimeTilts = tilts
}

// Apply tilts score by regime's configured factor and clamps to [0, 100].
func (n *Normalizer) Apply(score float64, regime string) (float64, error) {
	tilt, ok := n.regimeTilts[regime]
	if !ok {
		tilt = 1.0
	}
	adjusted := score * tilt
	if math.IsNaN(adjusted) || math.IsInf(adjusted, 0) {
		return 0, fmt.Errorf("composite: normalized score is non-finite for regime %s", regime)
	}
	return clamp(adjusted, 0, 100), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
