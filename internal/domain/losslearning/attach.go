package losslearning

import (
	"time"

	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
)

// Attach categorizes a freshly-closed loss signal and writes loss_category /
// loss_analysis back to the store — the one mutation C11 is allowed to make
// (§3 "Lifecycle & ownership", §4.10).
func Attach(store *signalstore.Store, sig signalmodel.Signal) *signalmodel.Signal {
	if sig.Status != signalmodel.StatusLoss {
		return &sig
	}
	primary, all := Categorize(sig)
	analysis := &signalmodel.LossAnalysis{
		Category:      primary,
		AllCategories: all,
		Detail:        recommendations[primary],
		ContributingFactors: map[string]any{
			"confluence_count": sig.Reasons.ConfluenceCount,
			"regime_at_signal": sig.RegimeAtSignal,
		},
		AnalyzedAt: time.Now(),
	}
	return store.UpdateSignal(sig.ID, signalstore.Patch{
		LossCategory: &primary,
		LossAnalysis: analysis,
	})
}
