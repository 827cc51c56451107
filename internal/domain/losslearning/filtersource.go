package losslearning

import (
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
)

// FilterSource adapts a signal store into the signalengine.LossPatternSource
// contract: every call recomputes active filters from the store's current
// closed-loss history (§4.10, §4.7.3).
type FilterSource struct {
	Store *signalstore.Store
}

func NewFilterSource(store *signalstore.Store) *FilterSource {
	return &FilterSource{Store: store}
}

func (f *FilterSource) ActivePatterns() []signalmodel.LossPattern {
	return GetActiveLossFilters(f.Store.All())
}
