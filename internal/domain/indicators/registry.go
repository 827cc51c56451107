package indicators

import (
	"fmt"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// Indicator is the tagged-interface contract every indicator implements
// (§4.4, §9 "runtime reflection" note: no dynamic discovery, a concrete
// variant per indicator registered at init).
type Indicator interface {
	Name() string
	Calculate(series candle.Series) ([]signalmodel.IndicatorResult, error)
}

// ValidateSeries is the input check behind the required-column rule (§4.4).
// Candle.Series is already typed, so it runs Candle.Validate on every bar
// and returns the first failure, wrapped.
func ValidateSeries(series candle.Series) error {
	for _, c := range series.Candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("indicator input validation: %w", err)
		}
	}
	return nil
}

// Registry is the process-wide indicator_name -> indicator map, built once
// at startup (§9).
type Registry struct {
	byName map[string]Indicator
	order  []string
}

// NewRegistry builds the registry with every indicator in the catalog
// (§4.4) registered. Construction is explicit, not reflective.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Indicator)}
	for _, ind := range []Indicator{
		NewVolumeSpike(),
		NewOBV(),
		NewADLine(),
		NewRSI(),
		NewMACD(),
		NewBollingerBands(),
		NewMovingAverages(),
		NewATR(),
		NewStochasticRSI(),
		NewSmartMoney(),
		NewKeyLevels(),
		NewSessionAnalysis(),
		NewCandlePatterns(),
	} {
		r.register(ind)
	}
	return r
}

func (r *Registry) register(ind Indicator) {
	r.byName[ind.Name()] = ind
	r.order = append(r.order, ind.Name())
}

// Get returns the indicator registered under name, if any.
func (r *Registry) Get(name string) (Indicator, bool) {
	ind, ok := r.byName[name]
	return ind, ok
}

// Names lists indicator names in registration order, for deterministic
// iteration in the signal engine.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// CalculateAll runs every registered indicator over series and returns
// indicator_name -> results (§4.4 "the engine's calculate_all"). A single
// indicator's error is dropped here and that indicator maps to nil results;
// the error does not reach the caller — insufficient history is never a hard failure (§4.4
// edge cases, §7 "insufficient history").
func (r *Registry) CalculateAll(series candle.Series) map[string][]signalmodel.IndicatorResult {
	out := make(map[string][]signalmodel.IndicatorResult, len(r.order))
	for _, name := range r.order {
		ind := r.byName[name]
		results, err := ind.Calculate(series)
		if err != nil {
			out[name] = nil
			continue
		}
		out[name] = results
	}
	return out
}

// Latest returns the most recent IndicatorResult for each indicator, the
// shape the signal engine scores against (§4.7.1).
func Latest(all map[string][]signalmodel.IndicatorResult) map[string]signalmodel.IndicatorResult {
	out := make(map[string]signalmodel.IndicatorResult, len(all))
	for name, results := range all {
		if len(results) == 0 {
			continue
		}
		out[name] = results[len(results)-1]
	}
	return out
}
