package source

import (
	"context"
	"sync"

	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Registry holds every registered Adapter plus the per-symbol override map
// the router consults first (§4.2).
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	overrides map[string]string // symbol -> adapter name
	breakers  *BreakerManager

	// class-bucket defaults, in router-rule order (§4.2 rules 2-4).
	commodityOrForex string
	crypto           string
	forex            string
}

func NewRegistry() *Registry {
	return NewRegistryWithBreaker(DefaultBreakerConfig())
}

// NewRegistryWithBreaker builds a Registry whose shared circuit breaker
// uses cfg instead of DefaultBreakerConfig, for callers that derive their
// own tuning (e.g. from a providers.yaml operations file).
func NewRegistryWithBreaker(cfg BreakerConfig) *Registry {
	return &Registry{
		adapters:  make(map[string]Adapter),
		overrides: make(map[string]string),
		breakers:  NewBreakerManager(cfg),
	}
}

// Register adds or replaces an adapter under its own Name(), wrapping its
// FetchOHLCV calls with a per-adapter circuit breaker (§5).
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = &breakerAdapter{Adapter: a, breakers: r.breakers}
}

// BreakerState reports the named adapter's circuit state ("closed" if
// never initialized).
func (r *Registry) BreakerState(name string) string { return r.breakers.State(name) }

// BreakerErrorRate reports the named adapter's current failure fraction.
func (r *Registry) BreakerErrorRate(name string) float64 { return r.breakers.ErrorRate(name) }

// breakerAdapter decorates an Adapter's FetchOHLCV with circuit-breaking;
// all other methods pass through unchanged.
type breakerAdapter struct {
	Adapter
	breakers *BreakerManager
}

func (b *breakerAdapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	result, err := b.breakers.Execute(b.Adapter.Name(), func() (interface{}, error) {
		return b.Adapter.FetchOHLCV(ctx, symbol, tf, limit)
	})
	if err != nil {
		return candle.Series{}, err
	}
	return result.(candle.Series), nil
}

// SetOverride pins symbol to a specific adapter name regardless of the
// class heuristics (§4.2 rule 1).
func (r *Registry) SetOverride(symbol, adapterName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[asset.Canonical(symbol)] = adapterName
}

// SetCommodityOrForexAdapter, SetCryptoAdapter, SetForexAdapter register the
// class-bucket defaults consulted by rules 2-4.
func (r *Registry) SetCommodityOrForexAdapter(name string) { r.commodityOrForex = name }
func (r *Registry) SetCryptoAdapter(name string)           { r.crypto = name }
func (r *Registry) SetForexAdapter(name string)             { r.forex = name }

func (r *Registry) get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Route applies the five ordered rules from §4.2 and returns the resolved
// adapter, or ErrNoRoute.
func (r *Registry) Route(symbol string) (Adapter, error) {
	s := asset.Canonical(symbol)

	r.mu.RLock()
	override, hasOverride := r.overrides[s]
	r.mu.RUnlock()
	if hasOverride {
		if a, ok := r.get(override); ok {
			return a, nil
		}
	}

	if asset.CommodityCodes[s] && r.commodityOrForex != "" {
		if a, ok := r.get(r.commodityOrForex); ok {
			return a, nil
		}
	}

	if asset.LooksLikeCrypto(s) && r.crypto != "" {
		if a, ok := r.get(r.crypto); ok {
			return a, nil
		}
	}

	if asset.LooksLikeForex(s) && r.forex != "" {
		if a, ok := r.get(r.forex); ok {
			return a, nil
		}
	}

	return nil, ErrNoRoute
}

// FallbackChain returns every registered adapter other than primary, for the
// ingestion pipeline's fallback sweep (§4.3 step 2). The order follows map
// iteration and can differ from one call to the next.
func (r *Registry) FallbackChain(primary Adapter) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for name, a := range r.adapters {
		if primary != nil && name == primary.Name() {
			continue
		}
		out = append(out, a)
	}
	return out
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// AdapterStatus reports one adapter's circuit-breaker state, satisfying
// httpapi.ProviderStatus for the /healthz surface (C17).
type AdapterStatus struct {
	name     string
	breakers *BreakerManager
}

func (s AdapterStatus) Name() string           { return s.name }
func (s AdapterStatus) CircuitState() string    { return s.breakers.State(s.name) }
func (s AdapterStatus) ErrorRate() float64      { return s.breakers.ErrorRate(s.name) }

// ProviderStatuses returns a status reporter for every registered adapter.
func (r *Registry) ProviderStatuses() []AdapterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AdapterStatus, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, AdapterStatus{name: name, breakers: r.breakers})
	}
	return out
}
