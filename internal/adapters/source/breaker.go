package source

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes one adapter's circuit breaker (§5 "repeated provider
// failures trip a circuit breaker that short-circuits further calls for a
// cool-down window").
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig is a conservative per-adapter default: trip after 3
// consecutive failures, cool down 30s before probing again.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 1, Interval: 60 * time.Second, Timeout: 30 * time.Second, ConsecutiveFailures: 3}
}

// BreakerManager owns one gobreaker.CircuitBreaker per adapter name.
type BreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	config   BreakerConfig
}

func NewBreakerManager(config BreakerConfig) *BreakerManager {
	return &BreakerManager{breakers: make(map[string]*gobreaker.CircuitBreaker), config: config}
}

func (m *BreakerManager) breaker(name string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: m.config.MaxRequests,
		Interval:    m.config.Interval,
		Timeout:     m.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("adapter", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	m.breakers[name] = b
	return b
}

// Execute runs fn through the named adapter's breaker, short-circuiting
// with gobreaker.ErrOpenState while the breaker is open.
func (m *BreakerManager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.breaker(name).Execute(fn)
}

// State reports the current breaker state for a name ("closed" if never
// initialized), consumed by the operator /healthz surface.
func (m *BreakerManager) State(name string) string {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if !ok {
		return "closed"
	}
	return b.State().String()
}

// ErrorRate returns the fraction of failed requests in the current window.
func (m *BreakerManager) ErrorRate(name string) float64 {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	counts := b.Counts()
	if counts.Requests == 0 {
		return 0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}
