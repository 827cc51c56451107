// Package signalstore implements the concurrency-safe signal queue (§4.8).
package signalstore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// Patch is a partial mutation applied by update_signal (§4.8). Nil fields
// are left unchanged.
type Patch struct {
	Status        *signalmodel.Status
	ExitPrice     *float64
	OutcomePnL    *float64
	OutcomePnLPct *float64
	MaxFavorable  *float64
	MaxAdverse    *float64
	TriggeredAt   *time.Time
	ClosedAt      *time.Time
	LossCategory  *string
	LossAnalysis  *signalmodel.LossAnalysis
}

// Store is an in-memory, concurrency-safe signal queue partitioned by
// symbol at the caller's discretion (the store itself has no partition
// awareness — see §4.8). A relational-backed Store (see internal/persistence)
// satisfies the same contract for durable deployments.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	signals map[int64]*signalmodel.Signal
}

func New() *Store {
	return &Store{signals: make(map[int64]*signalmodel.Signal)}
}

// SaveSignal assigns a process-wide monotonic id and stores a copy.
func (s *Store) SaveSignal(sig signalmodel.Signal) int64 {
	id := atomic.AddInt64(&s.nextID, 1)
	sig.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[id] = &sig
	return id
}

// GetSignals filters the stored signals by optional symbol/status/timeframe.
func (s *Store) GetSignals(symbol string, status *signalmodel.Status, tf *candle.Timeframe) []signalmodel.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []signalmodel.Signal
	for _, sig := range s.signals {
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		if status != nil && sig.Status != *status {
			continue
		}
		if tf != nil && sig.Timeframe != *tf {
			continue
		}
		out = append(out, *sig)
	}
	return out
}

// UpdateSignal applies patch to the stored record and returns the updated
// copy, or nil if id is unknown.
func (s *Store) UpdateSignal(id int64, patch Patch) *signalmodel.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return nil
	}
	if patch.Status != nil {
		sig.Status = *patch.Status
	}
	if patch.ExitPrice != nil {
		sig.ExitPrice = patch.ExitPrice
	}
	if patch.OutcomePnL != nil {
		sig.OutcomePnL = patch.OutcomePnL
	}
	if patch.OutcomePnLPct != nil {
		sig.OutcomePnLPct = patch.OutcomePnLPct
	}
	if patch.MaxFavorable != nil {
		sig.MaxFavorable = *patch.MaxFavorable
	}
	if patch.MaxAdverse != nil {
		sig.MaxAdverse = *patch.MaxAdverse
	}
	if patch.TriggeredAt != nil {
		sig.TriggeredAt = patch.TriggeredAt
	}
	if patch.ClosedAt != nil {
		sig.ClosedAt = patch.ClosedAt
	}
	if patch.LossCategory != nil {
		sig.LossCategory = patch.LossCategory
	}
	if patch.LossAnalysis != nil {
		sig.LossAnalysis = patch.LossAnalysis
	}

	updated := *sig
	return &updated
}

// Get returns a single signal by id.
func (s *Store) Get(id int64) (signalmodel.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	if !ok {
		return signalmodel.Signal{}, false
	}
	return *sig, true
}

// All returns every stored signal, for the outcome tracker's per-scan sweep.
func (s *Store) All() []signalmodel.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]signalmodel.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, *sig)
	}
	return out
}
