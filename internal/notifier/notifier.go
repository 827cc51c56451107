// Package notifier implements the best-effort outbound event contract
// (§4.13): notify_signal, notify_outcome, notify_summary. Delivery failure
// is logged, never propagated (§3 "NotificationEvent").
package notifier

import (
	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// Notifier is the write-only outbound contract the scheduler calls after
// every signal/outcome/summary transition.
type Notifier interface {
	NotifySignal(sig signalmodel.Signal)
	NotifyOutcome(sig signalmodel.Signal)
	NotifySummary(symbol string, a outcome.Analytics)
}

// Multi fans a single call out to every wrapped notifier; one notifier's
// failure (a panic-free best-effort call) never blocks the others.
type Multi struct {
	Notifiers []Notifier
}

func (m Multi) NotifySignal(sig signalmodel.Signal) {
	for _, n := range m.Notifiers {
		n.NotifySignal(sig)
	}
}

func (m Multi) NotifyOutcome(sig signalmodel.Signal) {
	for _, n := range m.Notifiers {
		n.NotifyOutcome(sig)
	}
}

func (m Multi) NotifySummary(symbol string, a outcome.Analytics) {
	for _, n := range m.Notifiers {
		n.NotifySummary(symbol, a)
	}
}
