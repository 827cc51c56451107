package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

type recordingNotifier struct {
	signals   []signalmodel.Signal
	outcomes  []signalmodel.Signal
	summaries []string
}

func (r *recordingNotifier) NotifySignal(sig signalmodel.Signal)  { r.signals = append(r.signals, sig) }
func (r *recordingNotifier) NotifyOutcome(sig signalmodel.Signal) { r.outcomes = append(r.outcomes, sig) }
func (r *recordingNotifier) NotifySummary(symbol string, a outcome.Analytics) {
	r.summaries = append(r.summaries, symbol)
}

func TestMulti_FansOutToEveryNotifier(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	m := Multi{Notifiers: []Notifier{a, b}}

	sig := signalmodel.Signal{Symbol: "BTCUSD"}
	m.NotifySignal(sig)
	m.NotifyOutcome(sig)
	m.NotifySummary("BTCUSD", outcome.Analytics{})

	for _, n := range []*recordingNotifier{a, b} {
		assert.Len(t, n.signals, 1)
		assert.Len(t, n.outcomes, 1)
		assert.Len(t, n.summaries, 1)
	}
}

func TestMulti_EmptyListIsNoop(t *testing.T) {
	m := Multi{}
	assert.NotPanics(t, func() {
		m.NotifySignal(signalmodel.Signal{})
		m.NotifyOutcome(signalmodel.Signal{})
		m.NotifySummary("BTCUSD", outcome.Analytics{})
	})
}

func TestStructuredLog_NeverPanicsOnAnyEvent(t *testing.T) {
	var n StructuredLog
	pct := 1.5
	sig := signalmodel.Signal{ID: 1, Symbol: "BTCUSD", OutcomePnLPct: &pct}

	assert.NotPanics(t, func() {
		n.NotifySignal(sig)
		n.NotifyOutcome(sig)
		n.NotifySummary("BTCUSD", outcome.Analytics{})
	})
}
