// Package outcome implements the signal outcome state machine (§4.9): the
// only component allowed to mutate a Signal's status, entry trigger, TP/SL
// resolution, and MFE/MAE tracking.
package outcome

import (
	"time"

	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
)

const entryProximityPct = 0.001 // 0.1% adverse-direction entry trigger tolerance

// Bar is the single new candle's extremes the tracker evaluates a signal
// against on each invocation.
type Bar struct {
	Close float64
	High  float64
	Low   float64
	Time  time.Time
}

// Tracker advances signals through pending -> active -> {win, loss, expired}.
type Tracker struct {
	Store *signalstore.Store
}

func New(store *signalstore.Store) *Tracker {
	return &Tracker{Store: store}
}

// Process evaluates one signal against one bar and returns the updated
// signal (nil if the signal no longer exists or is already closed). A bar
// that triggers a pending signal is also checked against TP/SL, so one call
// can move a signal from pending to active and then to win or loss.
func (t *Tracker) Process(id int64, bar Bar) *signalmodel.Signal {
	sig, ok := t.Store.Get(id)
	if !ok {
		return nil
	}

	switch sig.Status {
	case signalmodel.StatusPending:
		return t.processPending(sig, bar)
	case signalmodel.StatusActive:
		return t.processActive(sig, bar)
	default:
		return nil
	}
}

func (t *Tracker) processPending(sig signalmodel.Signal, bar Bar) *signalmodel.Signal {
	if bar.Time.After(sig.ExpiresAt) {
		status := signalmodel.StatusExpired
		closedAt := bar.Time
		return t.Store.UpdateSignal(sig.ID, signalstore.Patch{Status: &status, ClosedAt: &closedAt})
	}

	triggered := false
	if sig.Direction == signalmodel.Long {
		triggered = bar.Low <= sig.EntryPrice || nearAdverse(bar.Close, sig.EntryPrice, true)
	} else {
		triggered = bar.High >= sig.EntryPrice || nearAdverse(bar.Close, sig.EntryPrice, false)
	}
	if !triggered {
		return &sig
	}

	status := signalmodel.StatusActive
	triggeredAt := bar.Time
	updated := t.Store.UpdateSignal(sig.ID, signalstore.Patch{Status: &status, TriggeredAt: &triggeredAt})
	if updated == nil {
		return nil
	}
	return t.processActive(*updated, bar)
}

// nearAdverse reports a near-fill: close is at or within entryProximityPct
// of entry on the side the bar's low/high hasn't necessarily reached yet
// (§4.9 pending trigger). For long, that's close <= entry*1.001 (price
// approached from above without the bar's low reaching entry); for short,
// the mirror is close >= entry*0.999.
func nearAdverse(closePrice, entry float64, long bool) bool {
	if entry == 0 {
		return false
	}
	if long {
		diff := (closePrice - entry) / entry
		return diff >= 0 && diff <= entryProximityPct
	}
	diff := (entry - closePrice) / entry
	return diff >= 0 && diff <= entryProximityPct
}

func (t *Tracker) processActive(sig signalmodel.Signal, bar Bar) *signalmodel.Signal {
	var favorable, adverse float64
	if sig.Direction == signalmodel.Long {
		favorable = bar.High - sig.EntryPrice
		adverse = sig.EntryPrice - bar.Low
	} else {
		favorable = sig.EntryPrice - bar.Low
		adverse = bar.High - sig.EntryPrice
	}
	mfe := sig.MaxFavorable
	if favorable > mfe {
		mfe = favorable
	}
	mae := sig.MaxAdverse
	if adverse > mae {
		mae = adverse
	}

	hitsTP, hitsSL := levelHits(sig, bar)

	if !hitsTP && !hitsSL {
		return t.Store.UpdateSignal(sig.ID, signalstore.Patch{MaxFavorable: &mfe, MaxAdverse: &mae})
	}

	// SL wins on same-bar overlap (decision recorded in DESIGN.md).
	var status signalmodel.Status
	var exit float64
	if hitsSL {
		status = signalmodel.StatusLoss
		exit = sig.StopLoss
	} else {
		status = signalmodel.StatusWin
		exit = sig.TakeProfit
	}

	pnl := exit - sig.EntryPrice
	if sig.Direction == signalmodel.Short {
		pnl = sig.EntryPrice - exit
	}
	pnlPct := 0.0
	if sig.EntryPrice != 0 {
		pnlPct = pnl / sig.EntryPrice * 100
	}
	closedAt := bar.Time

	return t.Store.UpdateSignal(sig.ID, signalstore.Patch{
		Status:        &status,
		ExitPrice:     &exit,
		OutcomePnL:    &pnl,
		OutcomePnLPct: &pnlPct,
		MaxFavorable:  &mfe,
		MaxAdverse:    &mae,
		ClosedAt:      &closedAt,
	})
}

func levelHits(sig signalmodel.Signal, bar Bar) (hitsTP, hitsSL bool) {
	if sig.Direction == signalmodel.Long {
		hitsTP = bar.High >= sig.TakeProfit
		hitsSL = bar.Low <= sig.StopLoss
		return hitsTP, hitsSL
	}
	hitsTP = bar.Low <= sig.TakeProfit
	hitsSL = bar.High >= sig.StopLoss
	return hitsTP, hitsSL
}
