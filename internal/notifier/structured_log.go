package notifier

import (
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// StructuredLog is the default Notifier: it writes one structured log line
// per event and always succeeds (§4.13 "the repo ships a structured-log
// notifier ... as the default").
type StructuredLog struct{}

func (StructuredLog) NotifySignal(sig signalmodel.Signal) {
	log.Info().
		Int64("signal_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("entry", sig.EntryPrice).
		Float64("confidence", sig.Confidence).
		Msg("notify: signal generated")
}

func (StructuredLog) NotifyOutcome(sig signalmodel.Signal) {
	ev := log.Info().
		Int64("signal_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("status", string(sig.Status))
	if sig.OutcomePnLPct != nil {
		ev = ev.Float64("pnl_pct", *sig.OutcomePnLPct)
	}
	ev.Msg("notify: signal outcome")
}

func (StructuredLog) NotifySummary(symbol string, a outcome.Analytics) {
	log.Info().
		Str("symbol", symbol).
		Float64("win_rate", a.WinRate).
		Float64("total_pnl", a.TotalPnL).
		Bool("profit_factor_undefined", a.ProfitFactorUndefined).
		Msg("notify: daily summary")
}
