package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

// Webhook POSTs a JSON payload to a configured URL with a bounded timeout,
// swallowing all errors (§4.13 "webhook notifier ... as the production
// option").
type Webhook struct {
	URL        string
	httpClient *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, httpClient: &http.Client{Timeout: 5 * time.Second}}
}

type payload struct {
	Kind    string      `json:"kind"`
	Symbol  string      `json:"symbol"`
	Payload interface{} `json:"payload"`
}

func (w *Webhook) send(kind, symbol string, body interface{}) {
	data, err := json.Marshal(payload{Kind: kind, Symbol: symbol, Payload: body})
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("notifier: marshal failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("notifier: build request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("notifier: webhook delivery failed")
		return
	}
	defer resp.Body.Close()
}

func (w *Webhook) NotifySignal(sig signalmodel.Signal) {
	w.send("signal_new", sig.Symbol, sig)
}

func (w *Webhook) NotifyOutcome(sig signalmodel.Signal) {
	w.send("signal_outcome", sig.Symbol, sig)
}

func (w *Webhook) NotifySummary(symbol string, a outcome.Analytics) {
	w.send("daily_summary", symbol, a)
}
