package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
)

func TestWebhook_NotifySignal_PostsJSONPayload(t *testing.T) {
	var mu sync.Mutex
	var got payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	w.NotifySignal(signalmodel.Signal{Symbol: "BTCUSD"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "signal_new", got.Kind)
	assert.Equal(t, "BTCUSD", got.Symbol)
}

func TestWebhook_NotifyOutcome_UsesOutcomeKind(t *testing.T) {
	var mu sync.Mutex
	var got payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	w.NotifyOutcome(signalmodel.Signal{Symbol: "ETHUSD"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "signal_outcome", got.Kind)
}

func TestWebhook_NotifySummary_UsesDailySummaryKind(t *testing.T) {
	var mu sync.Mutex
	var got payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	w.NotifySummary("BTCUSD", outcome.Analytics{WinRate: 0.5})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "daily_summary", got.Kind)
}

func TestWebhook_DeliveryFailureNeverPanics(t *testing.T) {
	w := NewWebhook("http://127.0.0.1:0")
	require.NotNil(t, w)

	assert.NotPanics(t, func() {
		w.NotifySignal(signalmodel.Signal{Symbol: "BTCUSD"})
	})
}
