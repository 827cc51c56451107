package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/candle"
)

func closesSeries(closes []float64) candle.Series {
	out := make([]candle.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle.Candle{Timestamp: time.Unix(int64(i), 0), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return candle.Series{Symbol: "BTCUSD", Timeframe: candle.TF1h, Candles: out}
}

func TestHeuristic_TooFewBarsIsNeutral(t *testing.T) {
	h := NewHeuristic()
	series := closesSeries([]float64{1, 2, 3})

	pred, err := h.Predict(context.Background(), series, "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Neutral, pred.Direction)
	assert.Zero(t, pred.Confidence)
}

func TestHeuristic_AcceleratingRiseIsBullish(t *testing.T) {
	h := NewHeuristic()
	closes := make([]float64, 30)
	price := 100.0
	step := 1.0
	for i := range closes {
		closes[i] = price
		price += step
		step += 0.3 // accelerating gains
	}
	series := closesSeries(closes)

	pred, err := h.Predict(context.Background(), series, "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Bullish, pred.Direction)
	assert.Greater(t, pred.Confidence, 0.0)
}

func TestHeuristic_FlatSeriesIsNeutral(t *testing.T) {
	h := NewHeuristic()
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	series := closesSeries(closes)

	pred, err := h.Predict(context.Background(), series, "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Neutral, pred.Direction)
}

func TestNeutralOnError_CollapsesErrorToNeutral(t *testing.T) {
	failing := predictFunc(func(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error) {
		return Prediction{}, errors.New("boom")
	})

	pred := NeutralOnError(context.Background(), failing, candle.Series{}, "BTCUSD", candle.TF1h)

	assert.Equal(t, Neutral, pred.Direction)
	assert.Zero(t, pred.Confidence)
	assert.Contains(t, pred.Diagnostics["error"], "boom")
}

type predictFunc func(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error)

func (f predictFunc) Predict(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error) {
	return f(ctx, series, symbol, tf)
}

func TestHTTPClient_UsesRemoteResponseOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Direction: "bullish", Confidence: 0.8})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	pred, err := c.Predict(context.Background(), closesSeries([]float64{1, 2, 3}), "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Bullish, pred.Direction)
	assert.Equal(t, 0.8, pred.Confidence)
}

func TestHTTPClient_FallsBackToHeuristicOnTransportError(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:0", 10*time.Millisecond, nil)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	pred, err := c.Predict(context.Background(), closesSeries(closes), "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Neutral, pred.Direction)
}

func TestHTTPClient_FallsBackOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	pred, err := c.Predict(context.Background(), closesSeries([]float64{1, 2, 3}), "BTCUSD", candle.TF1h)

	require.NoError(t, err)
	assert.Equal(t, Neutral, pred.Direction)
}
