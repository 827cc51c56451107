package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Direction is the predicted next-candle direction label.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Prediction is the ML predictor's output (§4.6). Diagnostics is an opaque
// string-keyed bag; the signal engine never interprets it beyond logging.
type Prediction struct {
	Direction   Direction
	Confidence  float64
	Diagnostics map[string]any
}

// Predictor returns a next-candle direction/confidence estimate for a
// symbol/timeframe's recent series. Any error is treated by callers as
// Direction=Neutral, Confidence=0 (§4.6) — Predict itself still returns the
// error so callers can log it.
type Predictor interface {
	Predict(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error)
}

// NeutralOnError wraps a Predictor call, collapsing any error into the
// Neutral/zero-confidence prediction the signal engine expects.
func NeutralOnError(ctx context.Context, p Predictor, series candle.Series, symbol string, tf candle.Timeframe) Prediction {
	pred, err := p.Predict(ctx, series, symbol, tf)
	if err != nil {
		return Prediction{Direction: Neutral, Confidence: 0, Diagnostics: map[string]any{"error": err.Error()}}
	}
	return pred
}

// heuristicLookback is the number of trailing closes the momentum-of-
// momentum heuristic inspects.
const heuristicLookback = 20

// Heuristic is a deterministic momentum-of-momentum predictor: it computes
// the rate of change of the rate of change over the trailing window and
// maps its sign/magnitude to a direction and confidence. It needs no
// external service and is the default when none is configured (§4.6).
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Predict(_ context.Context, series candle.Series, _ string, _ candle.Timeframe) (Prediction, error) {
	closes := series.Closes()
	n := len(closes)
	if n < heuristicLookback+2 {
		return Prediction{Direction: Neutral, Confidence: 0}, nil
	}
	window := closes[n-heuristicLookback:]
	roc := make([]float64, len(window)-1)
	for idx := 1; idx < len(window); idx++ {
		prev := window[idx-1]
		if prev == 0 {
			roc[idx-1] = 0
			continue
		}
		roc[idx-1] = (window[idx] - prev) / prev
	}
	momentumOfMomentum := 0.0
	for idx := 1; idx < len(roc); idx++ {
		momentumOfMomentum += roc[idx] - roc[idx-1]
	}
	momentumOfMomentum /= float64(len(roc) - 1)

	magnitude := momentumOfMomentum
	if magnitude < 0 {
		magnitude = -magnitude
	}
	confidence := clamp01(magnitude * 500)

	direction := Neutral
	switch {
	case momentumOfMomentum > 1e-6:
		direction = Bullish
	case momentumOfMomentum < -1e-6:
		direction = Bearish
	}

	return Prediction{
		Direction:  direction,
		Confidence: confidence,
		Diagnostics: map[string]any{
			"momentum_of_momentum": momentumOfMomentum,
			"lookback":             heuristicLookback,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type predictRequest struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Closes    []float64 `json:"closes"`
}

type predictResponse struct {
	Direction   string         `json:"direction"`
	Confidence  float64        `json:"confidence"`
	Diagnostics map[string]any `json:"diagnostics"`
}

// HTTPClient calls an external predictor service over HTTP and falls back
// to a Heuristic on any transport or decode error (§4.6).
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	fallback   Predictor
}

func NewHTTPClient(endpoint string, timeout time.Duration, fallback Predictor) *HTTPClient {
	if fallback == nil {
		fallback = NewHeuristic()
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		fallback:   fallback,
	}
}

func (c *HTTPClient) Predict(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error) {
	pred, err := c.callRemote(ctx, series, symbol, tf)
	if err != nil {
		return c.fallback.Predict(ctx, series, symbol, tf)
	}
	return pred, nil
}

func (c *HTTPClient) callRemote(ctx context.Context, series candle.Series, symbol string, tf candle.Timeframe) (Prediction, error) {
	body, err := json.Marshal(predictRequest{
		Symbol:    symbol,
		Timeframe: string(tf),
		Closes:    series.Closes(),
	})
	if err != nil {
		return Prediction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("predictor service returned status %d", resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Prediction{}, err
	}
	return Prediction{
		Direction:   Direction(decoded.Direction),
		Confidence:  clamp01(decoded.Confidence),
		Diagnostics: decoded.Diagnostics,
	}, nil
}
