// Package kraken implements the REST+WebSocket crypto exchange adapter
// (§4.1 "Concrete adapters") against Kraken's public API, grounded on the
// teacher's internal/data/exchanges/kraken adapter (dial, subscribe, REST
// klines, health reporting), adapted to the source.Adapter contract.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Adapter implements source.Adapter against Kraken's public REST API, with
// an optional WebSocket connection kept for health/liveness reporting.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	wsURL      string

	mu          sync.Mutex
	wsConn      *websocket.Conn
	wsConnected bool
	lastSeen    time.Time
	errorCount  int64
	totalReqs   int64
	avgLatency  time.Duration
}

func NewAdapter() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://api.kraken.com",
		wsURL:      "wss://ws.kraken.com",
		lastSeen:   time.Now(),
	}
}

func (a *Adapter) Name() string               { return "kraken" }
func (a *Adapter) MarketType() asset.MarketType { return asset.MarketCrypto }

func (a *Adapter) Connect(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return source.WrapProviderErr(source.ErrSourceUnavailable, a.Name(), err)
	}

	a.mu.Lock()
	a.wsConn = conn
	a.wsConnected = true
	a.lastSeen = time.Now()
	a.mu.Unlock()

	go a.drainWebSocket(ctx)
	log.Info().Str("adapter", a.Name()).Msg("websocket connected")
	return nil
}

func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wsConnected = false
	if a.wsConn != nil {
		return a.wsConn.Close()
	}
	return nil
}

func (a *Adapter) SupportedSymbols() []string {
	return []string{"XBTUSD", "ETHUSD", "SOLUSD", "XRPUSD", "ETHBTC"}
}

func (a *Adapter) normalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	if strings.HasPrefix(s, "BTC") {
		s = strings.Replace(s, "BTC", "XBT", 1)
	}
	return s
}

func (a *Adapter) normalizeInterval(tf candle.Timeframe) (string, bool) {
	switch tf {
	case candle.TF1m:
		return "1", true
	case candle.TF5m:
		return "5", true
	case candle.TF15m:
		return "15", true
	case candle.TF30m:
		return "30", true
	case candle.TF1h:
		return "60", true
	case candle.TF4h:
		return "240", true
	case candle.TF1d:
		return "1440", true
	case candle.TF1w:
		return "10080", true
	default:
		return "", false
	}
}

type krakenOHLCResponse struct {
	Error  []string               `json:"error"`
	Result map[string]interface{} `json:"result"`
}

// FetchOHLCV implements source.Adapter against Kraken's public OHLC
// endpoint (§4.1).
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	interval, ok := a.normalizeInterval(tf)
	if !ok {
		return candle.Series{}, fmt.Errorf("%s: %w: %s", a.Name(), source.ErrUnsupportedTimeframe, tf)
	}
	pair := a.normalizeSymbol(symbol)

	url := fmt.Sprintf("%s/0/public/OHLC?pair=%s&interval=%s", a.baseURL, pair, interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return candle.Series{}, fmt.Errorf("%s: build request: %w", a.Name(), err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	a.recordLatency(time.Since(start), err != nil)
	if err != nil {
		return candle.Series{}, source.WrapProviderErr(source.ErrSourceUnavailable, a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return candle.Series{}, fmt.Errorf("%s: %w", a.Name(), source.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return candle.Series{}, fmt.Errorf("%s: status %d: %w", a.Name(), resp.StatusCode, source.ErrSourceUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return candle.Series{}, source.WrapProviderErr(source.ErrMalformedResponse, a.Name(), err)
	}

	var krakenResp krakenOHLCResponse
	if err := json.Unmarshal(body, &krakenResp); err != nil {
		return candle.Series{}, source.WrapProviderErr(source.ErrMalformedResponse, a.Name(), err)
	}
	if len(krakenResp.Error) > 0 {
		return candle.Series{}, fmt.Errorf("%s: %v: %w", a.Name(), krakenResp.Error, source.ErrSourceUnavailable)
	}

	var candles []candle.Candle
	for pairKey, raw := range krakenResp.Result {
		if strings.Contains(pairKey, "last") {
			continue
		}
		rows, ok := raw.([]interface{})
		if !ok {
			continue
		}
		for _, row := range rows {
			cols, ok := row.([]interface{})
			if !ok || len(cols) < 7 {
				continue
			}
			ts := parseFloat(cols[0])
			candles = append(candles, candle.Candle{
				Timestamp: time.Unix(int64(ts), 0).UTC(),
				Open:      parseStringFloat(cols[1]),
				High:      parseStringFloat(cols[2]),
				Low:       parseStringFloat(cols[3]),
				Close:     parseStringFloat(cols[4]),
				Volume:    parseStringFloat(cols[6]),
			})
		}
		break // one pair per request
	}

	series := candle.Series{Symbol: asset.Canonical(symbol), Timeframe: tf, Candles: candles}.Normalize()
	if limit > 0 {
		series = series.Tail(limit)
	}
	return series, nil
}

// FetchTicker implements the optional source.TickerFetcher capability.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (source.Ticker, error) {
	pair := a.normalizeSymbol(symbol)
	url := fmt.Sprintf("%s/0/public/Ticker?pair=%s", a.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return source.Ticker{}, fmt.Errorf("%s: build request: %w", a.Name(), err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return source.Ticker{}, source.WrapProviderErr(source.ErrSourceUnavailable, a.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return source.Ticker{}, fmt.Errorf("%s: status %d: %w", a.Name(), resp.StatusCode, source.ErrSourceUnavailable)
	}

	var parsed struct {
		Error  []string                          `json:"error"`
		Result map[string]map[string]interface{} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return source.Ticker{}, source.WrapProviderErr(source.ErrMalformedResponse, a.Name(), err)
	}
	for _, v := range parsed.Result {
		lastArr, _ := v["c"].([]interface{})
		bidArr, _ := v["b"].([]interface{})
		askArr, _ := v["a"].([]interface{})
		t := source.Ticker{Symbol: asset.Canonical(symbol)}
		if len(lastArr) > 0 {
			t.LastPrice = parseStringFloat(lastArr[0])
		}
		if len(bidArr) > 0 {
			t.Bid = parseStringFloat(bidArr[0])
		}
		if len(askArr) > 0 {
			t.Ask = parseStringFloat(askArr[0])
		}
		return t, nil
	}
	return source.Ticker{}, fmt.Errorf("%s: %w", a.Name(), source.ErrMalformedResponse)
}

// Health reports connection/error-rate status, used by C17's operator
// surface and C16's telemetry.
type Health struct {
	Connected  bool
	LastSeen   time.Time
	ErrorRate  float64
	AvgLatency time.Duration
}

func (a *Adapter) Health() Health {
	a.mu.Lock()
	defer a.mu.Unlock()
	errRate := 0.0
	if a.totalReqs > 0 {
		errRate = float64(a.errorCount) / float64(a.totalReqs)
	}
	return Health{
		Connected:  a.wsConnected,
		LastSeen:   a.lastSeen,
		ErrorRate:  errRate,
		AvgLatency: a.avgLatency,
	}
}

func (a *Adapter) recordLatency(d time.Duration, isErr bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalReqs++
	if isErr {
		a.errorCount++
	}
	a.avgLatency = time.Duration((int64(a.avgLatency)*int64(a.totalReqs-1) + int64(d)) / int64(a.totalReqs))
	a.lastSeen = time.Now()
}

func (a *Adapter) drainWebSocket(ctx context.Context) {
	defer func() {
		a.mu.Lock()
		a.wsConnected = false
		a.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.mu.Lock()
		conn := a.wsConn
		a.mu.Unlock()
		if conn == nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Warn().Str("adapter", a.Name()).Err(err).Msg("websocket read error")
			return
		}
		a.mu.Lock()
		a.lastSeen = time.Now()
		a.mu.Unlock()
	}
}

func parseStringFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	case float64:
		return val
	}
	return 0
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return 0
}
