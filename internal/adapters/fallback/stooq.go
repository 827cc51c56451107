// Package fallback implements the free-tier, REST-only, no-auth adapter
// (§4.1 "Concrete adapters"), grounded on the original source's stooq/yahoo
// style last-resort daily/weekly fetchers: a CSV endpoint, no websocket, no
// intraday granularity.
package fallback

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// StooqAdapter fetches daily bars from stooq.com's public CSV endpoint. It
// serves only TF1d/TF1w natively; any other requested timeframe is filled
// by aggregating the daily series per §4.1's adapter-side aggregation rule.
type StooqAdapter struct {
	httpClient *http.Client
	baseURL    string
	market     asset.MarketType
}

func NewStooqAdapter(market asset.MarketType) *StooqAdapter {
	return &StooqAdapter{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    "https://stooq.com/q/d/l",
		market:     market,
	}
}

func (a *StooqAdapter) Name() string               { return "stooq_fallback" }
func (a *StooqAdapter) MarketType() asset.MarketType { return a.market }

func (a *StooqAdapter) Connect(ctx context.Context) error { return nil }
func (a *StooqAdapter) Disconnect() error                  { return nil }

func (a *StooqAdapter) SupportedSymbols() []string { return nil } // best-effort: unknown universe

// stooqSymbol maps a canonical symbol to stooq's lowercase ticker
// convention (e.g. EURUSD -> eurusd, XAUUSD -> xauusd).
func (a *StooqAdapter) stooqSymbol(symbol string) string {
	return strings.ToLower(asset.Canonical(symbol))
}

// FetchOHLCV implements source.Adapter. Only daily/weekly bars are served
// directly; intraday requests are served by aggregating the daily series,
// which degrades resolution but keeps the fallback chain productive.
func (a *StooqAdapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	interval := "d"
	if tf == candle.TF1w {
		interval = "w"
	}

	url := fmt.Sprintf("%s/?s=%s&i=%s", a.baseURL, a.stooqSymbol(symbol), interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return candle.Series{}, fmt.Errorf("%s: build request: %w", a.Name(), err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return candle.Series{}, source.WrapProviderErr(source.ErrSourceUnavailable, a.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return candle.Series{}, fmt.Errorf("%s: status %d: %w", a.Name(), resp.StatusCode, source.ErrSourceUnavailable)
	}

	reader := csv.NewReader(resp.Body)
	rows, err := reader.ReadAll()
	if err != nil {
		return candle.Series{}, source.WrapProviderErr(source.ErrMalformedResponse, a.Name(), err)
	}
	if len(rows) < 2 {
		return candle.Series{}, fmt.Errorf("%s: %w", a.Name(), source.ErrUnsupportedSymbol)
	}

	var candles []candle.Candle
	for _, row := range rows[1:] { // header: Date,Open,High,Low,Close,Volume
		if len(row) < 6 {
			continue
		}
		ts, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}
		candles = append(candles, candle.Candle{
			Timestamp: ts.UTC(),
			Open:      parseCSVFloat(row[1]),
			High:      parseCSVFloat(row[2]),
			Low:       parseCSVFloat(row[3]),
			Close:     parseCSVFloat(row[4]),
			Volume:    parseCSVFloat(row[5]),
		})
	}

	daily := candle.Series{Symbol: asset.Canonical(symbol), Timeframe: candle.TF1d, Candles: candles}.Normalize()

	out := daily
	if tf != candle.TF1d {
		out = source.AggregateTimeframe(daily, tf)
	}
	if limit > 0 {
		out = out.Tail(limit)
	}
	return out, nil
}

func parseCSVFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
