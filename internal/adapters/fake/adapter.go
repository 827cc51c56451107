// Package fake provides a deterministic in-memory source.Adapter for tests
// (§4.1 "A fake/deterministic adapter ships for tests").
package fake

import (
	"context"
	"math"
	"time"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Adapter synthesizes a deterministic sine-wave-plus-drift candle series
// seeded only by symbol/timeframe/limit, so repeated calls in a test are
// bitwise identical (mirrors P2's indicator-determinism expectation one
// layer down, at the ingestion boundary).
type Adapter struct {
	Market     asset.MarketType
	Name_      string
	Unavailable bool // when true, FetchOHLCV always fails — for fallback-chain tests
}

func New(name string, market asset.MarketType) *Adapter {
	return &Adapter{Name_: name, Market: market}
}

func (a *Adapter) Name() string               { return a.Name_ }
func (a *Adapter) MarketType() asset.MarketType { return a.Market }
func (a *Adapter) Connect(ctx context.Context) error { return nil }
func (a *Adapter) Disconnect() error                  { return nil }
func (a *Adapter) SupportedSymbols() []string         { return nil }

func (a *Adapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	if a.Unavailable {
		return candle.Series{}, source.WrapProviderErr(source.ErrSourceUnavailable, a.Name_, context.DeadlineExceeded)
	}
	if limit <= 0 {
		limit = 200
	}
	d := tf.Duration()
	if d <= 0 {
		d = time.Hour
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, limit)
	price := 100.0
	for i := 0; i < limit; i++ {
		drift := float64(i) * 0.01
		wave := math.Sin(float64(i)/7.0) * 2
		open := price
		close := 100 + drift + wave
		high := math.Max(open, close) + 0.5
		low := math.Min(open, close) - 0.5
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * d),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + float64(i%50)*10,
		}
		price = close
	}
	return candle.Series{Symbol: asset.Canonical(symbol), Timeframe: tf, Candles: candles}.Normalize(), nil
}
