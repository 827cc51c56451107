// Package source defines the provider-agnostic OHLCV adapter contract
// (§4.1) and the structured error taxonomy every adapter must fail through.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// Sentinel errors every adapter must map its provider-specific failures
// onto before returning — no provider error type may cross the interface
// (§4.1).
var (
	ErrSourceUnavailable   = errors.New("source: unavailable")
	ErrRateLimited         = errors.New("source: rate limited")
	ErrUnsupportedSymbol   = errors.New("source: unsupported symbol")
	ErrUnsupportedTimeframe = errors.New("source: unsupported timeframe")
	ErrAuthFailed          = errors.New("source: auth failed")
	ErrMalformedResponse   = errors.New("source: malformed response")
	ErrNoRoute             = errors.New("source: no route")
)

// Ticker is a best-effort last-trade/quote snapshot.
type Ticker struct {
	Symbol    string
	LastPrice float64
	Bid       float64
	Ask       float64
}

// OrderBookLevel is one price/size rung of a depth snapshot.
type OrderBookLevel struct {
	Price float64
	Size  float64
}

// OrderBook is a shallow depth snapshot, depth levels each side.
type OrderBook struct {
	Symbol string
	Bids   []OrderBookLevel
	Asks   []OrderBookLevel
}

// Adapter is one symbol-agnostic provider's OHLCV/ticker/orderbook source
// (§4.1 "one symbol -> one provider's OHLCV/ticker/orderbook").
type Adapter interface {
	Name() string
	MarketType() asset.MarketType

	Connect(ctx context.Context) error
	Disconnect() error

	SupportedSymbols() []string

	// FetchOHLCV returns candles oldest->newest, deduplicated by timestamp,
	// trimmed to limit. There is no lower-bound (since) parameter.
	FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error)
}

// TickerFetcher is an optional capability (§4.1 "Optional fetch_ticker").
type TickerFetcher interface {
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
}

// OrderBookFetcher is an optional capability (§4.1 "Optional fetch_orderbook").
type OrderBookFetcher interface {
	FetchOrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error)
}

// AggregateTimeframe builds dst-timeframe candles from a finer series an
// adapter already has in hand, per §4.1's "adapter may aggregate finer
// candles" rule. Adapters whose provider only serves coarser granularity
// call this instead of failing UnsupportedTimeframe.
func AggregateTimeframe(src candle.Series, dst candle.Timeframe) candle.Series {
	return candle.AggregateFrom(src, dst)
}

// WrapProviderErr maps an arbitrary provider error onto the sentinel
// taxonomy, preserving the original as the wrapped cause.
func WrapProviderErr(sentinel error, provider string, cause error) error {
	return fmt.Errorf("%s: %w: %v", provider, sentinel, cause)
}
