package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

type pipelineAdapter struct {
	name   string
	market asset.MarketType
	series candle.Series
	err    error
}

func (a *pipelineAdapter) Name() string                 { return a.name }
func (a *pipelineAdapter) MarketType() asset.MarketType { return a.market }
func (a *pipelineAdapter) Connect(ctx context.Context) error { return nil }
func (a *pipelineAdapter) Disconnect() error                  { return nil }
func (a *pipelineAdapter) SupportedSymbols() []string         { return nil }
func (a *pipelineAdapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	if a.err != nil {
		return candle.Series{}, a.err
	}
	return a.series, nil
}

type recordingStore struct {
	upserts int
	last    candle.Series
	err     error
}

func (s *recordingStore) Upsert(ctx context.Context, assetID int64, series candle.Series) error {
	s.upserts++
	s.last = series
	return s.err
}

func mkSeries(symbol string, n int) candle.Series {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	for i := range candles {
		p := 100.0 + float64(i)
		candles[i] = candle.Candle{Timestamp: base.Add(time.Duration(i) * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return candle.Series{Symbol: symbol, Timeframe: candle.TF1h, Candles: candles}
}

func TestIngest_NoRouteReturnsZeroWithoutError(t *testing.T) {
	reg := source.NewRegistry()
	store := &recordingStore{}
	p := New(reg, store)

	n, err := p.Ingest(context.Background(), 1, "NOSUCHSYMBOL-ZZZ", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.upserts)
}

func TestIngest_PrimarySufficientSkipsFallback(t *testing.T) {
	reg := source.NewRegistry()
	primary := &pipelineAdapter{name: "primary", market: asset.MarketCrypto, series: mkSeries("BTCUSD", 60)}
	reg.Register(primary)
	reg.SetCryptoAdapter("primary")
	store := &recordingStore{}
	p := New(reg, store)

	n, err := p.Ingest(context.Background(), 1, "BTCUSD", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Equal(t, 60, n)
	assert.Equal(t, 1, store.upserts)
}

func TestIngest_ThinPrimaryFallsBackAndMerges(t *testing.T) {
	reg := source.NewRegistry()
	primary := &pipelineAdapter{name: "primary", market: asset.MarketCrypto, series: mkSeries("BTCUSD", 5)}
	fallback := &pipelineAdapter{name: "fallback", market: asset.MarketCrypto, series: mkSeries("BTCUSD", 60)}
	reg.Register(primary)
	reg.Register(fallback)
	reg.SetCryptoAdapter("primary")
	store := &recordingStore{}
	p := New(reg, store)

	n, err := p.Ingest(context.Background(), 1, "BTCUSD", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Greater(t, n, 5)
	assert.Equal(t, 1, store.upserts)
}

func TestIngest_AdapterErrorIsSwallowed(t *testing.T) {
	reg := source.NewRegistry()
	failing := &pipelineAdapter{name: "primary", market: asset.MarketCrypto, err: errors.New("boom")}
	reg.Register(failing)
	reg.SetCryptoAdapter("primary")
	store := &recordingStore{}
	p := New(reg, store)

	n, err := p.Ingest(context.Background(), 1, "BTCUSD", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_IntradayExhaustionRetriesAtDaily(t *testing.T) {
	reg := source.NewRegistry()
	primary := &pipelineAdapter{name: "primary", market: asset.MarketCrypto, series: candle.Series{}}
	reg.Register(primary)
	reg.SetCryptoAdapter("primary")
	store := &recordingStore{}
	p := New(reg, store)

	// primary returns thin/empty 1h data every call (including the 1d retry
	// call, since tryFetch just calls FetchOHLCV regardless of tf), so the
	// pipeline should still complete without panicking and persist nothing.
	n, err := p.Ingest(context.Background(), 1, "BTCUSD", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_NilStoreStillReportsCount(t *testing.T) {
	reg := source.NewRegistry()
	primary := &pipelineAdapter{name: "primary", market: asset.MarketCrypto, series: mkSeries("BTCUSD", 60)}
	reg.Register(primary)
	reg.SetCryptoAdapter("primary")
	p := New(reg, nil)

	n, err := p.Ingest(context.Background(), 1, "BTCUSD", candle.TF1h, 100)

	require.NoError(t, err)
	assert.Equal(t, 60, n)
}

func TestIngestMultiple_AlwaysReturnsEntryForEverySymbol(t *testing.T) {
	reg := source.NewRegistry()
	ok := &pipelineAdapter{name: "ok", market: asset.MarketCrypto, series: mkSeries("BTCUSD", 60)}
	reg.Register(ok)
	reg.SetCryptoAdapter("ok")
	p := New(reg, &recordingStore{})

	out := p.IngestMultiple(context.Background(), map[string]int64{"BTCUSD": 1, "NOSUCHSYMBOL-ZZZ": 2}, candle.TF1h, 100)

	require.Contains(t, out, "BTCUSD")
	require.Contains(t, out, "NOSUCHSYMBOL-ZZZ")
	assert.Equal(t, 60, out["BTCUSD"])
	assert.Zero(t, out["NOSUCHSYMBOL-ZZZ"])
}
