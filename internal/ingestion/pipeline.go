// Package ingestion implements the fallback-chain ingest pipeline (§4.3),
// the one place OHLCV rows cross from adapters into the candle store.
package ingestion

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// minThreshold is the "length < min(limit, 50)" floor from §4.3 step 2
// below which the pipeline keeps trying fallbacks.
const minThreshold = 50

// Store is the minimal candle-store capability the pipeline writes
// through; satisfied by a persistence.CandleRepo adapter or an in-memory
// test double.
type Store interface {
	Upsert(ctx context.Context, assetID int64, series candle.Series) error
}

// Pipeline runs the ordered ingest algorithm of §4.3 against a registry of
// source adapters and a candle store.
type Pipeline struct {
	Registry *source.Registry
	Store    Store
}

func New(registry *source.Registry, store Store) *Pipeline {
	return &Pipeline{Registry: registry, Store: store}
}

// Ingest routes to the primary adapter, falls back through the chain on
// thin results, retries at 1d on exhaustion for intraday timeframes, and
// upserts whatever it accumulated. It never returns a non-nil error: an
// unroutable symbol, adapter failures and a failed upsert are logged rather
// than returned, and assetID is not checked.
func (p *Pipeline) Ingest(ctx context.Context, assetID int64, symbol string, tf candle.Timeframe, limit int) (int, error) {
	primary, err := p.Registry.Route(symbol)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("ingest: no route, skipping")
		return 0, nil
	}

	best := p.tryFetch(ctx, primary, symbol, tf, limit)

	if len(best.Candles) < minOf(limit, minThreshold) {
		for _, fb := range p.Registry.FallbackChain(primary) {
			if len(best.Candles) >= minOf(limit, minThreshold) {
				break
			}
			result := p.tryFetch(ctx, fb, symbol, tf, limit)
			if len(result.Candles) == 0 {
				continue
			}
			best = candle.Merge(best.Normalize(), result, limit)
		}
	}

	if len(best.Candles) < minOf(limit, minThreshold) && isIntraday(tf) {
		log.Info().Str("symbol", symbol).Str("tf", string(tf)).
			Msg("ingest: chain exhausted, retrying at 1d")
		dailyBest := candle.Series{}
		if primary != nil {
			dailyBest = p.tryFetch(ctx, primary, symbol, candle.TF1d, limit)
		}
		for _, fb := range p.Registry.FallbackChain(primary) {
			if len(dailyBest.Candles) >= minOf(limit, minThreshold) {
				break
			}
			result := p.tryFetch(ctx, fb, symbol, candle.TF1d, limit)
			if len(result.Candles) == 0 {
				continue
			}
			dailyBest = candle.Merge(dailyBest.Normalize(), result, limit)
		}
		if len(dailyBest.Candles) > 0 {
			return p.persist(ctx, assetID, dailyBest)
		}
	}

	if len(best.Candles) == 0 {
		return 0, nil
	}
	return p.persist(ctx, assetID, best)
}

func (p *Pipeline) persist(ctx context.Context, assetID int64, series candle.Series) (int, error) {
	series = series.Normalize()
	if p.Store == nil {
		return len(series.Candles), nil
	}
	if err := p.Store.Upsert(ctx, assetID, series); err != nil {
		log.Error().Err(err).Str("symbol", series.Symbol).Msg("ingest: upsert failed")
		return 0, nil
	}
	return len(series.Candles), nil
}

// tryFetch swallows every adapter error (§4.3 "every adapter failure is
// logged and swallowed"), returning an empty series on failure.
func (p *Pipeline) tryFetch(ctx context.Context, a source.Adapter, symbol string, tf candle.Timeframe, limit int) candle.Series {
	if a == nil {
		return candle.Series{}
	}
	series, err := a.FetchOHLCV(ctx, symbol, tf, limit)
	if err != nil {
		log.Warn().Str("adapter", a.Name()).Str("symbol", symbol).Err(err).Msg("ingest: adapter fetch failed")
		return candle.Series{}
	}
	return series
}

// IngestMultiple runs Ingest per symbol, catching and logging per-symbol
// failure, and always returns an entry for every requested symbol
// (§4.3 "never omits a requested symbol").
func (p *Pipeline) IngestMultiple(ctx context.Context, symbols map[string]int64, tf candle.Timeframe, limit int) map[string]int {
	out := make(map[string]int, len(symbols))
	for symbol, assetID := range symbols {
		rows, err := p.Ingest(ctx, assetID, symbol, tf, limit)
		if err != nil {
			log.Error().Str("symbol", symbol).Err(err).Msg("ingest_multiple: symbol failed")
			out[symbol] = 0
			continue
		}
		out[symbol] = rows
	}
	return out
}

func isIntraday(tf candle.Timeframe) bool {
	switch tf {
	case candle.TF1d, candle.TF1w, candle.TF1M:
		return false
	default:
		return true
	}
}

func minOf(a, b int) int {
	if a <= 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}
