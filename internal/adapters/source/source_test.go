package source

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/marketintel/internal/domain/candle"
)

func TestWrapProviderErr_PreservesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := WrapProviderErr(ErrSourceUnavailable, "kraken", cause)

	assert.ErrorIs(t, wrapped, ErrSourceUnavailable)
	assert.Contains(t, wrapped.Error(), "kraken")
	assert.Contains(t, wrapped.Error(), "connection reset")
}

func TestAggregateTimeframe_DelegatesToCandleAggregation(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := candle.Series{Symbol: "BTCUSD", Timeframe: candle.TF15m, Candles: []candle.Candle{
		{Timestamp: base, Open: 1, High: 2, Low: 0, Close: 1, Volume: 1},
		{Timestamp: base.Add(15 * time.Minute), Open: 1, High: 3, Low: 0, Close: 2, Volume: 1},
	}}

	out := AggregateTimeframe(src, candle.TF1h)

	assert.Equal(t, candle.TF1h, out.Timeframe)
	assert.Len(t, out.Candles, 1)
}
