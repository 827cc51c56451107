package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

func TestFetchOHLCV_IsDeterministicAcrossCalls(t *testing.T) {
	a := New("fake", asset.MarketCrypto)

	first, err := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 50)
	require.NoError(t, err)
	second, err := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Candles, 50)
}

func TestFetchOHLCV_DefaultsLimitWhenNonPositive(t *testing.T) {
	a := New("fake", asset.MarketCrypto)

	series, err := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 0)

	require.NoError(t, err)
	assert.Len(t, series.Candles, 200)
}

func TestFetchOHLCV_EveryBarPassesValidation(t *testing.T) {
	a := New("fake", asset.MarketCrypto)
	series, err := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 30)
	require.NoError(t, err)

	for _, c := range series.Candles {
		assert.NoError(t, c.Validate())
	}
}

func TestFetchOHLCV_UnavailableAlwaysFails(t *testing.T) {
	a := New("fake", asset.MarketCrypto)
	a.Unavailable = true

	_, err := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 10)

	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestFetchOHLCV_CanonicalizesSymbol(t *testing.T) {
	a := New("fake", asset.MarketCrypto)
	series, err := a.FetchOHLCV(context.Background(), "btcusd", candle.TF1h, 5)

	require.NoError(t, err)
	assert.Equal(t, "BTCUSD", series.Symbol)
}

func TestAdapter_NameAndMarketType(t *testing.T) {
	a := New("fake", asset.MarketForex)
	assert.Equal(t, "fake", a.Name())
	assert.Equal(t, asset.MarketForex, a.MarketType())
}
