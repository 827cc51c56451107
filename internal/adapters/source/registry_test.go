package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

type stubAdapter struct {
	name   string
	market asset.MarketType
	fail   bool
	calls  int
}

func (s *stubAdapter) Name() string                 { return s.name }
func (s *stubAdapter) MarketType() asset.MarketType { return s.market }
func (s *stubAdapter) Connect(ctx context.Context) error { return nil }
func (s *stubAdapter) Disconnect() error                 { return nil }
func (s *stubAdapter) SupportedSymbols() []string        { return nil }
func (s *stubAdapter) FetchOHLCV(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	s.calls++
	if s.fail {
		return candle.Series{}, ErrSourceUnavailable
	}
	return candle.Series{Symbol: symbol, Timeframe: tf}, nil
}

func TestRoute_OverrideWinsOverClassDefaults(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "kraken", market: asset.MarketCrypto})
	reg.Register(&stubAdapter{name: "special", market: asset.MarketCrypto})
	reg.SetCryptoAdapter("kraken")
	reg.SetOverride("BTCUSD", "special")

	a, err := reg.Route("BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, "special", a.Name())
}

func TestRoute_CommodityPrefersCommodityOrForexBucket(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "stooq", market: asset.MarketCommodity})
	reg.SetCommodityOrForexAdapter("stooq")

	a, err := reg.Route("XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, "stooq", a.Name())
}

func TestRoute_CryptoFallsBackToCryptoBucket(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "kraken", market: asset.MarketCrypto})
	reg.SetCryptoAdapter("kraken")

	a, err := reg.Route("ETHUSD")
	require.NoError(t, err)
	assert.Equal(t, "kraken", a.Name())
}

func TestRoute_ForexFallsBackToForexBucket(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "oanda", market: asset.MarketForex})
	reg.SetForexAdapter("oanda")

	a, err := reg.Route("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "oanda", a.Name())
}

func TestRoute_UnroutableSymbolReturnsNoRoute(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Route("NOSUCHSYMBOL-ZZZ")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestFallbackChain_ExcludesPrimary(t *testing.T) {
	reg := NewRegistry()
	primary := &stubAdapter{name: "kraken", market: asset.MarketCrypto}
	reg.Register(primary)
	reg.Register(&stubAdapter{name: "backup", market: asset.MarketCrypto})

	all := reg.All()
	var primaryWrapped Adapter
	for _, a := range all {
		if a.Name() == "kraken" {
			primaryWrapped = a
		}
	}
	require.NotNil(t, primaryWrapped)

	chain := reg.FallbackChain(primaryWrapped)
	require.Len(t, chain, 1)
	assert.Equal(t, "backup", chain[0].Name())
}

func TestAll_ReturnsEveryRegisteredAdapter(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "a", market: asset.MarketCrypto})
	reg.Register(&stubAdapter{name: "b", market: asset.MarketCrypto})

	assert.Len(t, reg.All(), 2)
}

func TestProviderStatuses_ReportsClosedByDefault(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubAdapter{name: "kraken", market: asset.MarketCrypto})

	statuses := reg.ProviderStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "kraken", statuses[0].Name())
	assert.Equal(t, "closed", statuses[0].CircuitState())
	assert.Zero(t, statuses[0].ErrorRate())
}

func TestRegister_WrapsFetchOHLCVWithCircuitBreaker(t *testing.T) {
	reg := NewRegistry()
	stub := &stubAdapter{name: "kraken", market: asset.MarketCrypto}
	reg.Register(stub)

	a, ok := reg.get("kraken")
	require.True(t, ok)

	_, ferr := a.FetchOHLCV(context.Background(), "BTCUSD", candle.TF1h, 10)
	require.NoError(t, ferr)
	assert.Equal(t, 1, stub.calls)
}
