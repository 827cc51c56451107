package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/domain/candle"
)

func uptrendSeries(n int) candle.Series {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 1.0
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    100,
		}
	}
	return candle.Series{Symbol: "BTCUSD", Timeframe: candle.TF1h, Candles: candles}
}

func flatSeries(n int) candle.Series {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = candle.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 101, Low: 99, Close: 100, Volume: 100,
		}
	}
	return candle.Series{Symbol: "BTCUSD", Timeframe: candle.TF1h, Candles: candles}
}

func TestRSI_RisingSeriesEndsOverbought(t *testing.T) {
	ind := NewRSI()
	results, err := ind.Calculate(uptrendSeries(60))

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "rsi", ind.Name())
	assert.Contains(t, []string{"overbought", "bullish_momentum"}, last.Classification())
}

func TestRSI_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewRSI()
	results, err := ind.Calculate(uptrendSeries(5))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestATR_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewATR()
	results, err := ind.Calculate(uptrendSeries(atrPeriod))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestATR_ReportsPositiveValueAndPercent(t *testing.T) {
	ind := NewATR()
	results, err := ind.Calculate(uptrendSeries(80))

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "atr", ind.Name())
	assert.Greater(t, last.Value, 0.0)
	require.NotNil(t, last.SecondaryValue)
	assert.Greater(t, *last.SecondaryValue, 0.0)
}

func TestMovingAverages_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewMovingAverages()
	results, err := ind.Calculate(uptrendSeries(49))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMovingAverages_SteadyUptrendClassifiesStrongUptrend(t *testing.T) {
	ind := NewMovingAverages()
	results, err := ind.Calculate(uptrendSeries(120))

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "moving_averages", ind.Name())
	assert.Equal(t, "strong_uptrend", last.Classification())
}

func TestMACD_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewMACD()
	results, err := ind.Calculate(uptrendSeries(20))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMACD_SteadyUptrendIsBullish(t *testing.T) {
	ind := NewMACD()
	results, err := ind.Calculate(uptrendSeries(80))

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "macd", ind.Name())
	assert.Contains(t, last.Classification(), "bullish")
}

func TestBollingerBands_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewBollingerBands()
	results, err := ind.Calculate(uptrendSeries(bbPeriod - 1))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBollingerBands_FlatSeriesStaysWithinBands(t *testing.T) {
	ind := NewBollingerBands()
	results, err := ind.Calculate(flatSeries(40))

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "bollinger_bands", ind.Name())
	assert.Equal(t, "within_bands", last.Classification())
}

func TestVolumeSpike_NoSpikeInFlatVolumeSeriesYieldsNoResults(t *testing.T) {
	ind := NewVolumeSpike()
	results, err := ind.Calculate(flatSeries(40))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVolumeSpike_DetectsAccumulationOnVolumeAndPriceRise(t *testing.T) {
	series := flatSeries(30)
	spike := series.Candles[len(series.Candles)-1]
	spike.Volume = 1000
	spike.Open = 100
	spike.Close = 105
	series.Candles[len(series.Candles)-1] = spike

	ind := NewVolumeSpike()
	results, err := ind.Calculate(series)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.Equal(t, "volume_spike", ind.Name())
	assert.Equal(t, "accumulation", last.Classification())
}

func TestOBV_TooShortSeriesYieldsNoResults(t *testing.T) {
	ind := NewOBV()
	results, err := ind.Calculate(candle.Series{Candles: []candle.Candle{{Close: 1}}})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOBV_AccumulatesSignedVolumeOnSteadyRise(t *testing.T) {
	ind := NewOBV()
	series := uptrendSeries(20)
	results, err := ind.Calculate(series)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "obv", ind.Name())
	assert.Greater(t, results[len(results)-1].Value, 0.0)
}
