package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandle(ts time.Time, o, h, l, c, v float64) Candle {
	return Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestCandle_Validate_RejectsLowAboveOpenClose(t *testing.T) {
	c := mkCandle(time.Unix(0, 0), 10, 12, 11, 10, 5)
	require.Error(t, c.Validate())
}

func TestCandle_Validate_RejectsHighBelowOpenClose(t *testing.T) {
	c := mkCandle(time.Unix(0, 0), 10, 9, 8, 10, 5)
	require.Error(t, c.Validate())
}

func TestCandle_Validate_RejectsNegativeVolume(t *testing.T) {
	c := mkCandle(time.Unix(0, 0), 10, 12, 8, 10, -1)
	require.Error(t, c.Validate())
}

func TestCandle_Validate_AcceptsWellFormedBar(t *testing.T) {
	c := mkCandle(time.Unix(0, 0), 10, 12, 8, 11, 5)
	require.NoError(t, c.Validate())
}

func TestSeries_Normalize_SortsAndDropsDuplicateTimestamps(t *testing.T) {
	t0 := time.Unix(100, 0).UTC()
	t1 := time.Unix(200, 0).UTC()
	s := Series{Symbol: "BTCUSD", Timeframe: TF1h, Candles: []Candle{
		mkCandle(t1, 1, 1, 1, 1, 1),
		mkCandle(t0, 2, 2, 2, 2, 2),
		mkCandle(t0, 3, 3, 3, 3, 3), // duplicate ts, should win over the first t0 row
	}}

	out := s.Normalize()

	require.Len(t, out.Candles, 2)
	assert.Equal(t, t0, out.Candles[0].Timestamp)
	assert.Equal(t, 3.0, out.Candles[0].Close)
	assert.Equal(t, t1, out.Candles[1].Timestamp)
}

func TestSeries_Tail_ReturnsAtMostN(t *testing.T) {
	s := Series{Candles: make([]Candle, 10)}
	for i := range s.Candles {
		s.Candles[i] = mkCandle(time.Unix(int64(i), 0), 1, 1, 1, 1, 1)
	}

	tail := s.Tail(3)
	require.Len(t, tail.Candles, 3)

	full := s.Tail(100)
	assert.Len(t, full.Candles, 10)
}

func TestSeries_Closes_ExtractsCloseColumn(t *testing.T) {
	s := Series{Candles: []Candle{
		mkCandle(time.Unix(0, 0), 1, 1, 1, 10, 1),
		mkCandle(time.Unix(1, 0), 1, 1, 1, 20, 1),
	}}

	assert.Equal(t, []float64{10, 20}, s.Closes())
}

func TestSeries_Last_EmptySeriesReturnsFalse(t *testing.T) {
	_, ok := Series{}.Last()
	assert.False(t, ok)
}

func TestSeries_Last_ReturnsMostRecentCandle(t *testing.T) {
	s := Series{Candles: []Candle{
		mkCandle(time.Unix(0, 0), 1, 1, 1, 10, 1),
		mkCandle(time.Unix(1, 0), 1, 1, 1, 20, 1),
	}}

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 20.0, last.Close)
}

func TestAggregateFrom_BucketsByDestinationDuration(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := Series{Symbol: "BTCUSD", Timeframe: TF15m, Candles: []Candle{
		mkCandle(base, 100, 105, 95, 102, 10),
		mkCandle(base.Add(15*time.Minute), 102, 110, 100, 108, 12),
		mkCandle(base.Add(30*time.Minute), 108, 112, 104, 106, 8),
		mkCandle(base.Add(45*time.Minute), 106, 109, 101, 103, 6),
	}}

	out := AggregateFrom(src, TF1h)

	require.Len(t, out.Candles, 1)
	bar := out.Candles[0]
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 103.0, bar.Close)
	assert.Equal(t, 112.0, bar.High)
	assert.Equal(t, 95.0, bar.Low)
	assert.Equal(t, 36.0, bar.Volume)
}

func TestAggregateFrom_EmptySourceReturnsEmptySeries(t *testing.T) {
	out := AggregateFrom(Series{Symbol: "BTCUSD"}, TF1h)
	assert.Empty(t, out.Candles)
	assert.Equal(t, TF1h, out.Timeframe)
}

func TestMerge_KeepsLatestDuplicateAndTrimsToLimit(t *testing.T) {
	t0 := time.Unix(0, 0).UTC()
	t1 := time.Unix(60, 0).UTC()
	t2 := time.Unix(120, 0).UTC()

	best := Series{Symbol: "BTCUSD", Candles: []Candle{
		mkCandle(t0, 1, 1, 1, 1, 1),
		mkCandle(t1, 1, 1, 1, 2, 1),
	}}
	incoming := Series{Symbol: "BTCUSD", Candles: []Candle{
		mkCandle(t1, 1, 1, 1, 99, 1), // newer duplicate should win
		mkCandle(t2, 1, 1, 1, 3, 1),
	}}

	merged := Merge(best, incoming, 2)

	require.Len(t, merged.Candles, 2)
	assert.Equal(t, t1, merged.Candles[0].Timestamp)
	assert.Equal(t, 99.0, merged.Candles[0].Close)
	assert.Equal(t, t2, merged.Candles[1].Timestamp)
}

func TestTimeframe_Duration(t *testing.T) {
	assert.Equal(t, time.Hour, TF1h.Duration())
	assert.Equal(t, 24*time.Hour, TF1d.Duration())
	assert.Equal(t, time.Duration(0), TF1M.Duration())
}
