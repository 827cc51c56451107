// Package candle defines the canonical OHLCV record and series used across
// ingestion, indicators, and signal generation.
package candle

import (
	"fmt"
	"time"
)

// Timeframe is a bar width identifier.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
	TF1M  Timeframe = "1M"
)

// Duration returns the nominal bar width, used for timeframe-boundary
// alignment and aggregation. Monthly bars have no fixed duration and return 0.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF30m:
		return 30 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	case TF1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Candle is one OHLCV bar. Timestamp is always UTC and marks the bar open.
type Candle struct {
	Timestamp    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	TickVolume   *float64
	Spread       *float64
	OpenInterest *float64
}

// Validate checks the OHLC geometry and volume-sign invariants from §3.
func (c Candle) Validate() error {
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	if c.Low > lo {
		return fmt.Errorf("candle %s: low %.8f exceeds min(open,close) %.8f", c.Timestamp, c.Low, lo)
	}
	if c.High < hi {
		return fmt.Errorf("candle %s: high %.8f below max(open,close) %.8f", c.Timestamp, c.High, hi)
	}
	if c.Low > c.High {
		return fmt.Errorf("candle %s: low %.8f exceeds high %.8f", c.Timestamp, c.Low, c.High)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s: negative volume %.8f", c.Timestamp, c.Volume)
	}
	return nil
}

// Series is an ordered run of candles for one (symbol, timeframe). Callers
// that build a Series outside of the store (e.g. adapters, merge logic)
// are responsible for calling Normalize before handing it to an indicator.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle // oldest to newest
}

// Normalize sorts by timestamp ascending, drops duplicate timestamps
// (keeping the last occurrence, i.e. the most recently appended row wins),
// and returns the result. This is the single place P1 (candle monotonicity)
// is enforced for in-memory series; the store enforces it for persisted rows
// via the unique index plus upsert.
func (s Series) Normalize() Series {
	if len(s.Candles) == 0 {
		return s
	}
	byTS := make(map[int64]Candle, len(s.Candles))
	order := make([]int64, 0, len(s.Candles))
	for _, c := range s.Candles {
		key := c.Timestamp.UTC().UnixNano()
		if _, seen := byTS[key]; !seen {
			order = append(order, key)
		}
		byTS[key] = c // last duplicate wins
	}
	sortInt64s(order)
	out := make([]Candle, len(order))
	for i, key := range order {
		out[i] = byTS[key]
	}
	s.Candles = out
	return s
}

func sortInt64s(a []int64) {
	// insertion sort is fine: series lengths are bounded by fetch limits
	// (hundreds, not millions) and most inputs arrive nearly sorted already.
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// Tail returns at most n candles from the end of the series, oldest to newest.
func (s Series) Tail(n int) Series {
	if n <= 0 || len(s.Candles) <= n {
		return s
	}
	s.Candles = s.Candles[len(s.Candles)-n:]
	return s
}

// Closes extracts the close-price column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the most recent candle and true, or the zero value and false
// for an empty series.
func (s Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// AggregateFrom builds coarser candles from a finer series, following the
// adapter-level aggregation rule from §4.1: open=first, close=last,
// high=max, low=min, volume=sum. Bars are bucketed by dst.Duration().
func AggregateFrom(src Series, dst Timeframe) Series {
	d := dst.Duration()
	if d <= 0 || len(src.Candles) == 0 {
		return Series{Symbol: src.Symbol, Timeframe: dst}
	}
	var out []Candle
	var cur Candle
	var bucketStart time.Time
	has := false
	flush := func() {
		if has {
			out = append(out, cur)
		}
	}
	for _, c := range src.Candles {
		b := c.Timestamp.UTC().Truncate(d)
		if !has || !b.Equal(bucketStart) {
			flush()
			bucketStart = b
			cur = Candle{Timestamp: b, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
			has = true
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	flush()
	return Series{Symbol: src.Symbol, Timeframe: dst, Candles: out}
}

// Merge combines two series by timestamp, keeping the later duplicate
// (per §4.3 step 2: "keep latest duplicate"), then trims to limit most
// recent candles. "best" is assumed to already be normalized; "incoming"
// need not be.
func Merge(best, incoming Series, limit int) Series {
	merged := Series{Symbol: best.Symbol, Timeframe: best.Timeframe}
	merged.Candles = append(merged.Candles, best.Candles...)
	merged.Candles = append(merged.Candles, incoming.Candles...)
	merged = merged.Normalize()
	if limit > 0 {
		merged = merged.Tail(limit)
	}
	return merged
}
