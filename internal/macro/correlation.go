package macro

import (
	"context"
	"fmt"
	"math"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/candle"
)

// CorrelationSource computes a rolling Pearson correlation between two
// symbols' closes (e.g. BTC vs a risk-asset proxy), the Go-native
// equivalent of the original cross-asset correlation adapter.
type CorrelationSource struct {
	SourceName string
	Registry   *source.Registry
	SymbolA    string
	SymbolB    string
	Timeframe  candle.Timeframe
	Window     int
}

func NewCorrelationSource(name string, registry *source.Registry, symbolA, symbolB string, tf candle.Timeframe, window int) *CorrelationSource {
	return &CorrelationSource{SourceName: name, Registry: registry, SymbolA: symbolA, SymbolB: symbolB, Timeframe: tf, Window: window}
}

func (s *CorrelationSource) Name() string {
	return s.SourceName
}

func (s *CorrelationSource) FetchSummary(ctx context.Context) (Summary, error) {
	seriesA, err := s.fetch(ctx, s.SymbolA)
	if err != nil {
		return Summary{}, fmt.Errorf("correlation: fetch %s: %w", s.SymbolA, err)
	}
	seriesB, err := s.fetch(ctx, s.SymbolB)
	if err != nil {
		return Summary{}, fmt.Errorf("correlation: fetch %s: %w", s.SymbolB, err)
	}

	closesA := seriesA.Closes()
	closesB := seriesB.Closes()
	n := s.Window
	if len(closesA) < n {
		n = len(closesA)
	}
	if len(closesB) < n {
		n = len(closesB)
	}
	if n < 3 {
		return Summary{}, fmt.Errorf("correlation: insufficient overlapping history (%d points)", n)
	}
	corr := pearson(closesA[len(closesA)-n:], closesB[len(closesB)-n:])

	key := fmt.Sprintf("correlation_%s_%s", normalizeKey(s.SymbolA), normalizeKey(s.SymbolB))
	return Summary{
		SourceName: s.SourceName,
		Fields: map[string]any{
			key:                 corr,
			"correlation_window": n,
		},
	}, nil
}

func (s *CorrelationSource) fetch(ctx context.Context, symbol string) (candle.Series, error) {
	adapter, err := s.Registry.Route(symbol)
	if err != nil {
		return candle.Series{}, err
	}
	return adapter.FetchOHLCV(ctx, symbol, s.Timeframe, s.Window+1)
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		return 0
	}
	return cov / denom
}

func normalizeKey(symbol string) string {
	out := make([]byte, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			out = append(out, byte(r))
		} else if r >= 'A' && r <= 'Z' {
			out = append(out, byte(r-'A'+'a'))
		}
	}
	return string(out)
}
