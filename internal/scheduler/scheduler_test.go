package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/marketintel/internal/adapters/fake"
	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/indicators"
	"github.com/sawpanic/marketintel/internal/domain/losslearning"
	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/predictor"
	"github.com/sawpanic/marketintel/internal/domain/regime"
	"github.com/sawpanic/marketintel/internal/domain/signalengine"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
	"github.com/sawpanic/marketintel/internal/notifier"
)

func testScheduler(t *testing.T, symbols []string) *Scheduler {
	t.Helper()

	reg := source.NewRegistry()
	adp := fake.New("fake", asset.MarketCrypto)
	reg.Register(adp)
	reg.SetCryptoAdapter("fake")
	reg.SetForexAdapter("fake")
	reg.SetCommodityOrForexAdapter("fake")

	store := signalstore.New()
	eng := signalengine.New(indicators.NewRegistry(), regime.NewDetector(), predictor.NewHeuristic(), losslearning.NewFilterSource(store))
	tracker := outcome.New(store)

	cfg := DefaultConfig()
	cfg.StartupGrace = 0
	cfg.ScanInterval = time.Hour
	cfg.WatchedSymbols = symbols

	return New(cfg, reg, nil, eng, store, tracker, notifier.Multi{notifier.StructuredLog{}}, nil)
}

func TestScanSymbol_ReturnsWithoutError(t *testing.T) {
	sched := testScheduler(t, []string{"BTCUSD"})

	n, err := sched.ScanSymbol(context.Background(), "BTCUSD")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 0)
}

func TestScanSymbol_SerializesPerSymbol(t *testing.T) {
	sched := testScheduler(t, []string{"BTCUSD"})

	lk := sched.symbolLock("BTCUSD")
	require.Same(t, lk, sched.symbolLock("BTCUSD"))

	other := sched.symbolLock("ETHUSD")
	assert.NotSame(t, lk, other)
}

func TestAssetID_StableAndMonotonic(t *testing.T) {
	sched := testScheduler(t, nil)

	first := sched.assetID("BTCUSD")
	second := sched.assetID("ETHUSD")
	again := sched.assetID("BTCUSD")

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, second)
}

func TestRunCycle_ForexGatedToEveryOtherCycle(t *testing.T) {
	sched := testScheduler(t, []string{"EURUSD"})
	sched.cfg.ForexCycleMultiple = 2

	ctx := context.Background()
	sched.runCycle(ctx) // cycle 1: odd, forex skipped
	assert.Empty(t, sched.store.All())

	sched.runCycle(ctx) // cycle 2: even, forex scanned
	// either no signals were produced or some were — the point is the
	// gate didn't panic and ran the scan path on the even cycle.
	assert.True(t, sched.cycle == 2)
}

func TestRunning_ReflectsLoopState(t *testing.T) {
	sched := testScheduler(t, []string{"BTCUSD"})
	assert.False(t, sched.Running())
	assert.Zero(t, sched.Uptime())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_ = sched.Start(ctx)

	assert.False(t, sched.Running())
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	b := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	c := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, sameDay(a, b))
	assert.False(t, sameDay(a, c))
}

func TestMaybeRunDailySummary_FiresOncePerDay(t *testing.T) {
	sched := testScheduler(t, nil)
	sched.cfg.DailySummaryHourUTC = time.Now().UTC().Hour()

	sched.maybeRunDailySummary(context.Background())
	first := sched.lastDaily
	require.False(t, first.IsZero())

	sched.maybeRunDailySummary(context.Background())
	assert.Equal(t, first, sched.lastDaily)
}

func TestSweeps_NoCollectorIsNoop(t *testing.T) {
	sched := testScheduler(t, nil)
	sched.metrics = nil // no collector: sweep must be a no-op, not panic

	assert.NotPanics(t, func() { sched.sweepOpenSignals() })
	assert.NotPanics(t, func() { sched.sweepProviderCircuits() })
	assert.NotPanics(t, func() { sched.sweepMacroCache(context.Background()) })
}

func TestIngestAndFetch_UnroutableSymbolReturnsEmpty(t *testing.T) {
	sched := testScheduler(t, nil)

	frames := sched.ingestAndFetch(context.Background(), "NOSUCHSYMBOL-ZZZ", zerolog.Nop())

	assert.Empty(t, frames)
}
