// Package scheduler runs the single-process periodic loop (§4.11, C12):
// no external orchestrator, no cron expressions — a ticker plus a daily
// wall-clock check, exactly the shape the scanning cadence calls for.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/losslearning"
	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/signalengine"
	"github.com/sawpanic/marketintel/internal/domain/signalmodel"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
	"github.com/sawpanic/marketintel/internal/ingestion"
	"github.com/sawpanic/marketintel/internal/macro"
	"github.com/sawpanic/marketintel/internal/metrics"
	"github.com/sawpanic/marketintel/internal/notifier"
)

// Config tunes the scheduler's cadence (§4.11, §6 "Configuration surface").
type Config struct {
	ScanInterval        time.Duration
	ForexCycleMultiple  int
	DailySummaryHourUTC int
	StartupGrace        time.Duration
	ScanDeadline        time.Duration
	FetchLimit          int
	WatchedSymbols      []string
	Timeframes          []candle.Timeframe
}

// DefaultConfig matches §4.11's stated defaults: 300s scan cycle, forex
// scanned every other cycle, daily summary at 22:00 UTC, 30s startup grace.
func DefaultConfig() Config {
	return Config{
		ScanInterval:        300 * time.Second,
		ForexCycleMultiple:  2,
		DailySummaryHourUTC: 22,
		StartupGrace:        30 * time.Second,
		ScanDeadline:        90 * time.Second,
		FetchLimit:          200,
		Timeframes:          []candle.Timeframe{candle.TF1h, candle.TF4h},
	}
}

// Scheduler wires every domain component into the periodic scan/outcome/
// analytics loop.
type Scheduler struct {
	cfg      Config
	registry *source.Registry
	pipeline *ingestion.Pipeline // nil when database persistence is disabled
	engine   *signalengine.Engine
	store    *signalstore.Store
	tracker  *outcome.Tracker
	notify   notifier.Notifier
	metrics  *metrics.Collector
	macro    *macro.Cache

	assetMu   sync.Mutex
	assetIDs  map[string]int64
	nextAsset int64

	symbolMu sync.Mutex
	symbolLk map[string]*sync.Mutex

	cycle     uint64
	running   bool
	startTime time.Time
	lastDaily time.Time
}

// New builds a Scheduler ready to Start. pipeline may be nil when database
// persistence is disabled (§6 "enabled" config gate) — the scan loop still
// runs entirely in-memory against the signal store.
func New(cfg Config, registry *source.Registry, pipeline *ingestion.Pipeline, engine *signalengine.Engine, store *signalstore.Store, tracker *outcome.Tracker, notify notifier.Notifier, collector *metrics.Collector) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		pipeline: pipeline,
		engine:   engine,
		store:    store,
		tracker:  tracker,
		notify:   notify,
		metrics:  collector,
		assetIDs: make(map[string]int64),
		symbolLk: make(map[string]*sync.Mutex),
	}
}

// WithMacroCache attaches the macro/COT cache the scheduler sweeps once per
// cycle to keep the staleness gauge current (§4.12, §5). Optional — a
// Scheduler with no macro cache simply skips the sweep.
func (s *Scheduler) WithMacroCache(cache *macro.Cache) *Scheduler {
	s.macro = cache
	return s
}

// Start runs the scheduler loop until ctx is cancelled (§5 "cancellable on
// shutdown, context cancellation propagated from a signal handler").
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Int("symbols", len(s.cfg.WatchedSymbols)).Dur("grace", s.cfg.StartupGrace).Msg("scheduler: starting, waiting startup grace")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.StartupGrace):
	}

	s.running = true
	s.startTime = time.Now()
	defer func() { s.running = false }()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: context cancelled, stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one tick: the per-symbol scans (parallel across
// symbols, forex-gated by the cycle count) plus the once-daily analytics
// check (§4.11).
func (s *Scheduler) runCycle(ctx context.Context) {
	s.cycle++
	cycle := s.cycle

	s.maybeRunDailySummary(ctx)
	s.sweepMacroCache(ctx)
	s.sweepProviderCircuits()
	s.sweepOpenSignals()

	var wg sync.WaitGroup
	for _, symbol := range s.cfg.WatchedSymbols {
		if asset.LooksLikeForex(symbol) && cycle%uint64(s.cfg.ForexCycleMultiple) != 0 {
			continue
		}
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("symbol", symbol).Interface("panic", r).Msg("scheduler: scan panicked, fault contained")
				}
			}()
			if n, err := s.ScanSymbol(ctx, symbol); err != nil {
				log.Warn().Str("symbol", symbol).Err(err).Msg("scheduler: scan failed")
			} else {
				log.Debug().Str("symbol", symbol).Int("signals", n).Msg("scheduler: scan complete")
			}
		}()
	}
	wg.Wait()
}

// ScanSymbol runs ingest -> multi-timeframe scan -> outcome checks for one
// symbol, serialized against any other scan of the same symbol (§5
// "signal-status transitions are serialized per symbol"). It satisfies
// httpapi.Scanner for the manual POST /scan/{symbol} trigger. Every call
// mints a scan_id (§11) so its ingest/scan/outcome log lines can be
// correlated whether it was triggered by the ticker or the manual endpoint.
func (s *Scheduler) ScanSymbol(ctx context.Context, symbol string) (int, error) {
	lk := s.symbolLock(symbol)
	lk.Lock()
	defer lk.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanDeadline)
	defer cancel()

	logger := log.With().Str("scan_id", uuid.NewString()).Str("symbol", symbol).Logger()

	start := time.Now()
	frames := s.ingestAndFetch(ctx, symbol, logger)

	signals, err := s.engine.ScanMultiTimeframe(ctx, symbol, frames)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveScan(symbol, "error", time.Since(start))
		}
		logger.Warn().Err(err).Msg("scheduler: scan failed")
		return 0, err
	}

	for _, sig := range signals {
		id := s.store.SaveSignal(*sig)
		sig.ID = id
		if s.metrics != nil {
			s.metrics.SignalsGenerated.WithLabelValues(symbol, string(sig.Direction)).Inc()
		}
		logger.Info().Str("direction", string(sig.Direction)).Int64("signal_id", id).Msg("scheduler: signal generated")
		s.notify.NotifySignal(*sig)
	}

	s.runOutcomeChecks(symbol, frames)

	if s.metrics != nil {
		s.metrics.ObserveScan(symbol, "ok", time.Since(start))
	}
	logger.Debug().Int("signals", len(signals)).Msg("scheduler: scan complete")
	return len(signals), nil
}

// ingestAndFetch persists fresh candles (best-effort, via the ingestion
// pipeline, when persistence is enabled) and returns the freshly fetched
// series per configured timeframe for the signal engine to consume.
func (s *Scheduler) ingestAndFetch(ctx context.Context, symbol string, logger zerolog.Logger) map[candle.Timeframe]candle.Series {
	frames := make(map[candle.Timeframe]candle.Series, len(s.cfg.Timeframes))
	adapter, err := s.registry.Route(symbol)
	if err != nil {
		logger.Warn().Err(err).Msg("scheduler: no adapter route")
		return frames
	}

	for _, tf := range s.cfg.Timeframes {
		series, ferr := adapter.FetchOHLCV(ctx, symbol, tf, s.cfg.FetchLimit)
		if ferr != nil {
			logger.Warn().Str("timeframe", string(tf)).Err(ferr).Msg("scheduler: fetch failed")
			continue
		}
		frames[tf] = series
		if s.metrics != nil {
			s.metrics.IngestRowsTotal.WithLabelValues(symbol, string(tf)).Add(float64(len(series.Candles)))
		}

		if s.pipeline != nil {
			assetID := s.assetID(symbol)
			if _, err := s.pipeline.Ingest(ctx, assetID, symbol, tf, s.cfg.FetchLimit); err != nil {
				logger.Warn().Str("timeframe", string(tf)).Err(err).Msg("scheduler: persist failed")
			}
		}
	}
	return frames
}

// runOutcomeChecks advances every open (pending/active) signal for symbol
// against the latest bar of its own timeframe, notifying on terminal
// transitions and attaching loss analysis (§4.9, §4.10).
func (s *Scheduler) runOutcomeChecks(symbol string, frames map[candle.Timeframe]candle.Series) {
	open := s.store.GetSignals(symbol, nil, nil)
	for _, sig := range open {
		if sig.Status != signalmodel.StatusPending && sig.Status != signalmodel.StatusActive {
			continue
		}
		series, ok := frames[sig.Timeframe]
		if !ok || len(series.Candles) == 0 {
			continue
		}
		latest := series.Candles[len(series.Candles)-1]
		bar := outcome.Bar{Close: latest.Close, High: latest.High, Low: latest.Low, Time: latest.Timestamp}

		updated := s.tracker.Process(sig.ID, bar)
		if updated == nil {
			continue
		}
		switch updated.Status {
		case signalmodel.StatusWin, signalmodel.StatusLoss, signalmodel.StatusExpired:
			if updated.Status == signalmodel.StatusLoss {
				if withLoss := losslearning.Attach(s.store, *updated); withLoss != nil {
					updated = withLoss
				}
			}
			if s.metrics != nil {
				s.metrics.SignalsClosed.WithLabelValues(symbol, string(updated.Status)).Inc()
			}
			s.notify.NotifyOutcome(*updated)
		}
	}
}

// maybeRunDailySummary fires the once-per-day analytics summary at the
// configured UTC hour (§4.11), guarding against firing twice within the
// same calendar day.
func (s *Scheduler) maybeRunDailySummary(ctx context.Context) {
	now := time.Now().UTC()
	if now.Hour() != s.cfg.DailySummaryHourUTC {
		return
	}
	if sameDay(s.lastDaily, now) {
		return
	}
	s.lastDaily = now

	bySymbol := make(map[string][]signalmodel.Signal)
	for _, sig := range s.store.All() {
		bySymbol[sig.Symbol] = append(bySymbol[sig.Symbol], sig)
	}
	for symbol, signals := range bySymbol {
		analytics := outcome.ComputeAnalytics(signals)
		s.notify.NotifySummary(symbol, analytics)
	}
	log.Info().Int("symbols", len(bySymbol)).Msg("scheduler: daily summary emitted")
}

// sweepMacroCache refreshes the per-source staleness gauge; Get itself
// triggers the coalesced background refresh when an entry is absent or
// past TTL, so this sweep is what keeps every configured source warm even
// when no scan directly reads it.
func (s *Scheduler) sweepMacroCache(ctx context.Context) {
	if s.macro == nil || s.metrics == nil {
		return
	}
	for _, name := range s.macro.Names() {
		summary := s.macro.Get(ctx, name)
		v := 0.0
		if summary.Stale {
			v = 1
		}
		s.metrics.MacroCacheStale.WithLabelValues(name).Set(v)
	}
}

// sweepProviderCircuits publishes each registered adapter's breaker state
// to the circuit-state gauge (§5 "repeated provider failures trip a
// circuit breaker").
func (s *Scheduler) sweepProviderCircuits() {
	if s.metrics == nil {
		return
	}
	for _, p := range s.registry.ProviderStatuses() {
		s.metrics.CircuitState.WithLabelValues(p.Name()).Set(metrics.CircuitStateValue(p.CircuitState()))
	}
}

// sweepOpenSignals publishes the current pending/active signal count
// across all symbols.
func (s *Scheduler) sweepOpenSignals() {
	if s.metrics == nil {
		return
	}
	open := 0
	for _, sig := range s.store.All() {
		if sig.Status == signalmodel.StatusPending || sig.Status == signalmodel.StatusActive {
			open++
		}
	}
	s.metrics.OpenSignalsGauge.Set(float64(open))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// symbolLock returns the per-symbol mutex that serializes scan and outcome
// writes for that symbol (§5 "the simplest discipline is a per-symbol mutex
// around the signal store").
func (s *Scheduler) symbolLock(symbol string) *sync.Mutex {
	s.symbolMu.Lock()
	defer s.symbolMu.Unlock()
	lk, ok := s.symbolLk[symbol]
	if !ok {
		lk = &sync.Mutex{}
		s.symbolLk[symbol] = lk
	}
	return lk
}

// assetID assigns a process-local, monotonic asset id per symbol when no
// durable asset catalog is configured; the candle repository treats this
// purely as a foreign key, so a stable in-process id is sufficient for the
// in-memory/disabled-persistence path.
func (s *Scheduler) assetID(symbol string) int64 {
	s.assetMu.Lock()
	defer s.assetMu.Unlock()
	if id, ok := s.assetIDs[symbol]; ok {
		return id
	}
	s.nextAsset++
	s.assetIDs[symbol] = s.nextAsset
	return s.nextAsset
}

// Running reports whether the loop has started.
func (s *Scheduler) Running() bool { return s.running }

// Uptime reports how long the loop has been running (zero if stopped).
func (s *Scheduler) Uptime() time.Duration {
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}
