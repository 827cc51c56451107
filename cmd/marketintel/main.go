// Command marketintel is the process entrypoint: it wires every domain
// component (adapters, ingestion, indicators, regime, predictor, signal
// engine, outcome tracker, loss-learning, notifier, macro cache, metrics,
// operator HTTP surface) into the scheduler loop, grounded on the teacher's
// cobra-root-plus-subcommand CLI shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/marketintel/internal/adapters/fake"
	"github.com/sawpanic/marketintel/internal/adapters/fallback"
	"github.com/sawpanic/marketintel/internal/adapters/kraken"
	"github.com/sawpanic/marketintel/internal/adapters/source"
	"github.com/sawpanic/marketintel/internal/config"
	"github.com/sawpanic/marketintel/internal/domain/asset"
	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/domain/indicators"
	"github.com/sawpanic/marketintel/internal/domain/losslearning"
	"github.com/sawpanic/marketintel/internal/domain/outcome"
	"github.com/sawpanic/marketintel/internal/domain/predictor"
	"github.com/sawpanic/marketintel/internal/domain/regime"
	"github.com/sawpanic/marketintel/internal/domain/signalengine"
	"github.com/sawpanic/marketintel/internal/domain/signalstore"
	applog "github.com/sawpanic/marketintel/internal/log"
	"github.com/sawpanic/marketintel/internal/httpapi"
	"github.com/sawpanic/marketintel/internal/infrastructure/db"
	"github.com/sawpanic/marketintel/internal/ingestion"
	"github.com/sawpanic/marketintel/internal/macro"
	"github.com/sawpanic/marketintel/internal/metrics"
	"github.com/sawpanic/marketintel/internal/notifier"
	"github.com/sawpanic/marketintel/internal/scheduler"
)

const appName = "marketintel"

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-intelligence signal service",
		Long:    "Ingests OHLCV data, computes technical and smart-money indicators, generates scored entry/SL/TP signals, tracks outcomes, and learns from losses.",
		Version: "v0.1.0",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler loop and operator HTTP surface",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("scan-interval", 0, "override scan_interval_seconds")
	serveCmd.Flags().Int("daily-summary-hour", 0, "override daily_summary_hour_utc")
	serveCmd.Flags().String("symbols", "", "comma-separated watched symbols override")
	serveCmd.Flags().String("database-url", "", "postgres DSN override")
	serveCmd.Flags().String("notifier-webhook-url", "", "webhook notifier URL override")
	serveCmd.Flags().String("predictor-url", "", "external predictor HTTP endpoint override")
	serveCmd.Flags().String("operator-http-addr", "", "operator HTTP listen address override")
	serveCmd.Flags().String("log-level", "", "log level override")
	serveCmd.Flags().Bool("metrics-enabled", false, "enable /metrics (flag presence forces true)")

	scanCmd := &cobra.Command{
		Use:   "scan [symbol]",
		Short: "Run a single manual scan for one symbol and print how many signals it generated",
		Args:  cobra.ExactArgs(1),
		RunE:  runScanOnce,
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill [symbol]",
		Short: "Backfill historical candles for a symbol across the configured timeframe set",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackfill,
	}

	analyticsCmd := &cobra.Command{
		Use:   "analytics [symbol]",
		Short: "Print closed-signal analytics for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalytics,
	}

	rootCmd.AddCommand(serveCmd, scanCmd, backfillCmd, analyticsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("marketintel: fatal error")
	}
}

// appWiring bundles every constructed component a subcommand needs.
type appWiring struct {
	cfg        config.AppConfig
	registry   *source.Registry
	pipeline   *ingestion.Pipeline
	engine     *signalengine.Engine
	store      *signalstore.Store
	tracker    *outcome.Tracker
	notify     notifier.Notifier
	collector  *metrics.Collector
	dbManager  *db.Manager
	macroCache *macro.Cache
}

func buildApp() (*appWiring, error) {
	cfg, err := config.LoadAppConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)

	registry := source.NewRegistry()
	if providersCfg, perr := config.LoadProvidersConfig("providers.yaml"); perr == nil {
		registry = source.NewRegistryWithBreaker(providersCfg.BreakerConfig())
	}
	registry.Register(kraken.NewAdapter())
	registry.Register(fallback.NewStooqAdapter(asset.MarketForex))
	registry.Register(fake.New("fake", asset.MarketCrypto))
	registry.SetCryptoAdapter("kraken")
	registry.SetForexAdapter("stooq_fallback")
	registry.SetCommodityOrForexAdapter("stooq_fallback")
	for symbol, adapterName := range cfg.AdapterOverrides {
		registry.SetOverride(symbol, adapterName)
	}

	dbCfg := db.DefaultConfig()
	if cfg.DatabaseURL != "" {
		dbCfg.DSN = cfg.DatabaseURL
		dbCfg.Enabled = true
	}
	dbManager, err := db.NewManager(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("database manager: %w", err)
	}

	var pipeline *ingestion.Pipeline
	if dbManager.IsEnabled() {
		pipeline = ingestion.New(registry, ingestion.NewRepoStore(dbManager.Repository().Candles))
	}

	indicatorRegistry := indicators.NewRegistry()
	regimeDetector := regime.NewDetector()

	var pred predictor.Predictor = predictor.NewHeuristic()
	if cfg.PredictorURL != "" {
		pred = predictor.NewHTTPClient(cfg.PredictorURL, 10*time.Second, predictor.NewHeuristic())
	}

	store := signalstore.New()
	filterSource := losslearning.NewFilterSource(store)
	engine := signalengine.New(indicatorRegistry, regimeDetector, pred, filterSource)
	tracker := outcome.New(store)

	var notifiers []notifier.Notifier
	notifiers = append(notifiers, notifier.StructuredLog{})
	if cfg.NotifierWebhookURL != "" {
		notifiers = append(notifiers, notifier.NewWebhook(cfg.NotifierWebhookURL))
	}
	notify := notifier.Multi{Notifiers: notifiers}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	macroSources := []macro.Source{
		macro.NewCOTSource("GOLD"),
		macro.NewCorrelationSource("correlation_btc_eth", registry, "BTCUSD", "ETHUSD", candle.TF1h, 50),
	}
	macroCache := macro.NewCache(macroSources, time.Duration(cfg.MacroCacheTTLSeconds)*time.Second, 13*time.Second)

	return &appWiring{
		cfg:        cfg,
		registry:   registry,
		pipeline:   pipeline,
		engine:     engine,
		store:      store,
		tracker:    tracker,
		notify:     notify,
		collector:  collector,
		dbManager:  dbManager,
		macroCache: macroCache,
	}, nil
}

func applyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	config.ApplyFlags(&app.cfg, cmd.Flags())

	schedCfg := scheduler.DefaultConfig()
	schedCfg.ScanInterval = time.Duration(app.cfg.ScanIntervalSeconds) * time.Second
	schedCfg.DailySummaryHourUTC = app.cfg.DailySummaryHourUTC
	schedCfg.WatchedSymbols = app.cfg.WatchedSymbols

	sched := scheduler.New(schedCfg, app.registry, app.pipeline, app.engine, app.store, app.tracker, app.notify, app.collector).WithMacroCache(app.macroCache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers := make([]httpapi.ProviderStatus, 0)
	for _, p := range app.registry.ProviderStatuses() {
		providers = append(providers, p)
	}
	server := httpapi.New(app.dbManager.Health(), sched, providers)

	httpSrv := &http.Server{Addr: app.cfg.OperatorHTTPAddr, Handler: server}
	go func() {
		log.Info().Str("addr", app.cfg.OperatorHTTPAddr).Msg("marketintel: operator HTTP surface listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("marketintel: operator HTTP surface failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	if app.dbManager != nil {
		app.dbManager.Close()
	}
	return nil
}

func runScanOnce(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	symbol := asset.Canonical(args[0])

	schedCfg := scheduler.DefaultConfig()
	schedCfg.WatchedSymbols = []string{symbol}
	sched := scheduler.New(schedCfg, app.registry, app.pipeline, app.engine, app.store, app.tracker, app.notify, app.collector)

	ctx, cancel := context.WithTimeout(context.Background(), schedCfg.ScanDeadline)
	defer cancel()

	n, err := sched.ScanSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("scan %s: %w", symbol, err)
	}
	fmt.Printf("%s: %d signal(s) generated\n", symbol, n)
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	symbol := asset.Canonical(args[0])

	timeframes := scheduler.DefaultConfig().Timeframes
	steps := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		steps = append(steps, string(tf))
	}
	stepLog := applog.NewStepLogger(fmt.Sprintf("backfill %s", symbol), steps)

	adapter, err := app.registry.Route(symbol)
	if err != nil {
		stepLog.Fail(err.Error())
		return err
	}

	for _, tf := range timeframes {
		stepLog.StartStep(string(tf))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		series, err := adapter.FetchOHLCV(ctx, symbol, tf, 1000)
		cancel()
		if err != nil {
			stepLog.Fail(err.Error())
			continue
		}
		if app.pipeline != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = app.pipeline.Ingest(ctx, 1, symbol, tf, len(series.Candles))
			cancel()
		}
		stepLog.CompleteStep()
	}
	stepLog.Finish()
	return nil
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	symbol := asset.Canonical(args[0])

	signals := app.store.GetSignals(symbol, nil, nil)
	analytics := outcome.ComputeAnalytics(signals)
	fmt.Printf("%s: win_rate=%.2f avg_pnl_pct=%.2f total_pnl=%.2f signals=%d\n",
		symbol, analytics.WinRate, analytics.AvgPnLPct, analytics.TotalPnL, len(signals))
	return nil
}
