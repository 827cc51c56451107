package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// AppConfig holds the process-wide configuration surface (§6 "Configuration
// surface"): scan cadence, the watched-symbol universe, adapter overrides,
// and the expansion's persistence/notifier/predictor/operator settings.
// Precedence is flag > env > file > default, applied in that order by
// LoadAppConfig's caller.
type AppConfig struct {
	ScanIntervalSeconds int               `yaml:"scan_interval_seconds"`
	DailySummaryHourUTC int               `yaml:"daily_summary_hour_utc"`
	WatchedSymbols      []string          `yaml:"watched_symbols"`
	AdapterOverrides    map[string]string `yaml:"adapter_overrides"`

	DatabaseURL          string `yaml:"database_url"`
	MacroCacheTTLSeconds int    `yaml:"macro_cache_ttl_seconds"`
	NotifierWebhookURL   string `yaml:"notifier_webhook_url"`
	PredictorURL         string `yaml:"predictor_url"`
	OperatorHTTPAddr     string `yaml:"operator_http_addr"`
	LogLevel             string `yaml:"log_level"`
	MetricsEnabled       bool   `yaml:"metrics_enabled"`
}

// DefaultAppConfig returns every option at its spec-mandated default.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		ScanIntervalSeconds:  300,
		DailySummaryHourUTC:  22,
		WatchedSymbols:       []string{"BTCUSD", "ETHUSD", "EURUSD"},
		AdapterOverrides:     map[string]string{},
		MacroCacheTTLSeconds: 900,
		OperatorHTTPAddr:     ":8090",
		LogLevel:             "info",
		MetricsEnabled:       true,
	}
}

// LoadAppConfig starts from the default, merges a YAML file if present (a
// missing file is not an error — the process runs on defaults), then
// applies environment overrides.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read app config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse app config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file/default
// values (§6 "provider credentials per adapter ... read from environment").
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("SCAN_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ScanIntervalSeconds = n
		}
	}
	if v := os.Getenv("DAILY_SUMMARY_HOUR_UTC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DailySummaryHourUTC = n
		}
	}
	if v := os.Getenv("WATCHED_SYMBOLS"); v != "" {
		cfg.WatchedSymbols = splitCSV(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MACRO_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MacroCacheTTLSeconds = n
		}
	}
	if v := os.Getenv("NOTIFIER_WEBHOOK_URL"); v != "" {
		cfg.NotifierWebhookURL = v
	}
	if v := os.Getenv("PREDICTOR_URL"); v != "" {
		cfg.PredictorURL = v
	}
	if v := os.Getenv("OPERATOR_HTTP_ADDR"); v != "" {
		cfg.OperatorHTTPAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsEnabled = b
		}
	}
}

// ApplyFlags layers any explicitly-set cobra/pflag flags over cfg, the
// highest-precedence tier (flag > env > file > default).
func ApplyFlags(cfg *AppConfig, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	if flags.Changed("scan-interval") {
		if n, err := flags.GetInt("scan-interval"); err == nil {
			cfg.ScanIntervalSeconds = n
		}
	}
	if flags.Changed("daily-summary-hour") {
		if n, err := flags.GetInt("daily-summary-hour"); err == nil {
			cfg.DailySummaryHourUTC = n
		}
	}
	if flags.Changed("symbols") {
		if v, err := flags.GetString("symbols"); err == nil {
			cfg.WatchedSymbols = splitCSV(v)
		}
	}
	if flags.Changed("database-url") {
		if v, err := flags.GetString("database-url"); err == nil {
			cfg.DatabaseURL = v
		}
	}
	if flags.Changed("notifier-webhook-url") {
		if v, err := flags.GetString("notifier-webhook-url"); err == nil {
			cfg.NotifierWebhookURL = v
		}
	}
	if flags.Changed("predictor-url") {
		if v, err := flags.GetString("predictor-url"); err == nil {
			cfg.PredictorURL = v
		}
	}
	if flags.Changed("operator-http-addr") {
		if v, err := flags.GetString("operator-http-addr"); err == nil {
			cfg.OperatorHTTPAddr = v
		}
	}
	if flags.Changed("log-level") {
		if v, err := flags.GetString("log-level"); err == nil {
			cfg.LogLevel = v
		}
	}
	if flags.Changed("metrics-enabled") {
		if b, err := flags.GetBool("metrics-enabled"); err == nil {
			cfg.MetricsEnabled = b
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
