// Package persistence defines the durable-storage contracts the candle
// store and signal store are read/written through (§6 "External
// interfaces"), grounded on the teacher's sqlx/lib-pq repository idiom.
package persistence

import (
	"context"
	"time"
)

// TimeRange represents a time window for data queries with PIT integrity.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CandleRow is the persisted-row shape for one OHLCV bar, keyed by
// (asset_id, timeframe, timestamp) (§3 "Candle").
type CandleRow struct {
	AssetID      int64     `json:"asset_id" db:"asset_id"`
	Timeframe    string    `json:"timeframe" db:"timeframe"`
	Timestamp    time.Time `json:"ts" db:"ts"`
	Open         float64   `json:"open" db:"open"`
	High         float64   `json:"high" db:"high"`
	Low          float64   `json:"low" db:"low"`
	Close        float64   `json:"close" db:"close"`
	Volume       float64   `json:"volume" db:"volume"`
	TickVolume   *float64  `json:"tick_volume,omitempty" db:"tick_volume"`
	Spread       *float64  `json:"spread,omitempty" db:"spread"`
	OpenInterest *float64  `json:"open_interest,omitempty" db:"open_interest"`
}

// AssetRow is the persisted Asset record (§3 "Asset").
type AssetRow struct {
	ID         int64                  `json:"id" db:"id"`
	Symbol     string                 `json:"symbol" db:"symbol"`
	Name       string                 `json:"name" db:"name"`
	MarketType string                 `json:"market_type" db:"market_type"`
	Exchange   *string                `json:"exchange,omitempty" db:"exchange"`
	Base       *string                `json:"base,omitempty" db:"base"`
	Quote      *string                `json:"quote,omitempty" db:"quote"`
	Config     map[string]interface{} `json:"config,omitempty" db:"config"`
}

// CandleRepo is the candle store contract (§6 "Candle store (read/write)").
type CandleRepo interface {
	// GetAssetBySymbol looks up an asset by its canonical symbol, returning
	// nil (no error) if unknown.
	GetAssetBySymbol(ctx context.Context, symbol string) (*AssetRow, error)

	// UpsertCandles is idempotent on (asset_id, timeframe, timestamp),
	// overwriting O/H/L/C/V on conflict (§3 "append-only", §4.3 step 4).
	UpsertCandles(ctx context.Context, assetID int64, timeframe string, rows []CandleRow) error

	// QueryCandles returns rows oldest-first within [since, until], or the
	// most recent `limit` rows if since/until are zero.
	QueryCandles(ctx context.Context, assetID int64, timeframe string, limit int, since, until time.Time) ([]CandleRow, error)
}

// SignalRow is the persisted Signal record for a relational signal store
// (§4.8 "A relational-backed Store satisfies the same contract").
type SignalRow struct {
	ID              int64                  `json:"id" db:"id"`
	Symbol          string                 `json:"symbol" db:"symbol"`
	Timeframe       string                 `json:"timeframe" db:"timeframe"`
	Direction       string                 `json:"direction" db:"direction"`
	Status          string                 `json:"status" db:"status"`
	EntryPrice      float64                `json:"entry_price" db:"entry_price"`
	StopLoss        float64                `json:"stop_loss" db:"stop_loss"`
	TakeProfit      float64                `json:"take_profit" db:"take_profit"`
	RiskRewardRatio float64                `json:"risk_reward_ratio" db:"risk_reward_ratio"`
	Confidence      float64                `json:"confidence" db:"confidence"`
	CompositeScore  float64                `json:"composite_score" db:"composite_score"`
	RegimeAtSignal  string                 `json:"regime_at_signal" db:"regime_at_signal"`
	ExitPrice       *float64               `json:"exit_price,omitempty" db:"exit_price"`
	OutcomePnL      *float64               `json:"outcome_pnl,omitempty" db:"outcome_pnl"`
	OutcomePnLPct   *float64               `json:"outcome_pnl_pct,omitempty" db:"outcome_pnl_pct"`
	MaxFavorable    float64                `json:"max_favorable" db:"max_favorable"`
	MaxAdverse      float64                `json:"max_adverse" db:"max_adverse"`
	LossCategory    *string                `json:"loss_category,omitempty" db:"loss_category"`
	Payload         map[string]interface{} `json:"payload" db:"payload"` // snapshots/reasons, opaque JSONB
	GeneratedAt     time.Time              `json:"generated_at" db:"generated_at"`
	ExpiresAt       time.Time              `json:"expires_at" db:"expires_at"`
	TriggeredAt     *time.Time             `json:"triggered_at,omitempty" db:"triggered_at"`
	ClosedAt        *time.Time             `json:"closed_at,omitempty" db:"closed_at"`
}

// SignalRepo is the durable signal-store contract (§6 "Signal store").
type SignalRepo interface {
	SaveSignal(ctx context.Context, row SignalRow) (int64, error)
	GetSignals(ctx context.Context, symbol, status, timeframe string) ([]SignalRow, error)
	UpdateSignal(ctx context.Context, id int64, fields map[string]interface{}) (*SignalRow, error)
}

// Repository aggregates every persistence contract the application wires at
// startup (§4.15 "Config & CLI surface" / §11 wiring).
type Repository struct {
	Candles CandleRepo
	Signals SignalRepo
}

// HealthCheck represents repository health status.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer,
// consumed by C17's /healthz.
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
	Stats(ctx context.Context) map[string]interface{}
}
