// Package postgres implements the persistence contracts against
// PostgreSQL via sqlx + lib/pq, grounded on the teacher's trades_repo
// idiom (context-timeout wrapping, prepared batch inserts, ON CONFLICT
// upserts).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketintel/internal/persistence"
)

type candleRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCandleRepo creates a PostgreSQL-backed CandleRepo (§6 "Candle store").
func NewCandleRepo(db *sqlx.DB, timeout time.Duration) persistence.CandleRepo {
	return &candleRepo{db: db, timeout: timeout}
}

func (r *candleRepo) GetAssetBySymbol(ctx context.Context, symbol string) (*persistence.AssetRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, symbol, name, market_type, exchange, base, quote, config
		FROM assets
		WHERE symbol = $1`

	var row persistence.AssetRow
	var configJSON []byte
	err := r.db.QueryRowxContext(ctx, query, symbol).Scan(
		&row.ID, &row.Symbol, &row.Name, &row.MarketType,
		&row.Exchange, &row.Base, &row.Quote, &configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by symbol: %w", err)
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &row.Config); err != nil {
			return nil, fmt.Errorf("unmarshal asset config: %w", err)
		}
	}
	return &row, nil
}

// UpsertCandles is idempotent on (asset_id, timeframe, ts): last writer
// wins on O/H/L/C/V (§3, §4.3 step 4).
func (r *candleRepo) UpsertCandles(ctx context.Context, assetID int64, timeframe string, rows []persistence.CandleRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(rows)/200+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (asset_id, timeframe, ts, open, high, low, close, volume, tick_volume, spread, open_interest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (asset_id, timeframe, ts) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume,
			tick_volume = EXCLUDED.tick_volume, spread = EXCLUDED.spread,
			open_interest = EXCLUDED.open_interest`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, assetID, timeframe, row.Timestamp,
			row.Open, row.High, row.Low, row.Close, row.Volume,
			row.TickVolume, row.Spread, row.OpenInterest); err != nil {
			return fmt.Errorf("upsert candle %s: %w", row.Timestamp, err)
		}
	}
	return tx.Commit()
}

// QueryCandles returns rows oldest-first. When since/until are both zero,
// the most recent `limit` rows are returned, then re-ordered ascending.
func (r *candleRepo) QueryCandles(ctx context.Context, assetID int64, timeframe string, limit int, since, until time.Time) ([]persistence.CandleRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows *sqlx.Rows
	var err error
	if since.IsZero() && until.IsZero() {
		const query = `
			SELECT asset_id, timeframe, ts, open, high, low, close, volume, tick_volume, spread, open_interest
			FROM (
				SELECT * FROM candles WHERE asset_id = $1 AND timeframe = $2
				ORDER BY ts DESC LIMIT $3
			) recent
			ORDER BY ts ASC`
		rows, err = r.db.QueryxContext(ctx, query, assetID, timeframe, limit)
	} else {
		const query = `
			SELECT asset_id, timeframe, ts, open, high, low, close, volume, tick_volume, spread, open_interest
			FROM candles
			WHERE asset_id = $1 AND timeframe = $2 AND ts >= $3 AND ts <= $4
			ORDER BY ts ASC
			LIMIT $5`
		rows, err = r.db.QueryxContext(ctx, query, assetID, timeframe, since, until, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var out []persistence.CandleRow
	for rows.Next() {
		var c persistence.CandleRow
		if err := rows.StructScan(&c); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
