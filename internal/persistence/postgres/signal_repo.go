package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/marketintel/internal/persistence"
)

type signalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalRepo creates a PostgreSQL-backed SignalRepo (§6 "Signal store",
// §4.8 "a relational-backed Store satisfies the same contract").
func NewSignalRepo(db *sqlx.DB, timeout time.Duration) persistence.SignalRepo {
	return &signalRepo{db: db, timeout: timeout}
}

func (r *signalRepo) SaveSignal(ctx context.Context, row persistence.SignalRow) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal signal payload: %w", err)
	}

	const query = `
		INSERT INTO signals (
			symbol, timeframe, direction, status, entry_price, stop_loss, take_profit,
			risk_reward_ratio, confidence, composite_score, regime_at_signal,
			max_favorable, max_adverse, payload, generated_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`

	var id int64
	err = r.db.QueryRowxContext(ctx, query,
		row.Symbol, row.Timeframe, row.Direction, row.Status, row.EntryPrice,
		row.StopLoss, row.TakeProfit, row.RiskRewardRatio, row.Confidence,
		row.CompositeScore, row.RegimeAtSignal, row.MaxFavorable, row.MaxAdverse,
		payload, row.GeneratedAt, row.ExpiresAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save signal: %w", err)
	}
	return id, nil
}

func (r *signalRepo) GetSignals(ctx context.Context, symbol, status, timeframe string) ([]persistence.SignalRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := strings.Builder{}
	query.WriteString(`SELECT id, symbol, timeframe, direction, status, entry_price, stop_loss,
		take_profit, risk_reward_ratio, confidence, composite_score, regime_at_signal,
		exit_price, outcome_pnl, outcome_pnl_pct, max_favorable, max_adverse, loss_category,
		payload, generated_at, expires_at, triggered_at, closed_at
		FROM signals WHERE 1=1`)
	var args []interface{}
	idx := 1
	if symbol != "" {
		query.WriteString(fmt.Sprintf(" AND symbol = $%d", idx))
		args = append(args, symbol)
		idx++
	}
	if status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", idx))
		args = append(args, status)
		idx++
	}
	if timeframe != "" {
		query.WriteString(fmt.Sprintf(" AND timeframe = $%d", idx))
		args = append(args, timeframe)
		idx++
	}
	query.WriteString(" ORDER BY generated_at DESC")

	rows, err := r.db.QueryxContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []persistence.SignalRow
	for rows.Next() {
		var row persistence.SignalRow
		var payloadJSON []byte
		if err := rows.Scan(
			&row.ID, &row.Symbol, &row.Timeframe, &row.Direction, &row.Status,
			&row.EntryPrice, &row.StopLoss, &row.TakeProfit, &row.RiskRewardRatio,
			&row.Confidence, &row.CompositeScore, &row.RegimeAtSignal,
			&row.ExitPrice, &row.OutcomePnL, &row.OutcomePnLPct, &row.MaxFavorable,
			&row.MaxAdverse, &row.LossCategory, &payloadJSON, &row.GeneratedAt,
			&row.ExpiresAt, &row.TriggeredAt, &row.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &row.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal signal payload: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *signalRepo) UpdateSignal(ctx context.Context, id int64, fields map[string]interface{}) (*persistence.SignalRow, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set := strings.Builder{}
	var args []interface{}
	idx := 1
	for col, val := range fields {
		if idx > 1 {
			set.WriteString(", ")
		}
		set.WriteString(fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE signals SET %s WHERE id = $%d", set.String(), idx)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update signal: %w", err)
	}

	var row persistence.SignalRow
	var payloadJSON []byte
	err := r.db.QueryRowxContext(ctx, `SELECT id, symbol, timeframe, direction, status, entry_price,
		stop_loss, take_profit, risk_reward_ratio, confidence, composite_score, regime_at_signal,
		exit_price, outcome_pnl, outcome_pnl_pct, max_favorable, max_adverse, loss_category,
		payload, generated_at, expires_at, triggered_at, closed_at
		FROM signals WHERE id = $1`, id).Scan(
		&row.ID, &row.Symbol, &row.Timeframe, &row.Direction, &row.Status,
		&row.EntryPrice, &row.StopLoss, &row.TakeProfit, &row.RiskRewardRatio,
		&row.Confidence, &row.CompositeScore, &row.RegimeAtSignal,
		&row.ExitPrice, &row.OutcomePnL, &row.OutcomePnLPct, &row.MaxFavorable,
		&row.MaxAdverse, &row.LossCategory, &payloadJSON, &row.GeneratedAt,
		&row.ExpiresAt, &row.TriggeredAt, &row.ClosedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload updated signal: %w", err)
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &row.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal signal payload: %w", err)
		}
	}
	return &row, nil
}
