package ingestion

import (
	"context"

	"github.com/sawpanic/marketintel/internal/domain/candle"
	"github.com/sawpanic/marketintel/internal/persistence"
)

// RepoStore adapts a persistence.CandleRepo (row-oriented, timeframe-keyed
// upsert) into the Pipeline's Store contract (series-oriented), so the
// postgres-backed repository can serve as the pipeline's write target
// without the pipeline knowing about SQL row shapes.
type RepoStore struct {
	Repo persistence.CandleRepo
}

func NewRepoStore(repo persistence.CandleRepo) *RepoStore {
	return &RepoStore{Repo: repo}
}

func (s *RepoStore) Upsert(ctx context.Context, assetID int64, series candle.Series) error {
	rows := make([]persistence.CandleRow, 0, len(series.Candles))
	for _, c := range series.Candles {
		rows = append(rows, persistence.CandleRow{
			AssetID:      assetID,
			Timeframe:    string(series.Timeframe),
			Timestamp:    c.Timestamp,
			Open:         c.Open,
			High:         c.High,
			Low:          c.Low,
			Close:        c.Close,
			Volume:       c.Volume,
			TickVolume:   c.TickVolume,
			Spread:       c.Spread,
			OpenInterest: c.OpenInterest,
		})
	}
	return s.Repo.UpsertCandles(ctx, assetID, string(series.Timeframe), rows)
}
