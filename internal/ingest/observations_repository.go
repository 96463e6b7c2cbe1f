package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// observationBatchSize is a tuning constant for storage round-trips; batch
// boundaries carry no correctness meaning.
const observationBatchSize = 500

// ObservationRepository implements contracts.ObservationRepository against
// the price_history_entries table.
type ObservationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository creates a new observation repository.
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

// Upsert writes rows keyed by (date, datetime, item, side, modRank). The
// conflict clause overwrites every mutable numeric field so a re-ingested
// snapshot never leaves stale values from a prior one. Rows are deduplicated
// by key within the batch first; the last occurrence wins.
func (r *ObservationRepository) Upsert(ctx context.Context, rows []contracts.ObservationRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	uniq := make(map[string]int, len(rows))
	deduped := make([]contracts.ObservationRow, 0, len(rows))
	for _, row := range rows {
		key := row.Key()
		if idx, seen := uniq[key]; seen {
			deduped[idx] = row
			continue
		}
		uniq[key] = len(deduped)
		deduped = append(deduped, row)
	}

	query := `
		INSERT INTO price_history_entries (
			date, datetime, item_name, order_type, mod_rank,
			volume, min_price, max_price, open_price, closed_price,
			avg_price, wa_price, median, moving_avg, donch_top, donch_bot,
			entry_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (date, datetime, item_name, order_type, mod_rank)
		DO UPDATE SET volume = excluded.volume,
		              min_price = excluded.min_price,
		              max_price = excluded.max_price,
		              open_price = excluded.open_price,
		              closed_price = excluded.closed_price,
		              avg_price = excluded.avg_price,
		              wa_price = excluded.wa_price,
		              median = excluded.median,
		              moving_avg = excluded.moving_avg,
		              donch_top = excluded.donch_top,
		              donch_bot = excluded.donch_bot,
		              entry_id = excluded.entry_id
	`

	for start := 0; start < len(deduped); start += observationBatchSize {
		end := start + observationBatchSize
		if end > len(deduped) {
			end = len(deduped)
		}

		batch := &pgx.Batch{}
		for _, row := range deduped[start:end] {
			batch.Queue(query,
				row.Date, row.Timestamp, row.ItemName, string(row.OrderSide), row.ModRank,
				row.Volume, row.MinPrice, row.MaxPrice, row.OpenPrice, row.ClosedPrice,
				row.AvgPrice, row.WaPrice, row.Median, row.MovingAvg, row.DonchTop, row.DonchBot,
				row.EntryID,
			)
		}

		if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("upsert observation batch [%d:%d]: %w", start, end, err)
		}
	}

	return len(deduped), nil
}

// FetchClosedSince returns per-entry daily stats for closed orders with
// date >= startDate, the aggregation input for the analytics engine.
func (r *ObservationRepository) FetchClosedSince(ctx context.Context, startDate string) ([]contracts.DailyItemStats, error) {
	query := `
		SELECT date::text, item_name, mod_rank, volume, min_price, max_price, avg_price, median
		FROM price_history_entries
		WHERE order_type = 'closed' AND date >= $1::date
	`

	rows, err := r.pool.Query(ctx, query, startDate)
	if err != nil {
		return nil, fmt.Errorf("fetch closed entries since %s: %w", startDate, err)
	}
	defer rows.Close()

	var stats []contracts.DailyItemStats
	for rows.Next() {
		var s contracts.DailyItemStats
		if err := rows.Scan(&s.Date, &s.ItemName, &s.ModRank,
			&s.Volume, &s.MinPrice, &s.MaxPrice, &s.AvgPrice, &s.Median); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
