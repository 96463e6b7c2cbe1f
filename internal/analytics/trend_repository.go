package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// MarketTrendRepository implements contracts.MarketTrendRepository against
// the market_trends table.
type MarketTrendRepository struct {
	pool *pgxpool.Pool
}

// NewMarketTrendRepository creates a new market trend repository.
func NewMarketTrendRepository(pool *pgxpool.Pool) *MarketTrendRepository {
	return &MarketTrendRepository{pool: pool}
}

// ReplaceForDate atomically swaps the trend rows for a date.
func (r *MarketTrendRepository) ReplaceForDate(ctx context.Context, date string, trends []contracts.MarketTrendData) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin trend replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM market_trends WHERE date = $1::date`, date); err != nil {
		return fmt.Errorf("clear market trends for %s: %w", date, err)
	}

	query := `
		INSERT INTO market_trends (
			date, item_name, mod_rank, time_window, trend_direction, trend_strength,
			price_change, volume_change, sma, ema, volatility, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	`

	for start := 0; start < len(trends); start += resultBatchSize {
		end := start + resultBatchSize
		if end > len(trends) {
			end = len(trends)
		}

		batch := &pgx.Batch{}
		for _, t := range trends[start:end] {
			batch.Queue(query,
				date, t.ItemName, t.ModRank, t.Window, string(t.TrendDirection), t.TrendStrength,
				t.PriceChange, t.VolumeChange, t.SMA, t.EMA, t.Volatility,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert trend batch [%d:%d]: %w", start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit trend replace: %w", err)
	}
	return nil
}
