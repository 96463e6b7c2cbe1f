package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// ItemPerformanceRepository implements contracts.ItemPerformanceRepository
// against the item_performance table.
type ItemPerformanceRepository struct {
	pool *pgxpool.Pool
}

// NewItemPerformanceRepository creates a new item performance repository.
func NewItemPerformanceRepository(pool *pgxpool.Pool) *ItemPerformanceRepository {
	return &ItemPerformanceRepository{pool: pool}
}

// ReplaceForDate atomically swaps the performance rows for a date.
func (r *ItemPerformanceRepository) ReplaceForDate(ctx context.Context, date string, performances []contracts.ItemPerformanceData) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin performance replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM item_performance WHERE date = $1::date`, date); err != nil {
		return fmt.Errorf("clear item performance for %s: %w", date, err)
	}

	query := `
		INSERT INTO item_performance (
			date, item_name, mod_rank, price_change_percent, volume_change_percent,
			stability_score, performance_rank, liquidity_score, volatility_score, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`

	for start := 0; start < len(performances); start += resultBatchSize {
		end := start + resultBatchSize
		if end > len(performances) {
			end = len(performances)
		}

		batch := &pgx.Batch{}
		for _, p := range performances[start:end] {
			batch.Queue(query,
				date, p.ItemName, p.ModRank, p.PriceChangePercent, p.VolumeChangePercent,
				p.StabilityScore, p.PerformanceRank, p.LiquidityScore, p.VolatilityScore,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert performance batch [%d:%d]: %w", start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit performance replace: %w", err)
	}
	return nil
}
