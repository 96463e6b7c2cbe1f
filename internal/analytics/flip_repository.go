package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// resultBatchSize is a tuning constant for storage round-trips shared by the
// three analytics result repositories.
const resultBatchSize = 500

// FlipResultRepository implements contracts.FlipResultRepository against the
// flip_recommendations table.
type FlipResultRepository struct {
	pool *pgxpool.Pool
}

// NewFlipResultRepository creates a new flip recommendation repository.
func NewFlipResultRepository(pool *pgxpool.Pool) *FlipResultRepository {
	return &FlipResultRepository{pool: pool}
}

// ReplaceForDate atomically swaps the full recommendation set for a date.
// Delete and insert run inside one transaction so readers never observe a
// partially written ranking.
func (r *FlipResultRepository) ReplaceForDate(ctx context.Context, date string, results []contracts.FlipResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin flip replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM flip_recommendations WHERE date = $1::date`, date); err != nil {
		return fmt.Errorf("clear flip recommendations for %s: %w", date, err)
	}

	query := `
		INSERT INTO flip_recommendations (
			date, item_name, mod_rank, rank, overall_score,
			recommendation, confidence, factors, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`

	for start := 0; start < len(results); start += resultBatchSize {
		end := start + resultBatchSize
		if end > len(results) {
			end = len(results)
		}

		batch := &pgx.Batch{}
		for _, res := range results[start:end] {
			factors, err := json.Marshal(res.Factors)
			if err != nil {
				return fmt.Errorf("marshal factors for %s: %w", res.ItemName, err)
			}
			batch.Queue(query,
				date, res.ItemName, res.ModRank, res.Rank, res.OverallScore,
				string(res.Recommendation), res.Confidence, factors,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert flip batch [%d:%d]: %w", start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flip replace: %w", err)
	}
	return nil
}

// ListByDate returns the stored recommendations for a date in rank order.
func (r *FlipResultRepository) ListByDate(ctx context.Context, date string, limit int) ([]contracts.FlipResult, error) {
	query := `
		SELECT item_name, mod_rank, rank, overall_score, recommendation, confidence, factors
		FROM flip_recommendations
		WHERE date = $1::date
		ORDER BY rank ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list flip recommendations for %s: %w", date, err)
	}
	defer rows.Close()

	var results []contracts.FlipResult
	for rows.Next() {
		var (
			res     contracts.FlipResult
			rec     string
			factors []byte
		)
		if err := rows.Scan(&res.ItemName, &res.ModRank, &res.Rank,
			&res.OverallScore, &rec, &res.Confidence, &factors); err != nil {
			return nil, err
		}
		res.Recommendation = contracts.Recommendation(rec)
		if len(factors) > 0 {
			if err := json.Unmarshal(factors, &res.Factors); err != nil {
				return nil, fmt.Errorf("unmarshal factors for %s: %w", res.ItemName, err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
