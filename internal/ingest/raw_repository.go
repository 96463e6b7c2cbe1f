package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// RawSnapshotRepository implements contracts.RawSnapshotRepository against
// the price_history_raw table: the provider payload verbatim, keyed by date
// and additionally by content hash for replayability.
type RawSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewRawSnapshotRepository creates a new raw snapshot repository.
func NewRawSnapshotRepository(pool *pgxpool.Pool) *RawSnapshotRepository {
	return &RawSnapshotRepository{pool: pool}
}

// Upsert writes the snapshot for its date, overwriting a prior one.
func (r *RawSnapshotRepository) Upsert(ctx context.Context, snapshot *contracts.RawSnapshot) error {
	payload, err := json.Marshal(snapshot.Payload)
	if err != nil {
		return fmt.Errorf("encode raw payload: %w", err)
	}

	query := `
		INSERT INTO price_history_raw (date, sha256, payload, items_count, entries_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (date)
		DO UPDATE SET sha256 = excluded.sha256,
		              payload = excluded.payload,
		              items_count = excluded.items_count,
		              entries_count = excluded.entries_count
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.Date, snapshot.SHA256, payload, snapshot.ItemsCount, snapshot.EntriesCount)
	if err != nil {
		return fmt.Errorf("upsert raw snapshot for %s: %w", snapshot.Date, err)
	}
	return nil
}
