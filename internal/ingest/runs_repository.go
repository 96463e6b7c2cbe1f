package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grofit/backend/internal/contracts"
)

// RunRepository implements contracts.RunRepository against the
// ingestion_runs table. The unique index on (source, identifier) is the
// arbiter of who owns a date's work; there is no application-level lock.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

const runColumns = `id, source, identifier, status, started_at, completed_at, metadata, sha256`

// StartRun inserts a running row or resets an existing (source, identifier)
// row to running with a fresh start time and cleared completion time.
// Re-entrant triggers are allowed and simply restart the run. The prior CTE
// reads the row's status and hash before the upsert resets them; the reset
// is the only record of that state, so it travels back in the RunStart.
func (r *RunRepository) StartRun(ctx context.Context, source, identifier string) (*contracts.RunStart, error) {
	query := `
		WITH prior AS (
			SELECT status, sha256
			FROM ingestion_runs
			WHERE source = $1 AND identifier = $2
		)
		INSERT INTO ingestion_runs (source, identifier, status, started_at, completed_at, metadata)
		VALUES ($1, $2, 'running', now(), NULL, NULL)
		ON CONFLICT (source, identifier)
		DO UPDATE SET status = 'running', started_at = now(), completed_at = NULL
		RETURNING ` + runColumns + `,
			(SELECT status FROM prior), (SELECT sha256 FROM prior)
	`

	var run contracts.IngestionRun
	var status string
	var metaRaw []byte
	var priorStatus, priorSHA *string

	err := r.pool.QueryRow(ctx, query, source, identifier).Scan(
		&run.ID, &run.Source, &run.Identifier, &status,
		&run.StartedAt, &run.CompletedAt, &metaRaw, &run.SHA256,
		&priorStatus, &priorSHA,
	)
	if err != nil {
		return nil, fmt.Errorf("start run %s/%s: %w", source, identifier, err)
	}

	run.Status = contracts.RunStatus(status)
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &run.Metadata); err != nil {
			return nil, fmt.Errorf("decode run metadata: %w", err)
		}
	}

	start := &contracts.RunStart{Run: &run, PriorSHA256: priorSHA}
	if priorStatus != nil {
		start.PriorStatus = contracts.RunStatus(*priorStatus)
	}
	return start, nil
}

// UpdateRun records a terminal transition, setting completedAt = now and
// overwriting hash/metadata only when provided.
func (r *RunRepository) UpdateRun(ctx context.Context, runID int64, status contracts.RunStatus, details contracts.RunUpdate) error {
	var metaJSON []byte
	if details.Metadata != nil {
		encoded, err := json.Marshal(details.Metadata)
		if err != nil {
			return fmt.Errorf("encode run metadata: %w", err)
		}
		metaJSON = encoded
	}

	query := `
		UPDATE ingestion_runs
		SET status = $2,
		    completed_at = now(),
		    sha256 = COALESCE($3, sha256),
		    metadata = COALESCE($4, metadata)
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, runID, string(status), details.SHA256, metaJSON)
	if err != nil {
		return fmt.Errorf("update run %d: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %d: run not found", runID)
	}
	return nil
}

// ListRecent returns the most recently started runs for a source.
func (r *RunRepository) ListRecent(ctx context.Context, source string, limit int) ([]*contracts.IngestionRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM ingestion_runs
		WHERE source = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", source, err)
	}
	defer rows.Close()

	var runs []*contracts.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// scanRun scans one ingestion_runs row.
func scanRun(row pgx.Row) (*contracts.IngestionRun, error) {
	var run contracts.IngestionRun
	var status string
	var metaRaw []byte

	err := row.Scan(
		&run.ID, &run.Source, &run.Identifier, &status,
		&run.StartedAt, &run.CompletedAt, &metaRaw, &run.SHA256,
	)
	if err != nil {
		return nil, err
	}

	run.Status = contracts.RunStatus(status)
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &run.Metadata); err != nil {
			return nil, fmt.Errorf("decode run metadata: %w", err)
		}
	}
	return &run, nil
}
