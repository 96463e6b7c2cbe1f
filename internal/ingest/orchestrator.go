package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/pkg/logger"
)

// Orchestrator coordinates one date's ingestion:
// fetch -> hash -> dedup-check -> persist raw -> normalize -> upsert rows ->
// mark complete -> announce. It is a straight-line pipeline per date with no
// internal parallelism; concurrent triggers for the same date race on the
// run tracker's (source, identifier) row, which is the sole arbiter.
type Orchestrator struct {
	provider     contracts.HistoryProvider
	runs         contracts.RunRepository
	snapshots    contracts.RawSnapshotRepository
	observations contracts.ObservationRepository
	bus          contracts.EventBus
	logger       *logger.Logger
}

// NewOrchestrator creates a new ingestion orchestrator.
func NewOrchestrator(
	provider contracts.HistoryProvider,
	runs contracts.RunRepository,
	snapshots contracts.RawSnapshotRepository,
	observations contracts.ObservationRepository,
	bus contracts.EventBus,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		provider:     provider,
		runs:         runs,
		snapshots:    snapshots,
		observations: observations,
		bus:          bus,
		logger:       log,
	}
}

// Ingest runs the pipeline for one calendar date (YYYY-MM-DD). Ingesting the
// same content twice marks the second run skipped and performs no writes.
// Any failure after the run has started marks it failed and is returned for
// the invoker's retry policy.
func (o *Orchestrator) Ingest(ctx context.Context, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid ingestion date %q: %w", date, err)
	}

	start, err := o.runs.StartRun(ctx, contracts.SourcePriceHistoryDaily, date)
	if err != nil {
		return err
	}
	run := start.Run

	log := o.logger.WithFields(map[string]interface{}{
		"source": contracts.SourcePriceHistoryDaily,
		"date":   date,
		"run_id": run.ID,
	})
	log.Info("Ingestion run started")

	if err := o.ingest(ctx, start, date, log); err != nil {
		if markErr := o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusFailed, contracts.RunUpdate{
			Metadata: map[string]interface{}{"error": err.Error()},
		}); markErr != nil {
			log.WithError(markErr).Error("Failed to mark run failed")
		}
		log.WithError(err).Error("Ingestion run failed")
		return err
	}
	return nil
}

func (o *Orchestrator) ingest(ctx context.Context, start *contracts.RunStart, date string, log *logger.Logger) error {
	run := start.Run

	payload, err := o.provider.FetchDailyHistory(ctx, date)
	if err != nil {
		return err
	}

	hash := CanonicalSHA256(payload)
	itemsCount := len(payload)
	entriesCount := payload.EntryCount()

	if start.AlreadyProcessed(hash) {
		// Duplicate content is the skipped terminal state, not an error.
		// The prior state comes from StartRun; the unique row itself has
		// already been reset to running.
		log.WithFields(map[string]interface{}{
			"sha256":       hash,
			"prior_status": string(start.PriorStatus),
		}).Info("Content already processed, skipping")

		return o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusSkipped, contracts.RunUpdate{
			SHA256: &hash,
			Metadata: map[string]interface{}{
				"reason": "duplicate_content",
				"sha256": hash,
			},
		})
	}

	if err := o.snapshots.Upsert(ctx, &contracts.RawSnapshot{
		Date:         date,
		SHA256:       hash,
		Payload:      payload,
		ItemsCount:   itemsCount,
		EntriesCount: entriesCount,
	}); err != nil {
		return &PersistError{Op: "raw snapshot", Err: err}
	}

	rows, err := NormalizeRows(payload, date)
	if err != nil {
		return err
	}

	upserted, err := o.observations.Upsert(ctx, rows)
	if err != nil {
		return &PersistError{Op: "observation rows", Err: err}
	}

	if err := o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusCompleted, contracts.RunUpdate{
		SHA256: &hash,
		Metadata: map[string]interface{}{
			"contentHash":  hash,
			"itemsCount":   itemsCount,
			"entriesCount": entriesCount,
			"upserted":     upserted,
		},
	}); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"sha256":   hash,
		"items":    itemsCount,
		"entries":  entriesCount,
		"upserted": upserted,
	}).Info("Ingestion run completed")

	// At-most-once announce: a publish failure after the terminal state is
	// recorded drops the notification and does not fail the run.
	if err := o.bus.Publish(ctx, contracts.EventIngestionCompleted, contracts.IngestionCompletedMessage{
		Source:       contracts.SourcePriceHistoryDaily,
		Date:         date,
		ItemsCount:   itemsCount,
		EntriesCount: entriesCount,
		SHA256:       hash,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish ingestion-completed event")
	}

	return nil
}

// DateResult is the per-date outcome of a backfill.
type DateResult struct {
	Date   string `json:"date"`
	Status string `json:"status"` // ok or failed
	Error  string `json:"error,omitempty"`
}

// IngestRange ingests every date in [from, to] sequentially. Individual
// failures are collected per date and do not abort the remaining dates.
func (o *Orchestrator) IngestRange(ctx context.Context, from, to string) ([]DateResult, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid backfill start %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid backfill end %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("backfill range is inverted: %s > %s", from, to)
	}

	var results []DateResult
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		date := day.Format("2006-01-02")
		if err := o.Ingest(ctx, date); err != nil {
			results = append(results, DateResult{Date: date, Status: "failed", Error: err.Error()})
			continue
		}
		results = append(results, DateResult{Date: date, Status: "ok"})
	}
	return results, nil
}

// YesterdayUTC returns the default ingestion target: the previous UTC
// calendar day.
func YesterdayUTC(now time.Time) string {
	return now.UTC().AddDate(0, 0, -1).Format("2006-01-02")
}
