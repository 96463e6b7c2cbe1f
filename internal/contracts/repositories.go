package contracts

import "context"

// Repository interfaces are defined here and implemented against pgx in the
// owning domain packages. Storage transactionality beyond a single call is
// not part of these contracts.

// RunRepository tracks ingestion runs, one row per (source, identifier).
type RunRepository interface {
	// StartRun inserts a run in status running, or resets the existing row
	// for the same (source, identifier) to running with a fresh start time
	// and a cleared completion time. The returned RunStart carries the
	// row's pre-reset terminal status and hash; comparing against them is
	// the sole idempotency gate for re-ingestion.
	StartRun(ctx context.Context, source, identifier string) (*RunStart, error)

	// UpdateRun records a terminal transition with completedAt = now.
	UpdateRun(ctx context.Context, runID int64, status RunStatus, details RunUpdate) error

	// ListRecent returns the most recently started runs for a source.
	ListRecent(ctx context.Context, source string, limit int) ([]*IngestionRun, error)
}

// RawSnapshotRepository stores provider payloads verbatim, keyed by date.
type RawSnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *RawSnapshot) error
}

// ObservationRepository stores normalized trade-history rows.
type ObservationRepository interface {
	// Upsert writes rows keyed by (date, timestamp, item, side, modRank),
	// overwriting all mutable numeric fields on conflict. Returns the number
	// of rows written after in-batch dedup.
	Upsert(ctx context.Context, rows []ObservationRow) (int, error)

	// FetchClosedSince returns per-entry daily stats for closed orders with
	// date >= start, the aggregation input for analytics.
	FetchClosedSince(ctx context.Context, startDate string) ([]DailyItemStats, error)
}

// FlipResultRepository stores flip recommendations, replaced wholesale per date.
type FlipResultRepository interface {
	ReplaceForDate(ctx context.Context, date string, results []FlipResult) error
	ListByDate(ctx context.Context, date string, limit int) ([]FlipResult, error)
}

// MarketTrendRepository stores per-window trend rows, replaced wholesale per date.
type MarketTrendRepository interface {
	ReplaceForDate(ctx context.Context, date string, trends []MarketTrendData) error
}

// ItemPerformanceRepository stores performance rows, replaced wholesale per date.
type ItemPerformanceRepository interface {
	ReplaceForDate(ctx context.Context, date string, performances []ItemPerformanceData) error
}

// HistoryProvider fetches the third party's daily market-history snapshot.
type HistoryProvider interface {
	FetchDailyHistory(ctx context.Context, date string) (RawPayload, error)
}

// EventBus is the abstract completion-event channel. Publish is at-most-once
// best-effort; failures are logged by callers and never retried.
type EventBus interface {
	Publish(ctx context.Context, event string, payload interface{}) error
	Subscribe(event string, handler func(ctx context.Context, payload []byte)) error
}
