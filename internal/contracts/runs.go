package contracts

import "time"

// RunStatus is the lifecycle state of an ingestion run.
// running is the only non-terminal state.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusSkipped || s == RunStatusFailed
}

// Run sources tracked by the run table. The identifier is the target date.
const (
	SourcePriceHistoryDaily  = "price_history.daily"
	SourceFlipAnalyticsDaily = "flip_analytics.daily"
)

// IngestionRun records one tracked attempt to ingest a given source's data
// for a given identifier. At most one row exists per (source, identifier);
// re-running resets the row to running with a fresh start time.
type IngestionRun struct {
	ID          int64
	Source      string
	Identifier  string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Metadata    map[string]interface{}
	SHA256      *string
}

// RunStart is the outcome of starting a run: the row now in status running,
// plus the terminal state it held before the reset, if any. At most one row
// exists per (source, identifier), so starting a run destroys that state in
// storage; callers that need it for content dedup read it from here.
type RunStart struct {
	Run         *IngestionRun
	PriorStatus RunStatus // empty for a first run
	PriorSHA256 *string
}

// AlreadyProcessed reports whether the previous execution reached a
// successful terminal state for content with the given hash.
func (s *RunStart) AlreadyProcessed(hash string) bool {
	if s.PriorStatus != RunStatusCompleted && s.PriorStatus != RunStatusSkipped {
		return false
	}
	return s.PriorSHA256 != nil && *s.PriorSHA256 == hash
}

// RunUpdate carries the optional details recorded on a terminal transition.
type RunUpdate struct {
	SHA256   *string
	Metadata map[string]interface{}
}
