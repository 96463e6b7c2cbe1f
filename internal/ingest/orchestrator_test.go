package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/pkg/logger"
)

type fakeProvider struct {
	payload contracts.RawPayload
	err     error
	calls   int
}

func (p *fakeProvider) FetchDailyHistory(ctx context.Context, date string) (contracts.RawPayload, error) {
	p.calls++
	return p.payload, p.err
}

// fakeRunRepo mirrors the ingestion_runs schema: at most one row per
// (source, identifier). Starting a run captures the row's terminal state
// and then resets it to running, exactly like the SQL upsert. Terminal
// transitions are recorded in order so tests can inspect each attempt.
type fakeRunRepo struct {
	nextID  int64
	rows    map[string]*contracts.IngestionRun
	byID    map[int64]*contracts.IngestionRun
	history []contracts.IngestionRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		rows: map[string]*contracts.IngestionRun{},
		byID: map[int64]*contracts.IngestionRun{},
	}
}

func (r *fakeRunRepo) StartRun(ctx context.Context, source, identifier string) (*contracts.RunStart, error) {
	key := source + "/" + identifier
	if row, ok := r.rows[key]; ok {
		start := &contracts.RunStart{Run: row, PriorStatus: row.Status, PriorSHA256: row.SHA256}
		row.Status = contracts.RunStatusRunning
		row.StartedAt = time.Now().UTC()
		row.CompletedAt = nil
		return start, nil
	}

	r.nextID++
	row := &contracts.IngestionRun{
		ID:         r.nextID,
		Source:     source,
		Identifier: identifier,
		Status:     contracts.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	r.rows[key] = row
	r.byID[row.ID] = row
	return &contracts.RunStart{Run: row}, nil
}

func (r *fakeRunRepo) UpdateRun(ctx context.Context, runID int64, status contracts.RunStatus, details contracts.RunUpdate) error {
	row, ok := r.byID[runID]
	if !ok {
		return errors.New("run not found")
	}
	now := time.Now().UTC()
	row.Status = status
	row.CompletedAt = &now
	if details.SHA256 != nil {
		row.SHA256 = details.SHA256
	}
	if details.Metadata != nil {
		row.Metadata = details.Metadata
	}
	r.history = append(r.history, *row)
	return nil
}

func (r *fakeRunRepo) ListRecent(ctx context.Context, source string, limit int) ([]*contracts.IngestionRun, error) {
	var out []*contracts.IngestionRun
	for _, run := range r.rows {
		if run.Source == source {
			out = append(out, run)
		}
	}
	return out, nil
}

type fakeSnapshotRepo struct {
	upserts []*contracts.RawSnapshot
	err     error
}

func (s *fakeSnapshotRepo) Upsert(ctx context.Context, snapshot *contracts.RawSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.upserts = append(s.upserts, snapshot)
	return nil
}

type fakeObservationRepo struct {
	upserts [][]contracts.ObservationRow
	err     error
}

func (o *fakeObservationRepo) Upsert(ctx context.Context, rows []contracts.ObservationRow) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	o.upserts = append(o.upserts, rows)
	return len(rows), nil
}

func (o *fakeObservationRepo) FetchClosedSince(ctx context.Context, startDate string) ([]contracts.DailyItemStats, error) {
	return nil, nil
}

type recordingBus struct {
	published []struct {
		Event   string
		Payload interface{}
	}
	err error
}

func (b *recordingBus) Publish(ctx context.Context, event string, payload interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, struct {
		Event   string
		Payload interface{}
	}{event, payload})
	return nil
}

func (b *recordingBus) Subscribe(event string, handler func(ctx context.Context, payload []byte)) error {
	return nil
}

func testPayload() contracts.RawPayload {
	return contracts.RawPayload{
		"Ash Prime Set": {
			entry(map[string]interface{}{"id": "1"}),
			entry(map[string]interface{}{"id": "2", "order_type": "buy"}),
		},
	}
}

func newTestOrchestrator(provider *fakeProvider) (*Orchestrator, *fakeRunRepo, *fakeSnapshotRepo, *fakeObservationRepo, *recordingBus) {
	runs := newFakeRunRepo()
	snapshots := &fakeSnapshotRepo{}
	observations := &fakeObservationRepo{}
	bus := &recordingBus{}
	orc := NewOrchestrator(provider, runs, snapshots, observations, bus, logger.NewNop())
	return orc, runs, snapshots, observations, bus
}

func TestOrchestrator_IngestHappyPath(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, snapshots, observations, bus := newTestOrchestrator(provider)

	err := orc.Ingest(context.Background(), "2025-08-30")
	require.NoError(t, err)

	require.Len(t, runs.history, 1)
	run := runs.history[0]
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	require.NotNil(t, run.SHA256)
	assert.Len(t, *run.SHA256, 64)
	assert.NotNil(t, run.CompletedAt)

	require.Len(t, snapshots.upserts, 1)
	assert.Equal(t, "2025-08-30", snapshots.upserts[0].Date)
	require.Len(t, observations.upserts, 1)
	assert.Len(t, observations.upserts[0], 2)

	require.Len(t, bus.published, 1)
	assert.Equal(t, contracts.EventIngestionCompleted, bus.published[0].Event)
	msg, ok := bus.published[0].Payload.(contracts.IngestionCompletedMessage)
	require.True(t, ok)
	assert.Equal(t, "2025-08-30", msg.Date)
	assert.Equal(t, *run.SHA256, msg.SHA256)
}

func TestOrchestrator_DuplicateContentSkips(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, snapshots, observations, bus := newTestOrchestrator(provider)

	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))
	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))

	require.Len(t, runs.history, 2)
	first, second := runs.history[0], runs.history[1]
	assert.Equal(t, contracts.RunStatusCompleted, first.Status)
	assert.Equal(t, contracts.RunStatusSkipped, second.Status)
	assert.Equal(t, "duplicate_content", second.Metadata["reason"])

	// One row per (source, identifier): the second attempt reuses the row
	// the first attempt completed, so the skip must come from the state
	// captured before the reset to running.
	assert.Equal(t, first.ID, second.ID)

	// The skipped run performs no writes and publishes nothing.
	assert.Len(t, snapshots.upserts, 1)
	assert.Len(t, observations.upserts, 1)
	assert.Len(t, bus.published, 1)
}

func TestOrchestrator_ChangedContentReprocesses(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, snapshots, _, _ := newTestOrchestrator(provider)

	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))

	provider.payload = contracts.RawPayload{
		"Ash Prime Set": {
			entry(map[string]interface{}{"id": "1", "volume": float64(999)}),
		},
	}
	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))

	require.Len(t, runs.history, 2)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[1].Status)
	assert.Len(t, snapshots.upserts, 2)
}

func TestOrchestrator_SameContentDifferentDates(t *testing.T) {
	// Identical content on different dates is not a duplicate: the dedup
	// key is (source, date, hash).
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, _, _, _ := newTestOrchestrator(provider)

	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))
	require.NoError(t, orc.Ingest(context.Background(), "2025-08-31"))

	require.Len(t, runs.history, 2)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[0].Status)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[1].Status)
	assert.NotEqual(t, runs.history[0].ID, runs.history[1].ID)
}

func TestOrchestrator_FetchFailureMarksRunFailed(t *testing.T) {
	provider := &fakeProvider{err: &FetchError{Date: "2025-08-30", Err: errors.New("boom")}}
	orc, runs, snapshots, _, bus := newTestOrchestrator(provider)

	err := orc.Ingest(context.Background(), "2025-08-30")
	require.Error(t, err)

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))

	require.Len(t, runs.history, 1)
	run := runs.history[0]
	assert.Equal(t, contracts.RunStatusFailed, run.Status)
	assert.Contains(t, run.Metadata["error"], "boom")
	assert.Empty(t, snapshots.upserts)
	assert.Empty(t, bus.published)
}

func TestOrchestrator_PersistFailureMarksRunFailed(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, snapshots, observations, _ := newTestOrchestrator(provider)
	observations.err = errors.New("disk full")

	err := orc.Ingest(context.Background(), "2025-08-30")
	require.Error(t, err)

	var persistErr *PersistError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "observation rows", persistErr.Op)

	assert.Equal(t, contracts.RunStatusFailed, runs.history[0].Status)
	assert.Len(t, snapshots.upserts, 1)
}

func TestOrchestrator_FailedRunReprocessesSameContent(t *testing.T) {
	// A prior failed attempt never gates a retry of the same content;
	// only completed and skipped terminal states do.
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, _, observations, _ := newTestOrchestrator(provider)

	observations.err = errors.New("disk full")
	require.Error(t, orc.Ingest(context.Background(), "2025-08-30"))

	observations.err = nil
	require.NoError(t, orc.Ingest(context.Background(), "2025-08-30"))

	require.Len(t, runs.history, 2)
	assert.Equal(t, contracts.RunStatusFailed, runs.history[0].Status)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[1].Status)
	assert.Len(t, observations.upserts, 1)
}

func TestOrchestrator_PublishFailureDoesNotFailRun(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, _, _, bus := newTestOrchestrator(provider)
	bus.err = errors.New("bus down")

	err := orc.Ingest(context.Background(), "2025-08-30")
	require.NoError(t, err)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[0].Status)
}

func TestOrchestrator_InvalidDate(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, runs, _, _, _ := newTestOrchestrator(provider)

	err := orc.Ingest(context.Background(), "08/30/2025")
	require.Error(t, err)
	assert.Empty(t, runs.rows)
	assert.Zero(t, provider.calls)
}

func TestIngestRange(t *testing.T) {
	provider := &fakeProvider{payload: testPayload()}
	orc, _, _, _, _ := newTestOrchestrator(provider)

	results, err := orc.IngestRange(context.Background(), "2025-08-28", "2025-08-30")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "2025-08-28", results[0].Date)
	assert.Equal(t, "2025-08-30", results[2].Date)
	for _, res := range results {
		assert.Equal(t, "ok", res.Status)
	}

	t.Run("inverted range", func(t *testing.T) {
		_, err := orc.IngestRange(context.Background(), "2025-08-30", "2025-08-01")
		assert.Error(t, err)
	})
}

func TestYesterdayUTC(t *testing.T) {
	now := time.Date(2025, 8, 31, 3, 15, 0, 0, time.UTC)
	assert.Equal(t, "2025-08-30", YesterdayUTC(now))

	// A local time just past midnight still resolves against UTC.
	kst := time.FixedZone("KST", 9*3600)
	assert.Equal(t, "2025-08-30", YesterdayUTC(time.Date(2025, 9, 1, 1, 0, 0, 0, kst)))
}
