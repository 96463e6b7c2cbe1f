package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/internal/events"
	"github.com/grofit/backend/pkg/config"
	"github.com/grofit/backend/pkg/logger"
)

type fakeObservations struct {
	rows []contracts.DailyItemStats
	err  error
}

func (o *fakeObservations) Upsert(ctx context.Context, rows []contracts.ObservationRow) (int, error) {
	return 0, nil
}

func (o *fakeObservations) FetchClosedSince(ctx context.Context, startDate string) ([]contracts.DailyItemStats, error) {
	return o.rows, o.err
}

// fakeRuns mirrors the ingestion_runs schema: at most one row per
// (source, identifier), reset to running on start with the prior terminal
// state captured. Terminal transitions are recorded in order.
type fakeRuns struct {
	nextID  int64
	rows    map[string]*contracts.IngestionRun
	byID    map[int64]*contracts.IngestionRun
	history []contracts.IngestionRun
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{
		rows: map[string]*contracts.IngestionRun{},
		byID: map[int64]*contracts.IngestionRun{},
	}
}

func (r *fakeRuns) StartRun(ctx context.Context, source, identifier string) (*contracts.RunStart, error) {
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

func (r *fakeRuns) UpdateRun(ctx context.Context, runID int64, status contracts.RunStatus, details contracts.RunUpdate) error {
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

func (r *fakeRuns) ListRecent(ctx context.Context, source string, limit int) ([]*contracts.IngestionRun, error) {
	return nil, nil
}

type fakeFlips struct {
	replaced map[string][]contracts.FlipResult
	err      error
}

func (f *fakeFlips) ReplaceForDate(ctx context.Context, date string, results []contracts.FlipResult) error {
	if f.err != nil {
		return f.err
	}
	if f.replaced == nil {
		f.replaced = map[string][]contracts.FlipResult{}
	}
	f.replaced[date] = results
	return nil
}

func (f *fakeFlips) ListByDate(ctx context.Context, date string, limit int) ([]contracts.FlipResult, error) {
	return f.replaced[date], nil
}

type fakeTrends struct {
	replaced map[string][]contracts.MarketTrendData
}

func (f *fakeTrends) ReplaceForDate(ctx context.Context, date string, trends []contracts.MarketTrendData) error {
	if f.replaced == nil {
		f.replaced = map[string][]contracts.MarketTrendData{}
	}
	f.replaced[date] = trends
	return nil
}

type fakePerformances struct {
	replaced map[string][]contracts.ItemPerformanceData
}

func (f *fakePerformances) ReplaceForDate(ctx context.Context, date string, performances []contracts.ItemPerformanceData) error {
	if f.replaced == nil {
		f.replaced = map[string][]contracts.ItemPerformanceData{}
	}
	f.replaced[date] = performances
	return nil
}

func testAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		HistoryDays: 30,
		TopCount:    50,
		WriteBatch:  500,
	}
}

// itemRows builds a full daily history for one item ending at anchor.
func itemRows(item string, modRank int, anchor string, days int, volume, price float64) []contracts.DailyItemStats {
	day, _ := time.Parse("2006-01-02", anchor)
	rows := make([]contracts.DailyItemStats, 0, days)
	for i := 0; i < days; i++ {
		rows = append(rows, statRow(item, modRank, day.AddDate(0, 0, -i).Format("2006-01-02"), volume, price))
	}
	return rows
}

func newTestAnalytics(rows []contracts.DailyItemStats, bus contracts.EventBus) (*Orchestrator, *fakeRuns, *fakeFlips, *fakeTrends, *fakePerformances) {
	runs := newFakeRuns()
	flips := &fakeFlips{}
	trends := &fakeTrends{}
	performances := &fakePerformances{}
	if bus == nil {
		bus = events.NewMemoryBus()
	}
	orc := NewOrchestrator(
		&fakeObservations{rows: rows}, runs, flips, trends, performances,
		bus, testAnalyticsConfig(), logger.NewNop(),
	)
	return orc, runs, flips, trends, performances
}

func TestAnalyticsRun_HappyPath(t *testing.T) {
	rows := append(
		itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100),
		itemRows("Serration", 10, "2025-08-30", 30, 50, 12)...,
	)
	orc, runs, flips, trends, performances := newTestAnalytics(rows, nil)

	err := orc.Run(context.Background(), "2025-08-30", "")
	require.NoError(t, err)

	require.Len(t, runs.history, 1)
	run := runs.history[0]
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Metadata["itemsProcessed"])
	assert.Equal(t, 0, run.Metadata["skipped"])

	results := flips.replaced["2025-08-30"]
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.GreaterOrEqual(t, results[0].OverallScore, results[1].OverallScore)

	// One trend row per window per item, one performance row per item.
	assert.Len(t, trends.replaced["2025-08-30"], 6)
	assert.Len(t, performances.replaced["2025-08-30"], 2)
}

func TestAnalyticsRun_SkipsThinHistory(t *testing.T) {
	rows := append(
		itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100),
		itemRows("Fresh Item", -1, "2025-08-30", 3, 10, 5)...,
	)
	orc, runs, flips, _, _ := newTestAnalytics(rows, nil)

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))

	assert.Equal(t, 1, runs.history[0].Metadata["itemsProcessed"])
	assert.Equal(t, 1, runs.history[0].Metadata["skipped"])
	assert.Len(t, flips.replaced["2025-08-30"], 1)
}

func TestAnalyticsRun_DeterministicTieRanking(t *testing.T) {
	// Identical histories produce identical scores; ranks then follow the
	// deterministic (itemName, modRank) grouping order.
	rows := append(
		itemRows("Beta Item", -1, "2025-08-30", 30, 100, 50),
		itemRows("Alpha Item", -1, "2025-08-30", 30, 100, 50)...,
	)
	orc, _, flips, _, _ := newTestAnalytics(rows, nil)

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))

	results := flips.replaced["2025-08-30"]
	require.Len(t, results, 2)
	assert.Equal(t, results[0].OverallScore, results[1].OverallScore)
	assert.Equal(t, "Alpha Item", results[0].ItemName)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "Beta Item", results[1].ItemName)
	assert.Equal(t, 2, results[1].Rank)
}

func TestAnalyticsRun_HashSkip(t *testing.T) {
	rows := itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100)
	orc, runs, flips, _, _ := newTestAnalytics(rows, nil)

	hash := "abc123"
	require.NoError(t, orc.Run(context.Background(), "2025-08-30", hash))
	require.NoError(t, orc.Run(context.Background(), "2025-08-30", hash))

	require.Len(t, runs.history, 2)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[0].Status)
	assert.Equal(t, contracts.RunStatusSkipped, runs.history[1].Status)
	assert.Equal(t, "duplicate_content", runs.history[1].Metadata["reason"])

	// Both attempts share the unique (source, identifier) row; the skip
	// keys off the state the row held before it was reset to running.
	assert.Equal(t, runs.history[0].ID, runs.history[1].ID)

	// Only the first run wrote results.
	assert.Len(t, flips.replaced, 1)
}

func TestAnalyticsRun_ManualTriggerAlwaysRecomputes(t *testing.T) {
	rows := itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100)
	orc, runs, _, _, _ := newTestAnalytics(rows, nil)

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", "abc123"))
	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))

	require.Len(t, runs.history, 2)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[0].Status)
	assert.Equal(t, contracts.RunStatusCompleted, runs.history[1].Status)
}

func TestAnalyticsRun_PerDateIndependence(t *testing.T) {
	rows := itemRows("Ash Prime Set", -1, "2025-08-31", 31, 200, 100)
	orc, _, flips, _, _ := newTestAnalytics(rows, nil)

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))
	require.NoError(t, orc.Run(context.Background(), "2025-08-31", ""))

	// Each date owns its own result set; the second run does not disturb
	// the first date's rows.
	assert.Len(t, flips.replaced["2025-08-30"], 1)
	assert.Len(t, flips.replaced["2025-08-31"], 1)
}

func TestAnalyticsRun_PersistFailureMarksRunFailed(t *testing.T) {
	rows := itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100)
	orc, runs, flips, _, _ := newTestAnalytics(rows, nil)
	flips.err = errors.New("disk full")

	err := orc.Run(context.Background(), "2025-08-30", "")
	require.Error(t, err)
	assert.Equal(t, contracts.RunStatusFailed, runs.history[0].Status)
}

func TestAnalyticsRun_ScoringPanicExcludesItem(t *testing.T) {
	rows := append(
		itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100),
		itemRows("Corrupt Item", -1, "2025-08-30", 30, 50, 12)...,
	)
	orc, runs, flips, trends, performances := newTestAnalytics(rows, nil)

	orc.compute = func(itemName string, modRank int, history []contracts.DailyItemStats, date string) ItemAnalytics {
		if itemName == "Corrupt Item" {
			panic("bad math")
		}
		return ComputeAllForItem(itemName, modRank, history, date)
	}

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))

	// The panicking item is excluded from all three result sets and
	// counted as skipped; the batch itself completes.
	run := runs.history[0]
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Metadata["itemsProcessed"])
	assert.Equal(t, 1, run.Metadata["skipped"])

	results := flips.replaced["2025-08-30"]
	require.Len(t, results, 1)
	assert.Equal(t, "Ash Prime Set", results[0].ItemName)

	for _, trend := range trends.replaced["2025-08-30"] {
		assert.NotEqual(t, "Corrupt Item", trend.ItemName)
	}
	for _, perf := range performances.replaced["2025-08-30"] {
		assert.NotEqual(t, "Corrupt Item", perf.ItemName)
	}
}

func TestAnalyticsRun_InvalidDate(t *testing.T) {
	orc, runs, _, _, _ := newTestAnalytics(nil, nil)

	err := orc.Run(context.Background(), "not-a-date", "")
	require.Error(t, err)
	assert.Empty(t, runs.rows)
}

func TestAnalyticsRun_PublishesCompletionEvent(t *testing.T) {
	bus := events.NewMemoryBus()

	var received *contracts.AnalyticsCompletedMessage
	require.NoError(t, bus.Subscribe(contracts.EventAnalyticsCompleted, func(ctx context.Context, payload []byte) {
		var msg contracts.AnalyticsCompletedMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		received = &msg
	}))

	rows := itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100)
	orc, _, _, _, _ := newTestAnalytics(rows, bus)

	require.NoError(t, orc.Run(context.Background(), "2025-08-30", ""))

	require.NotNil(t, received)
	assert.Equal(t, "2025-08-30", received.Date)
	assert.Equal(t, 1, received.Count)
	require.Len(t, received.TopRecommendations, 1)
	assert.Equal(t, 1, received.TopRecommendations[0].Rank)
	total := received.Summary.BuyCount + received.Summary.HoldCount + received.Summary.AvoidCount
	assert.Equal(t, 1, total)
}

func TestAnalyticsStart_ChainsFromIngestionEvent(t *testing.T) {
	bus := events.NewMemoryBus()
	rows := itemRows("Ash Prime Set", -1, "2025-08-30", 30, 200, 100)
	orc, runs, flips, _, _ := newTestAnalytics(rows, bus)

	require.NoError(t, orc.Start())

	require.NoError(t, bus.Publish(context.Background(), contracts.EventIngestionCompleted, contracts.IngestionCompletedMessage{
		Source: contracts.SourcePriceHistoryDaily,
		Date:   "2025-08-30",
		SHA256: "abc123",
	}))

	require.Len(t, runs.history, 1)
	run := runs.history[0]
	assert.Equal(t, contracts.SourceFlipAnalyticsDaily, run.Source)
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	require.NotNil(t, run.SHA256)
	assert.Equal(t, "abc123", *run.SHA256)
	assert.Len(t, flips.replaced["2025-08-30"], 1)
}
