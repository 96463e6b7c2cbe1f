package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/pkg/config"
	"github.com/grofit/backend/pkg/logger"
)

// Orchestrator coordinates one date's flip analytics:
// load closed-order history -> group per item -> score -> rank ->
// replace results -> mark complete -> announce. Items are processed
// sequentially in deterministic order; a panic while scoring one item
// excludes that item and never aborts the run.
type Orchestrator struct {
	observations contracts.ObservationRepository
	runs         contracts.RunRepository
	flips        contracts.FlipResultRepository
	trends       contracts.MarketTrendRepository
	performances contracts.ItemPerformanceRepository
	bus          contracts.EventBus
	logger       *logger.Logger

	historyDays int
	topCount    int

	// compute is ComputeAllForItem, replaceable for fault-injection tests.
	compute func(itemName string, modRank int, history []contracts.DailyItemStats, date string) ItemAnalytics
}

// NewOrchestrator creates a new analytics orchestrator.
func NewOrchestrator(
	observations contracts.ObservationRepository,
	runs contracts.RunRepository,
	flips contracts.FlipResultRepository,
	trends contracts.MarketTrendRepository,
	performances contracts.ItemPerformanceRepository,
	bus contracts.EventBus,
	cfg config.AnalyticsConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		observations: observations,
		runs:         runs,
		flips:        flips,
		trends:       trends,
		performances: performances,
		bus:          bus,
		logger:       log,
		historyDays:  cfg.HistoryDays,
		topCount:     cfg.TopCount,
		compute:      ComputeAllForItem,
	}
}

// Start subscribes the orchestrator to ingestion completion events so every
// successful ingestion triggers analytics for its date.
func (o *Orchestrator) Start() error {
	return o.bus.Subscribe(contracts.EventIngestionCompleted, func(ctx context.Context, payload []byte) {
		var msg contracts.IngestionCompletedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			o.logger.WithError(err).Error("Failed to decode ingestion-completed event")
			return
		}

		if err := o.Run(ctx, msg.Date, msg.SHA256); err != nil {
			o.logger.WithError(err).WithField("date", msg.Date).Error("Event-triggered analytics run failed")
		}
	})
}

// Run executes flip analytics for one date. contentHash is the ingestion
// content hash that triggered the run; when the same hash has already been
// analyzed the run is marked skipped without recomputation. An empty hash
// (manual trigger) always recomputes.
func (o *Orchestrator) Run(ctx context.Context, date, contentHash string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid analytics date %q: %w", date, err)
	}

	start, err := o.runs.StartRun(ctx, contracts.SourceFlipAnalyticsDaily, date)
	if err != nil {
		return err
	}
	run := start.Run

	log := o.logger.WithFields(map[string]interface{}{
		"source": contracts.SourceFlipAnalyticsDaily,
		"date":   date,
		"run_id": run.ID,
	})
	log.Info("Analytics run started")

	if err := o.run(ctx, start, date, contentHash, log); err != nil {
		if markErr := o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusFailed, contracts.RunUpdate{
			Metadata: map[string]interface{}{"error": err.Error()},
		}); markErr != nil {
			log.WithError(markErr).Error("Failed to mark run failed")
		}
		log.WithError(err).Error("Analytics run failed")
		return err
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, start *contracts.RunStart, date, contentHash string, log *logger.Logger) error {
	run := start.Run

	// Manual triggers carry no hash and always recompute.
	if contentHash != "" && start.AlreadyProcessed(contentHash) {
		log.WithFields(map[string]interface{}{
			"sha256":       contentHash,
			"prior_status": string(start.PriorStatus),
		}).Info("Analytics already computed for this content, skipping")

		return o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusSkipped, contracts.RunUpdate{
			SHA256: &contentHash,
			Metadata: map[string]interface{}{
				"reason": "duplicate_content",
				"sha256": contentHash,
			},
		})
	}

	end, _ := time.Parse("2006-01-02", date)
	since := end.AddDate(0, 0, -o.historyDays).Format("2006-01-02")

	rows, err := o.observations.FetchClosedSince(ctx, since)
	if err != nil {
		return err
	}

	histories := BuildItemHistories(rows)

	var (
		flips        []contracts.FlipResult
		trends       []contracts.MarketTrendData
		performances []contracts.ItemPerformanceData
		skipped      int
	)
	for _, history := range histories {
		if len(history.Days) < MinHistoryDays {
			skipped++
			continue
		}

		result, ok := o.computeItem(history, date, log)
		if !ok {
			skipped++
			continue
		}

		flips = append(flips, result.Flip)
		trends = append(trends, result.Trends...)
		performances = append(performances, result.Performance)
	}

	rankResults(flips)

	if err := o.flips.ReplaceForDate(ctx, date, flips); err != nil {
		return err
	}
	if err := o.trends.ReplaceForDate(ctx, date, trends); err != nil {
		return err
	}
	if err := o.performances.ReplaceForDate(ctx, date, performances); err != nil {
		return err
	}

	update := contracts.RunUpdate{
		Metadata: map[string]interface{}{
			"itemsProcessed": len(flips),
			"skipped":        skipped,
			"contentHash":    contentHash,
		},
	}
	if contentHash != "" {
		update.SHA256 = &contentHash
	}
	if err := o.runs.UpdateRun(ctx, run.ID, contracts.RunStatusCompleted, update); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"items":   len(flips),
		"skipped": skipped,
	}).Info("Analytics run completed")

	// At-most-once announce, same contract as ingestion: a publish failure
	// after the terminal state is recorded drops the notification only.
	if err := o.bus.Publish(ctx, contracts.EventAnalyticsCompleted, o.buildCompletionMessage(date, flips, trends, performances)); err != nil {
		log.WithError(err).Warn("Failed to publish analytics-completed event")
	}

	return nil
}

// computeItem scores one item, converting a panic in the math into an
// exclusion of that item from the result sets.
func (o *Orchestrator) computeItem(history ItemHistory, date string, log *logger.Logger) (result ItemAnalytics, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"item":     history.ItemName,
				"mod_rank": history.ModRank,
				"panic":    fmt.Sprintf("%v", r),
			}).Error("Excluding item after scoring panic")
			ok = false
		}
	}()

	return o.compute(history.ItemName, history.ModRank, history.Days, date), true
}

// rankResults orders results by descending score and assigns 1-based ranks.
// Input order is deterministic by (itemName, modRank), so equal scores tie
// in a reproducible order.
func rankResults(flips []contracts.FlipResult) {
	sort.SliceStable(flips, func(i, j int) bool {
		return flips[i].OverallScore > flips[j].OverallScore
	})
	for i := range flips {
		flips[i].Rank = i + 1
	}
}

func (o *Orchestrator) buildCompletionMessage(date string, flips []contracts.FlipResult, trends []contracts.MarketTrendData, performances []contracts.ItemPerformanceData) contracts.AnalyticsCompletedMessage {
	var summary contracts.AnalyticsSummary
	var total float64
	for _, f := range flips {
		total += f.OverallScore
		switch f.Recommendation {
		case contracts.RecommendationBuy:
			summary.BuyCount++
		case contracts.RecommendationHold:
			summary.HoldCount++
		case contracts.RecommendationAvoid:
			summary.AvoidCount++
		}
	}
	if len(flips) > 0 {
		summary.AverageScore = total / float64(len(flips))
	}

	top := make([]contracts.TopRecommendation, 0, o.topCount)
	for _, f := range flips {
		if len(top) == o.topCount {
			break
		}
		top = append(top, contracts.TopRecommendation{
			ItemName:       f.ItemName,
			ModRank:        f.ModRank,
			Rank:           f.Rank,
			OverallScore:   f.OverallScore,
			Recommendation: f.Recommendation,
			Confidence:     f.Confidence,
		})
	}

	// The event carries a bounded sample of trends and performances; the
	// full sets live in storage.
	return contracts.AnalyticsCompletedMessage{
		Date:               date,
		Count:              len(flips),
		TopRecommendations: top,
		MarketTrends:       boundTrends(trends, o.topCount),
		ItemPerformances:   boundPerformances(performances, o.topCount),
		Summary:            summary,
	}
}

func boundTrends(trends []contracts.MarketTrendData, limit int) []contracts.MarketTrendData {
	if len(trends) <= limit {
		return trends
	}
	return trends[:limit]
}

func boundPerformances(performances []contracts.ItemPerformanceData, limit int) []contracts.ItemPerformanceData {
	if len(performances) <= limit {
		return performances
	}
	return performances[:limit]
}
