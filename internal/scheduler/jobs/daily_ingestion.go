package jobs

import (
	"context"
	"time"

	"github.com/grofit/backend/internal/ingest"
	"github.com/grofit/backend/pkg/config"
	"github.com/grofit/backend/pkg/logger"
)

// DailyIngestionJob ingests the previous UTC day's market-history snapshot.
// Analytics is not invoked here; it runs off the ingestion completion event.
type DailyIngestionJob struct {
	orchestrator *ingest.Orchestrator
	config       *config.Config
	logger       *logger.Logger
}

// NewDailyIngestionJob creates a new daily ingestion job.
func NewDailyIngestionJob(orc *ingest.Orchestrator, cfg *config.Config, log *logger.Logger) *DailyIngestionJob {
	return &DailyIngestionJob{
		orchestrator: orc,
		config:       cfg,
		logger:       log,
	}
}

// Name returns the job name.
func (j *DailyIngestionJob) Name() string {
	return "daily_ingestion"
}

// Schedule returns the configured cron schedule. The default runs shortly
// after the provider publishes its daily snapshot.
func (j *DailyIngestionJob) Schedule() string {
	return j.config.Analytics.CronSchedule
}

// Run ingests yesterday's snapshot.
func (j *DailyIngestionJob) Run(ctx context.Context) error {
	date := ingest.YesterdayUTC(time.Now())

	j.logger.WithField("date", date).Info("Starting scheduled daily ingestion")
	return j.orchestrator.Ingest(ctx, date)
}
