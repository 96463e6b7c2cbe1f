package commands

import (
	"fmt"

	"github.com/grofit/backend/internal/analytics"
	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/internal/events"
	"github.com/grofit/backend/internal/ingest"
	"github.com/grofit/backend/internal/marketdata"
	"github.com/grofit/backend/pkg/config"
	"github.com/grofit/backend/pkg/database"
	"github.com/grofit/backend/pkg/httputil"
	"github.com/grofit/backend/pkg/logger"
	"github.com/grofit/backend/pkg/redis"
)

// app is the composed object graph shared by the CLI commands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	bus   contracts.EventBus

	runs      *ingest.RunRepository
	flips     *analytics.FlipResultRepository
	ingestion *ingest.Orchestrator
	analytics *analytics.Orchestrator

	busCloser func() error
}

// newApp loads the config and wires the full object graph. Callers must
// invoke close when done.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rds, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		redis: rds,
	}

	// Without Redis the bus is in-process: completion events still chain
	// ingestion to analytics inside this binary, just not across binaries.
	if rds.Enabled() {
		bus, err := events.NewRedisBus(rds, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.bus = bus
		a.busCloser = bus.Close
	} else {
		log.Warn("Redis disabled, using in-process event bus")
		a.bus = events.NewMemoryBus()
	}

	httpClient := httputil.New(log, cfg.Provider.Timeout)
	if rds.Enabled() {
		// Shared sliding-window limit across all instances hitting the
		// provider, in addition to the client's local limiter.
		limiter := redis.NewRateLimiter(rds, "ratelimit")
		httpClient = httpClient.WithRateLimiter(limiter, redis.ProviderRateLimit)
	}

	provider := marketdata.NewClient(cfg, httpClient, log)

	a.runs = ingest.NewRunRepository(db.Pool)
	snapshots := ingest.NewRawSnapshotRepository(db.Pool)
	observations := ingest.NewObservationRepository(db.Pool)

	a.ingestion = ingest.NewOrchestrator(provider, a.runs, snapshots, observations, a.bus, log)

	a.flips = analytics.NewFlipResultRepository(db.Pool)
	trends := analytics.NewMarketTrendRepository(db.Pool)
	performances := analytics.NewItemPerformanceRepository(db.Pool)

	a.analytics = analytics.NewOrchestrator(
		observations, a.runs, a.flips, trends, performances,
		a.bus, cfg.Analytics, log,
	)

	return a, nil
}

// close releases all resources in reverse construction order.
func (a *app) close() {
	if a.busCloser != nil {
		if err := a.busCloser(); err != nil {
			a.log.WithError(err).Warn("Failed to close event bus")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close redis client")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
