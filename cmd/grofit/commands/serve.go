package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grofit/backend/internal/api"
	"github.com/grofit/backend/internal/api/handlers"
	"github.com/grofit/backend/internal/scheduler"
	"github.com/grofit/backend/internal/scheduler/jobs"
)

// serveCmd starts the API server, the scheduler, and the analytics
// event subscriber in one process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	Long: `Starts the full backend service:

- HTTP API for ingestion/analytics triggers and reads
- Cron scheduler for the daily ingestion job
- Analytics subscriber chained to ingestion completion events

Endpoints:
  GET  /health
  GET  /api/v1/runs
  POST /api/v1/ingestion/daily
  POST /api/v1/ingestion/backfill
  POST /api/v1/analytics/run
  GET  /api/v1/recommendations

Example:
  go run ./cmd/grofit serve
  go run ./cmd/grofit serve --port 8087`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	if err := a.db.InitSchema(cmd.Context()); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if err := a.analytics.Start(); err != nil {
		return fmt.Errorf("start analytics subscriber: %w", err)
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewDailyIngestionJob(a.ingestion, a.cfg, a.log)); err != nil {
		return fmt.Errorf("register daily ingestion job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	ingestionHandler := handlers.NewIngestionHandler(a.ingestion, a.runs, a.log)
	analyticsHandler := handlers.NewAnalyticsHandler(a.analytics, a.flips, a.log)
	healthHandler := handlers.NewHealthHandler(a.db, a.log)

	router := api.NewRouter(ingestionHandler, analyticsHandler, healthHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("Service started")
	fmt.Printf("Server running on http://localhost:%s\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
