package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/internal/ingest"
	"github.com/grofit/backend/pkg/config"
	"github.com/grofit/backend/pkg/httputil"
	"github.com/grofit/backend/pkg/logger"
)

// Client fetches daily market-history snapshots from the provider.
// Implements contracts.HistoryProvider.
type Client struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new provider client. The local token bucket keeps a
// single process polite during backfills; the shared Redis limiter on the
// HTTP client (when configured) covers multiple processes.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Provider.RequestsPerSec), 1),
		baseURL:    cfg.Provider.BaseURL,
		logger:     log,
	}
}

// FetchDailyHistory fetches the snapshot for a date. A non-2xx response or a
// payload that is not a mapping of item name to entry arrays is a FetchError.
func (c *Client) FetchDailyHistory(ctx context.Context, date string) (contracts.RawPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ingest.FetchError{Date: date, Err: err}
	}

	url := fmt.Sprintf("%s/history/price_history_%s.json", c.baseURL, date)
	c.logger.WithFields(map[string]interface{}{
		"date": date,
		"url":  url,
	}).Info("Fetching daily history")

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &ingest.FetchError{Date: date, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ingest.FetchError{
			Date: date,
			Err:  fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ingest.FetchError{Date: date, Err: fmt.Errorf("read response body: %w", err)}
	}

	var payload contracts.RawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ingest.FetchError{Date: date, Err: fmt.Errorf("invalid snapshot schema: %w", err)}
	}

	c.logger.WithFields(map[string]interface{}{
		"date":    date,
		"items":   len(payload),
		"entries": payload.EntryCount(),
	}).Info("Fetched daily history")

	return payload, nil
}
