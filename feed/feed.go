package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

// Snapshot is one pull of the cross-exchange funding feed. Raw keeps the
// untouched body so it can be persisted next to the derived table.
type Snapshot struct {
	FetchedAt time.Time
	Raw       json.RawMessage
	Table     models.FundingTable
}

// Client fetches the aggregated funding-rate feed. Rates in the feed are
// already normalized to an 8 hour cadence.
type Client struct {
	client *http.Client
	url    string
	log    *logger.Log
}

func NewClient(cfg *appconfig.Config) *Client {
	log := logger.GetLogger()

	log.WithComponent("feed").WithFields(logger.Fields{
		"url": cfg.Feed.URL,
	}).Debug("feed client initialized")

	return &Client{
		client: &http.Client{Timeout: cfg.Feed.Timeout},
		url:    cfg.Feed.URL,
		log:    log,
	}
}

// Fetch pulls the feed once. Any failure here is terminal for a scan, the
// caller decides how to exit.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	log := c.log.WithComponent("feed").WithFields(logger.Fields{
		"operation": "fetch",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch funding feed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("funding feed returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read funding feed: %w", err)
	}
	logger.LogPerformanceEntry(log, "feed", "http_request", time.Since(start), logger.Fields{
		"bytes": len(body),
	})

	table, err := Parse(body)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"instruments": len(table),
	}).Info("funding feed fetched")

	return &Snapshot{
		FetchedAt: time.Now().UTC(),
		Raw:       body,
		Table:     table,
	}, nil
}

// Parse decodes the feed body into the instrument by exchange rate table.
func Parse(body []byte) (models.FundingTable, error) {
	var payload struct {
		FundingRates map[string]map[string]float64 `json:"funding_rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode funding feed: %w", err)
	}
	if len(payload.FundingRates) == 0 {
		return nil, fmt.Errorf("funding feed contains no rates")
	}
	return models.FundingTable(payload.FundingRates), nil
}
