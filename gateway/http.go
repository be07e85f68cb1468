package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fundflow/config"
	"fundflow/logger"
)

// NewHTTPClient builds the pooled HTTP client used by REST adapters,
// mirroring the per-exchange connection pool settings.
func NewHTTPClient(cfg config.ExchangeConfig, timeout time.Duration) *http.Client {
	pool := cfg.ConnectionPool
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 4
	}
	if pool.MaxConnsPerHost == 0 {
		pool.MaxConnsPerHost = 4
	}
	if pool.IdleConnTimeout == 0 {
		pool.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
		DisableCompression:  false,
	}

	return &http.Client{
		Transport: userAgentTransport{agent: "fundflow/1.0", base: transport},
		Timeout:   timeout,
	}
}

// GetJSON issues a GET against base+path with the given query and decodes
// the body into out. Non-2xx statuses are returned as errors carrying the
// body so adapters can inspect exchange error payloads.
func GetJSON(ctx context.Context, client *http.Client, exchange, base, path string, query url.Values, out interface{}) error {
	reqURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	reqURL.Path = path
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	logger.IncrementGatewayFetch(exchange, len(body))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{Code: res.StatusCode, Body: string(body)}
	}
	return json.Unmarshal(body, out)
}

// StatusError carries a non-2xx HTTP status and the raw response body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}
