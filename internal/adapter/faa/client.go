package faa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/observability"

	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Client performs GET requests against the FAA publisher with a browser
// User-Agent, a per-call timeout, and optional bounded retries.
type Client struct {
	httpClient *http.Client
	userAgent  string
	retries    int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a publisher client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  cfg.UserAgent,
		retries:    cfg.HTTPRetries,
		logger:     logger,
		metrics:    metrics,
	}
}

// Get fetches url and returns the full response body. kind labels the
// request in metrics ("page" or "archive").
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration, kind string) ([]byte, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		body, err := c.get(ctx, url, timeout, kind)
		if err == nil {
			return body, nil
		}

		var dlErr *DownloadError
		if attempt >= c.retries || ctx.Err() != nil || !errors.As(err, &dlErr) || !dlErr.Temporary() {
			return nil, err
		}

		c.logger.Warn("publisher request failed, retrying",
			"url", url,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, err
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration, kind string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("faa: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	defer func() {
		c.metrics.DownloadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	c.metrics.DownloadBytes.Add(float64(len(body)))
	c.logger.Debug("publisher request complete", "url", url, "kind", kind, "bytes", len(body))
	return body, nil
}
