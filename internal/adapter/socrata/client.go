// Package socrata fetches raw crash records from a Socrata open-data resource.
package socrata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/domain"
)

// StatusError reports a non-success HTTP status from the source API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("source API returned status %d", e.Code)
}

// Client reads the full crash resource in one request.
type Client struct {
	url        string
	appToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a source client. appToken is optional; Socrata throttles
// anonymous callers more aggressively.
func NewClient(url, appToken string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:      url,
		appToken: appToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Extract fetches and decodes every record from the resource. A non-200
// response yields a *StatusError. No retries.
func (c *Client) Extract(ctx context.Context) ([]domain.RawIncident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		c.logger.Error("source API request failed", "url", c.url, "status", resp.StatusCode)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read source response: %w", err)
	}

	records, err := domain.DecodeRawIncidents(body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("source fetched",
		"records", len(records),
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return records, nil
}
