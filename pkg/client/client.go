// Package client provides an HTTP client for the buspulse query API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/buspulse/buspulse/pkg/chunk"
	"github.com/buspulse/buspulse/pkg/liveindex"
)

// DefaultMinRank mirrors the server-side default for the anomalies query.
const DefaultMinRank = 90

// Client talks to the buspulse api service. It is safe for concurrent use by
// multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the api service. baseURL includes scheme and host,
// e.g. "http://localhost:8081". Requests time out after 5 seconds.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, 5*time.Second)
}

// NewWithTimeout creates a client with a custom request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// History fetches the retained records for one bus, oldest first. An unknown
// bus yields an empty slice.
func (c *Client) History(ctx context.Context, busID string) ([]chunk.Record, error) {
	if busID == "" {
		return nil, fmt.Errorf("bus id cannot be empty")
	}
	var out []chunk.Record
	if err := c.getJSON(ctx, "/history/"+url.PathEscape(busID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the retained per-window system stats, oldest first.
func (c *Client) Stats(ctx context.Context) ([]chunk.SystemStats, error) {
	var out []chunk.SystemStats
	if err := c.getJSON(ctx, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Anomalies fetches the top anomalous buses at or above minRank. Pass a
// negative minRank to use the server default of 90.
func (c *Client) Anomalies(ctx context.Context, minRank int) ([]liveindex.ScoredBus, error) {
	var query url.Values
	if minRank >= 0 {
		query = url.Values{"min_rank": {strconv.Itoa(minRank)}}
	}
	var out []liveindex.ScoredBus
	if err := c.getJSON(ctx, "/anomalies", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
