// Package websearch queries the Google Custom Search JSON API.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the Custom Search JSON API.
	DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"
	// MaxResults is the most results the API returns per request.
	MaxResults = 10

	searchTimeout  = 15 * time.Second
	errorBodyLimit = 4000
)

// ErrMissingCredentials is returned when the API key or engine id is empty.
var ErrMissingCredentials = errors.New("websearch: api key and engine id are required")

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Config configures a Client. RatePerSecond defaults to one request per second.
type Config struct {
	APIKey        string
	EngineID      string
	Endpoint      string
	RatePerSecond float64
}

// Client performs searches. Requests share a token bucket with burst 1.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a client. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.EngineID == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: searchTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		logger:  logger,
	}, nil
}

// Search returns up to num results for query in API order. num is clamped
// to 1..MaxResults.
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	if num < 1 {
		num = 1
	}
	if num > MaxResults {
		num = MaxResults
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("websearch: rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return nil, fmt.Errorf("websearch: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Items []Result `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}

	c.logger.Debug("search completed",
		zap.String("query", query),
		zap.Int("requested", num),
		zap.Int("results", len(payload.Items)),
	)
	if payload.Items == nil {
		return []Result{}, nil
	}
	return payload.Items, nil
}
