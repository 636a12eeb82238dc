package marketsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a response body is decoded.
const maxResponseBytes = 4 << 20

// Client is the marketsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	obs       *observer
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{base: u, http: hc, userAgent: cfg.userAgent, obs: obs}, nil
}

// Predictive runs a type-ahead query on the storefront channel.
// limit <= 0 leaves the server default.
func (c *Client) Predictive(ctx context.Context, q string, limit int) (PredictiveResponse, error) {
	return c.predictive(ctx, "predictive", "/search/predictive", q, limit)
}

// Marketplace runs a type-ahead query on the marketplace channel, which has
// its own rate limit budget.
func (c *Client) Marketplace(ctx context.Context, q string, limit int) (PredictiveResponse, error) {
	return c.predictive(ctx, "marketplace", "/marketplace/predictive", q, limit)
}

func (c *Client) predictive(ctx context.Context, op, path, q string, limit int) (PredictiveResponse, error) {
	start := time.Now()

	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp PredictiveResponse
	_, err := c.get(ctx, path, params, &resp)
	c.obs.observe(op, start, resp.Result.Total, err)
	if err != nil {
		return PredictiveResponse{}, err
	}
	return resp, nil
}

// Health returns the service health. A degraded service answers 503 with a
// report; that case returns the report and no error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	start := time.Now()

	var h HealthStatus
	status, err := c.get(ctx, "/health", nil, &h)
	if err != nil && status == http.StatusServiceUnavailable && h.Status != "" {
		err = nil
	}
	c.obs.observe("health", start, len(h.Checks), err)
	if err != nil {
		return HealthStatus{}, err
	}
	return h, nil
}

// get sends a GET request and decodes the body into out. On a non-2xx status
// it still decodes into out when possible and returns an *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) (int, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("marketsearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("marketsearch: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("marketsearch: read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		_ = json.Unmarshal(body, out)
		return resp.StatusCode, apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("marketsearch: decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
