// Package postgrest implements db.Store over a PostgREST endpoint, whose
// query-string grammar is the column.operator.value filter language.
package postgrest

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

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/marketsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const (
	restPath = "/rest/v1/"
	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
	// maxErrorBody caps how much of an error body is kept in the error.
	maxErrorBody = 256
)

// Config holds PostgREST connection parameters.
type Config struct {
	URL        string
	APIKey     string
	Schema     string
	HTTPClient *http.Client
}

// Store reads rows through PostgREST.
type Store struct {
	base   *url.URL
	apiKey string
	schema string
	client *http.Client
}

// NewStore creates a PostgREST store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("url scheme must be http or https, got %q", base.Scheme)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Store{base: base, apiKey: cfg.APIKey, schema: cfg.Schema, client: client}, nil
}

// Select runs one filtered read. The context is honored by the HTTP transport.
func (s *Store) Select(ctx context.Context, q *db.Query) ([]db.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(q.Table), http.NoBody)
	if err != nil {
		return nil, &db.Error{Op: db.OpHTTP, Err: err}
	}
	req.URL.RawQuery = encodeQuery(q)
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &db.Error{Op: db.OpHTTP, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &db.Error{
			Op:  db.OpHTTP,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &db.Error{Op: db.OpDecode, Err: err}
	}

	rows := make([]db.Row, len(raw))
	for i, m := range raw {
		rows[i] = db.Row(m)
	}
	return rows, nil
}

// Ping checks that the REST root answers.
func (s *Store) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.base.String()+restPath, http.NoBody)
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() {
	s.client.CloseIdleConnections()
}

// WaitForReady retries Ping with exponential backoff until timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = timeout
	if err := backoff.Retry(func() error { return s.Ping(ctx) }, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("timeout waiting for database: %w", err)
	}
	return nil
}

func (s *Store) endpoint(table string) string {
	return s.base.String() + restPath + url.PathEscape(table)
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if s.schema != "" {
		req.Header.Set("Accept-Profile", s.schema)
	}
}

// encodeQuery renders the query in PostgREST's query-string grammar.
// Or becomes or=(...), each Where clause becomes column=operator.value.
func encodeQuery(q *db.Query) string {
	v := url.Values{}
	v.Set("select", strings.Join(q.Columns, ","))
	if q.Or != nil {
		v.Set("or", "("+q.Or.String()+")")
	}
	for _, c := range q.Where {
		v.Add(c.Column(), string(c.Operator())+"."+c.Arg())
	}
	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		v.Set("order", strings.Join(parts, ","))
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	// PostgREST does not read '+' as a space.
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}
