package predictive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/marketsearch/internal/db"
	repocreator "github.com/kailas-cloud/marketsearch/internal/repository/creator"
	repolisting "github.com/kailas-cloud/marketsearch/internal/repository/listing"
	"github.com/kailas-cloud/marketsearch/internal/repository/media"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

// --- Mocks ---

type mockGate struct {
	allow bool
	calls int
}

func (g *mockGate) Check(context.Context, ratelimit.Channel, string) bool {
	g.calls++
	return g.allow
}

// countingStore is a query-counting stub store dispatching by table.
type countingStore struct {
	mu      sync.Mutex
	queries []*db.Query
	rows    map[string][]db.Row
	block   chan struct{}
}

func (s *countingStore) Select(_ context.Context, q *db.Query) ([]db.Row, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	rows := s.rows[q.Table]
	block := s.block
	s.mu.Unlock()
	if block != nil {
		// Ignores the context, like a store without real cancellation.
		<-block
	}
	return rows, nil
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *countingStore) first(table string) *db.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.queries {
		if q.Table == table {
			return q
		}
	}
	return nil
}

type fixture struct {
	svc   *Service
	store *countingStore
	gate  *mockGate
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	store := &countingStore{rows: map[string][]db.Row{}}
	gate := &mockGate{allow: true}
	svc := New(
		gate,
		repolisting.New(store, nil, 0),
		repocreator.New(store, nil),
		media.NewResolver("https://cdn.example.com", "listing-photos"),
		media.NewResolver("https://cdn.example.com", "avatars"),
		nil,
		Config{Timeout: timeout},
	)
	return &fixture{svc: svc, store: store, gate: gate}
}

const (
	listingA = "8c1e6a4e-4b7a-4f0e-9d52-000000000001"
	listingB = "8c1e6a4e-4b7a-4f0e-9d52-000000000002"
	creatorA = "2f9b7c11-0c3d-4e8a-b1a2-00000000000a"
)

func listingRow(id, title string, cents int64) db.Row {
	return db.Row{
		"id":          id,
		"title":       title,
		"description": "",
		"price_cents": cents,
		"currency":    "usd",
		"creator_id":  creatorA,
		"created_at":  "2026-02-01T00:00:00Z",
	}
}

func creatorRow(id, h string) db.Row {
	return db.Row{"id": id, "handle": h, "display_name": "", "created_at": "2026-02-01T00:00:00Z"}
}

func productIDs(r Response) []string {
	var ids []string
	for _, p := range r.Result.Products() {
		ids = append(ids, p.ID)
	}
	return ids
}
