package listing

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
)

// mockStore counts queries and dispatches by table.
type mockStore struct {
	mu      sync.Mutex
	queries []*db.Query
	byTable map[string]func(ctx context.Context, q *db.Query) ([]db.Row, error)
}

func (m *mockStore) Select(ctx context.Context, q *db.Query) ([]db.Row, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	fn := m.byTable[q.Table]
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return []db.Row{}, nil
}

func (m *mockStore) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.queries {
		if q.Table == table {
			n++
		}
	}
	return n
}

func (m *mockStore) query(table string) *db.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.Table == table {
			return q
		}
	}
	return nil
}

func (m *mockStore) queriesFor(table string) []*db.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.Query
	for _, q := range m.queries {
		if q.Table == table {
			out = append(out, q)
		}
	}
	return out
}

func rowsOf(rows ...db.Row) func(context.Context, *db.Query) ([]db.Row, error) {
	return func(context.Context, *db.Query) ([]db.Row, error) { return rows, nil }
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{byTable: map[string]func(context.Context, *db.Query) ([]db.Row, error){}}
	return New(ms, nil, 0), ms
}

func mustTerm(t *testing.T, s string) term.Term {
	t.Helper()
	tm, err := term.Parse(s)
	if err != nil {
		t.Fatalf("term.Parse(%q): %v", s, err)
	}
	return tm
}

const (
	listing1 = "0b9a3c52-7f0e-4a53-9a55-2f3c8d1e0a01"
	listing2 = "0b9a3c52-7f0e-4a53-9a55-2f3c8d1e0a02"
	creator1 = "5d1f7e2a-1111-4c2b-8f00-aaaaaaaaaaa1"
	creator2 = "5d1f7e2a-1111-4c2b-8f00-aaaaaaaaaaa2"
)

func listingRow(id, title, creatorID string, cents int64) db.Row {
	return db.Row{
		"id":          id,
		"title":       title,
		"description": "desc",
		"price_cents": cents,
		"currency":    "USD",
		"creator_id":  creatorID,
		"created_at":  "2026-03-01T12:00:00Z",
	}
}

func photoRow(listingID, path string, position int64) db.Row {
	return db.Row{
		"listing_id":   listingID,
		"storage_path": path,
		"alt_text":     nil,
		"width":        int64(800),
		"height":       int64(600),
		"position":     position,
	}
}
