package predictive

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain"
	"github.com/kailas-cloud/marketsearch/internal/domain/creator"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/result"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

func assertEmpty(t *testing.T, r Response) {
	t.Helper()
	if r.Result.Total() != 0 {
		t.Errorf("total = %d, want 0", r.Result.Total())
	}
	for _, c := range result.Categories {
		if n := len(r.Result.Items(c)); n != 0 {
			t.Errorf("%s has %d items", c, n)
		}
	}
}

func TestSearch_VintageJacket(t *testing.T) {
	f := newFixture(t, time.Second)
	f.store.rows["listings"] = []db.Row{
		listingRow(listingA, "Vintage Jacket", 1250),
		listingRow(listingB, "Vintage Denim Jacket", 4000),
	}

	resp := f.svc.Search(context.Background(), Request{
		Channel: ratelimit.ChannelSearch, Addr: "1.2.3.4", Query: "  vintage jacket ", Limit: "10",
	})

	if resp.Term != "vintage jacket" {
		t.Errorf("term = %q", resp.Term)
	}
	if resp.Result.Total() != 2 {
		t.Fatalf("total = %d, want 2", resp.Result.Total())
	}
	if len(resp.Result.Products()) != 2 || len(resp.Result.Creators()) != 0 {
		t.Errorf("products=%d creators=%d", len(resp.Result.Products()), len(resp.Result.Creators()))
	}
	p := resp.Result.Products()[0]
	if p.Price != (result.Money{Amount: "12.50", CurrencyCode: "USD"}) {
		t.Errorf("price = %+v", p.Price)
	}
}

func TestSearch_InvalidTermsNeverQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"sql injection", "'; DROP TABLE listings; --"},
		{"too short", "a"},
		{"empty", ""},
		{"only control bytes", "\x00\x01\x7f"},
		{"wildcards", "50%"},
		{"filter grammar", "x),id.neq.(y"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, time.Second)
			f.store.rows["listings"] = []db.Row{listingRow(listingA, "anything", 100)}

			resp := f.svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: tc.query})

			assertEmpty(t, resp)
			if f.store.calls() != 0 {
				t.Errorf("store called %d times", f.store.calls())
			}
		})
	}
}

func TestSearch_RateLimitedNeverQueries(t *testing.T) {
	f := newFixture(t, time.Second)
	f.gate.allow = false
	before := testutil.ToFloat64(metrics.PredictiveRequestsTotal.WithLabelValues("marketplace", OutcomeRateLimited))

	resp := f.svc.Search(context.Background(), Request{Channel: ratelimit.ChannelMarketplace, Query: "jacket"})

	assertEmpty(t, resp)
	if f.gate.calls != 1 || f.store.calls() != 0 {
		t.Errorf("gate calls=%d store calls=%d", f.gate.calls, f.store.calls())
	}
	after := testutil.ToFloat64(metrics.PredictiveRequestsTotal.WithLabelValues("marketplace", OutcomeRateLimited))
	if after-before != 1 {
		t.Errorf("rate_limited outcome delta = %f", after-before)
	}
}

func TestSearch_DropsUnsafeCreatorHandle(t *testing.T) {
	f := newFixture(t, time.Second)
	f.store.rows["creator_profiles"] = []db.Row{
		creatorRow("c1", "../etc/passwd"),
		creatorRow("c2", "vintage_vera"),
	}
	before := testutil.ToFloat64(metrics.DroppedTotal.WithLabelValues(metrics.DropInvalidHandle))

	resp := f.svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: "vintage"})

	if resp.Result.Total() != 1 {
		t.Fatalf("total = %d, want 1", resp.Result.Total())
	}
	c := resp.Result.Creators()[0]
	if c.ID != "c2" || c.DisplayName != "vintage_vera" {
		t.Errorf("creator = %+v", c)
	}
	after := testutil.ToFloat64(metrics.DroppedTotal.WithLabelValues(metrics.DropInvalidHandle))
	if after-before != 1 {
		t.Errorf("invalid_handle delta = %f, want 1", after-before)
	}
}

func TestSearch_NeverResolvingStoreHitsDeadline(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond)
	f.store.block = make(chan struct{})
	t.Cleanup(func() { close(f.store.block) })

	start := time.Now()
	resp := f.svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: "jacket"})
	elapsed := time.Since(start)

	assertEmpty(t, resp)
	if elapsed > time.Second {
		t.Errorf("returned after %s, deadline was 100ms", elapsed)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	f := newFixture(t, time.Second)
	f.store.rows["listings"] = []db.Row{
		listingRow(listingA, "Jacket", 100),
		listingRow(listingB, "Jacket Two", 200),
	}
	f.store.rows["creator_profiles"] = []db.Row{creatorRow("c1", "jacketeer")}

	req := Request{Channel: ratelimit.ChannelSearch, Query: "jacket"}
	a := f.svc.Search(context.Background(), req)
	b := f.svc.Search(context.Background(), req)

	if a.Result.Total() != b.Result.Total() || a.Result.Total() != 3 {
		t.Errorf("totals %d vs %d", a.Result.Total(), b.Result.Total())
	}
	if !reflect.DeepEqual(productIDs(a), productIDs(b)) {
		t.Errorf("product IDs differ: %v vs %v", productIDs(a), productIDs(b))
	}
	if !reflect.DeepEqual(a.Result.Creators(), b.Result.Creators()) {
		t.Error("creators differ")
	}
}

func TestSearch_LimitBoundaries(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"0", term.MinLimit},
		{"999", term.MaxLimit},
		{"abc", term.DefaultLimit},
		{"", term.DefaultLimit},
		{"-5", term.DefaultLimit},
		{"25", 25},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			f := newFixture(t, time.Second)
			f.svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: "jacket", Limit: tc.raw})

			for _, table := range []string{"listings", "creator_profiles"} {
				q := f.store.first(table)
				if q == nil {
					t.Fatalf("no %s query", table)
				}
				if q.Limit != tc.want {
					t.Errorf("%s limit = %d, want %d", table, q.Limit, tc.want)
				}
			}
		})
	}
}

// --- Source-level fakes for the fan-out state machine ---

type stubListings struct {
	items []listing.Listing
	err   error
}

func (s stubListings) Search(context.Context, term.Term, int) ([]listing.Listing, error) {
	return s.items, s.err
}

type stubCreators struct {
	items []creator.Profile
	err   error
}

func (s stubCreators) Search(context.Context, term.Term, int) ([]creator.Profile, error) {
	return s.items, s.err
}

type stubResolver struct{}

func (stubResolver) PublicURL(p string) string { return "https://img/" + p }

func TestSearch_SourceTimeoutDiscardsPartialResults(t *testing.T) {
	svc := New(
		&mockGate{allow: true},
		stubListings{items: []listing.Listing{{ID: "l1", Title: "Jacket"}}},
		stubCreators{err: domain.ErrTimeout},
		stubResolver{}, stubResolver{}, nil, Config{Timeout: time.Second},
	)

	resp := svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: "jacket"})
	assertEmpty(t, resp)
}

func TestSearch_CallerCanceled(t *testing.T) {
	svc := New(
		&mockGate{allow: true},
		stubListings{items: []listing.Listing{{ID: "l1", Title: "Jacket"}}},
		stubCreators{},
		stubResolver{}, stubResolver{}, nil, Config{},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either branch may win the race with an already-done context; both are
	// well-formed responses.
	resp := svc.Search(ctx, Request{Channel: ratelimit.ChannelSearch, Query: "jacket"})
	if resp.Result.Total() != len(resp.Result.Products())+len(resp.Result.Creators()) {
		t.Error("total must equal the sum of buckets")
	}
}

func TestFanOut_UnexpectedErrorEmptiesOnlyThatCategory(t *testing.T) {
	counter := metrics.SourceErrorsTotal.WithLabelValues(metrics.SourceListings, metrics.ErrorTypeUnexpected)
	before := testutil.ToFloat64(counter)

	svc := New(
		&mockGate{allow: true},
		stubListings{err: errors.New("malformed\nresponse")},
		stubCreators{items: []creator.Profile{{ID: "c1", Handle: "vera", DisplayName: "Vera"}}},
		stubResolver{}, stubResolver{}, nil, Config{},
	)
	resp := svc.Search(context.Background(), Request{Channel: ratelimit.ChannelSearch, Query: "jacket"})

	if got := len(resp.Result.Creators()); got != 1 {
		t.Fatalf("creators = %d, want 1", got)
	}
	if got := len(resp.Result.Products()); got != 0 {
		t.Errorf("products = %d, want 0", got)
	}
	if resp.Result.Total() != 1 {
		t.Errorf("total = %d, want 1", resp.Result.Total())
	}
	if d := testutil.ToFloat64(counter) - before; d != 1 {
		t.Errorf("unexpected source errors delta = %v, want 1", d)
	}
}
