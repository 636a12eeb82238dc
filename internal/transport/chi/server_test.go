package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/kailas-cloud/marketsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/marketsearch/internal/usecase/health"
	predictiveuc "github.com/kailas-cloud/marketsearch/internal/usecase/predictive"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

// --- Mocks ---

type mockSearcher struct {
	last predictiveuc.Request
	resp predictiveuc.Response
	// panics makes Search panic to exercise the recoverer.
	panics bool
}

func (m *mockSearcher) Search(_ context.Context, req predictiveuc.Request) predictiveuc.Response {
	if m.panics {
		panic("boom")
	}
	m.last = req
	if m.resp.Term == "" {
		m.resp.Term = req.Query
	}
	return m.resp
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestServer(s *mockSearcher, opsKeys ...string) http.Handler {
	h := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK}}}
	return NewServer(s, h, nil, opsKeys).Handler()
}

// --- Tests ---

func TestPredictive_RoutesToChannel(t *testing.T) {
	tests := []struct {
		path    string
		channel ratelimit.Channel
	}{
		{"/search/predictive", ratelimit.ChannelSearch},
		{"/marketplace/predictive", ratelimit.ChannelMarketplace},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			s := &mockSearcher{}
			req := httptest.NewRequest("GET", tc.path+"?q=vintage+jacket&limit=5", http.NoBody)
			req.RemoteAddr = "203.0.113.9:51234"
			rr := httptest.NewRecorder()
			newTestServer(s).ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			want := predictiveuc.Request{Channel: tc.channel, Addr: "203.0.113.9", Query: "vintage jacket", Limit: "5"}
			if s.last != want {
				t.Errorf("request = %+v, want %+v", s.last, want)
			}
		})
	}
}

func TestPredictive_ForwardedAddr(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "forged xff from untrusted peer ignored",
			trusted: proxies,
			remote:  "203.0.113.9:51234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4", "X-Real-IP": "198.51.100.5"},
			want:    "203.0.113.9",
		},
		{
			name:    "no trusted proxies configured",
			remote:  "10.0.0.7:51234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4"},
			want:    "10.0.0.7",
		},
		{
			name:    "xff from trusted proxy honored",
			trusted: proxies,
			remote:  "10.0.0.7:51234",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4"},
			want:    "198.51.100.4",
		},
		{
			name:    "client-supplied prefix before trusted hops ignored",
			trusted: proxies,
			remote:  "10.0.0.7:51234",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.4, 10.0.0.2"},
			want:    "198.51.100.4",
		},
		{
			name:    "x-real-ip from trusted proxy",
			trusted: proxies,
			remote:  "10.0.0.7:51234",
			headers: map[string]string{"X-Real-IP": "198.51.100.6"},
			want:    "198.51.100.6",
		},
		{
			name:    "garbage xff from trusted proxy",
			trusted: proxies,
			remote:  "10.0.0.7:51234",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:    "10.0.0.7",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &mockSearcher{}
			h := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
			srv := NewServer(s, h, nil, nil).WithTrustedProxies(tc.trusted).Handler()

			req := httptest.NewRequest("GET", "/search/predictive?q=hat", http.NoBody)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			srv.ServeHTTP(rr, req)

			if s.last.Addr != tc.want {
				t.Errorf("addr = %q, want %q", s.last.Addr, tc.want)
			}
		})
	}
}

func TestPredictive_EmptyEnvelope(t *testing.T) {
	s := &mockSearcher{resp: predictiveuc.Response{Term: "a", Result: result.Empty()}}
	req := httptest.NewRequest("GET", "/search/predictive?q=a", http.NoBody)
	rr := httptest.NewRecorder()
	newTestServer(s).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	want := `{"term":"a","result":{"total":0,"items":{"creators":[],"products":[],"articles":[],"collections":[],"pages":[],"queries":[]}}}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestPredictive_PopulatedEnvelope(t *testing.T) {
	var res result.Predictive
	res.Merge(
		[]result.Creator{{ID: "c1", Handle: "vera", DisplayName: "Vera"}},
		[]result.Product{{
			ID: "l1", Title: "Vintage Jacket", Handle: "l1",
			Creator: &result.CreatorRef{ID: "c1", DisplayName: "Vera", Handle: "vera"},
			Image:   &result.Image{URL: "https://cdn/x.jpg", AltText: "front", Width: 800, Height: 600},
			Price:   result.Money{Amount: "12.50", CurrencyCode: "USD"},
		}},
	)
	s := &mockSearcher{resp: predictiveuc.Response{Term: "vintage", Result: res}}
	req := httptest.NewRequest("GET", "/search/predictive?q=vintage", http.NoBody)
	rr := httptest.NewRecorder()
	newTestServer(s).ServeHTTP(rr, req)

	var body struct {
		Result struct {
			Total int `json:"total"`
			Items struct {
				Creators []map[string]any `json:"creators"`
				Products []struct {
					Creator map[string]any `json:"creator"`
					Variant struct {
						Image map[string]any    `json:"image"`
						Price map[string]string `json:"price"`
					} `json:"variant"`
				} `json:"products"`
			} `json:"items"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result.Total != 2 {
		t.Errorf("total = %d", body.Result.Total)
	}
	if _, ok := body.Result.Items.Creators[0]["bio"]; ok {
		t.Error("empty bio should be omitted")
	}
	p := body.Result.Items.Products[0]
	if p.Variant.Price["amount"] != "12.50" || p.Variant.Price["currencyCode"] != "USD" {
		t.Errorf("price = %v", p.Variant.Price)
	}
	if p.Variant.Image["altText"] != "front" || p.Creator["displayName"] != "Vera" {
		t.Errorf("product = %+v", p)
	}
}

func TestPanicRecovered(t *testing.T) {
	req := httptest.NewRequest("GET", "/search/predictive?q=x", http.NoBody)
	rr := httptest.NewRecorder()
	newTestServer(&mockSearcher{panics: true}).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil || errResp.Code != "internal_error" {
		t.Errorf("body = %+v, err = %v", errResp, err)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		want   int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK}}, http.StatusOK},
		{"degraded", healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckError}}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewServer(&mockSearcher{}, &mockHealth{report: tc.report}, nil, nil).Handler()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			var body HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != string(tc.report.Status) || body.Checks["store"] != string(tc.report.Checks["store"]) {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestMetrics_OpsKeys(t *testing.T) {
	h := newTestServer(&mockSearcher{}, "ops-secret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	req.Header.Set("Authorization", "Bearer ops-secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("with key: %d", rr.Code)
	}

	// Search stays public.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/search/predictive?q=hat", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("search: %d", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestServer(&mockSearcher{}).ServeHTTP(rr, httptest.NewRequest("GET", "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}
