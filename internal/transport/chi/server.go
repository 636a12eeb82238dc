package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/marketsearch/internal/usecase/health"
	predictiveuc "github.com/kailas-cloud/marketsearch/internal/usecase/predictive"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

// PredictiveSearcher runs predictive search; it never fails.
type PredictiveSearcher interface {
	Search(ctx context.Context, req predictiveuc.Request) predictiveuc.Response
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the predictive search HTTP surface.
type Server struct {
	predictive PredictiveSearcher
	health     HealthChecker
	logger     *zap.Logger
	opsKeys    []string
	trusted    []netip.Prefix
}

// NewServer creates an HTTP API server. opsKeys protect /metrics when non-empty.
func NewServer(predictive PredictiveSearcher, health HealthChecker, logger *zap.Logger, opsKeys []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{predictive: predictive, health: health, logger: logger, opsKeys: opsKeys}
}

// WithTrustedProxies sets the proxies whose X-Forwarded-For / X-Real-IP
// headers name the client. Without any, the peer address is the client.
func (s *Server) WithTrustedProxies(prefixes []netip.Prefix) *Server {
	s.trusted = prefixes
	return s
}

// Handler builds the router with the middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(ClientIPMiddleware(s.trusted))
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/search/predictive", s.SearchPredictive)
	r.Get("/marketplace/predictive", s.MarketplacePredictive)
	r.Get("/health", s.HealthCheck)
	r.With(BearerAuthMiddleware(s.opsKeys)).Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// SearchPredictive handles GET /search/predictive.
func (s *Server) SearchPredictive(w http.ResponseWriter, r *http.Request) {
	s.predictiveFor(ratelimit.ChannelSearch, w, r)
}

// MarketplacePredictive handles GET /marketplace/predictive.
func (s *Server) MarketplacePredictive(w http.ResponseWriter, r *http.Request) {
	s.predictiveFor(ratelimit.ChannelMarketplace, w, r)
}

// predictiveFor always answers 200: every failure is an empty envelope.
func (s *Server) predictiveFor(channel ratelimit.Channel, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := s.predictive.Search(r.Context(), predictiveuc.Request{
		Channel: channel,
		Addr:    clientAddr(r),
		Query:   q.Get("q"),
		Limit:   q.Get("limit"),
	})
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
