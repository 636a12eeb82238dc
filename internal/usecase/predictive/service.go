// Package predictive runs type-ahead search: it gates the caller, validates
// the term, queries listings and creators concurrently under one deadline
// and merges the results into category buckets.
package predictive

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/marketsearch/internal/domain"
	"github.com/kailas-cloud/marketsearch/internal/domain/creator"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/result"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
	logpkg "github.com/kailas-cloud/marketsearch/internal/logger"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

// DefaultTimeout is the shared deadline for both source queries.
const DefaultTimeout = 5 * time.Second

// Outcome labels for the request counter.
const (
	OutcomeOK           = "ok"
	OutcomeRateLimited  = "rate_limited"
	OutcomeInvalidInput = "invalid_input"
	OutcomeTimeout      = "timeout"
)

// Request is one predictive search call as received from the transport.
type Request struct {
	Channel ratelimit.Channel
	Addr    string
	// Query and Limit are raw, unvalidated query parameters.
	Query string
	Limit string
}

// Response carries the normalized term and the merged result. Every
// failure yields the same shape with all categories empty.
type Response struct {
	Term   string
	Result result.Predictive
}

// Config tunes the service.
type Config struct {
	Timeout time.Duration
}

// Service orchestrates predictive search.
type Service struct {
	gate     Gate
	listings ListingSource
	creators CreatorSource
	images   ImageResolver
	avatars  ImageResolver
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a predictive search service. images resolves listing photos,
// avatars resolves creator profile images.
func New(
	gate Gate, listings ListingSource, creators CreatorSource,
	images, avatars ImageResolver, log *zap.Logger, cfg Config,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		gate:     gate,
		listings: listings,
		creators: creators,
		images:   images,
		avatars:  avatars,
		logger:   log,
		timeout:  timeout,
	}
}

// Search never fails: rate limiting, invalid terms, timeouts and store
// errors all produce an empty result.
func (s *Service) Search(ctx context.Context, req Request) Response {
	start := time.Now()
	normalized := term.Normalize(req.Query)
	resp := Response{Term: normalized, Result: result.Empty()}

	outcome := s.search(ctx, req, normalized, &resp)

	metrics.PredictiveRequestsTotal.WithLabelValues(string(req.Channel), outcome).Inc()
	metrics.PredictiveDuration.WithLabelValues(string(req.Channel)).Observe(time.Since(start).Seconds())
	return resp
}

func (s *Service) search(ctx context.Context, req Request, normalized string, resp *Response) string {
	log := logpkg.FromContext(ctx, s.logger)

	if !s.gate.Check(ctx, req.Channel, req.Addr) {
		log.Debug("predictive search rate limited",
			zap.String("channel", string(req.Channel)),
			zap.Error(domain.ErrRateLimited),
		)
		return OutcomeRateLimited
	}

	t, err := term.New(normalized)
	if err != nil {
		log.Debug("predictive search rejected term", zap.Error(err))
		return OutcomeInvalidInput
	}
	limit := term.ParseLimit(req.Limit)

	listings, creators, err := s.fanOut(ctx, t, limit)
	if err != nil {
		log.Warn("predictive search timed out",
			zap.String("channel", string(req.Channel)),
			zap.Duration("timeout", s.timeout),
		)
		return OutcomeTimeout
	}

	resp.Result.Merge(s.creatorItems(creators), s.productItems(listings))
	return OutcomeOK
}

// fanOut queries both sources concurrently. It returns domain.ErrTimeout when
// the deadline fires first or a source reports it; partial results are never
// returned. Any other source error empties that source's category only. A
// source still running after the deadline is left to finish on its own and
// its result is discarded.
func (s *Service) fanOut(
	ctx context.Context, t term.Term, limit int,
) ([]listing.Listing, []creator.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		listings []listing.Listing
		creators []creator.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ls, err := s.listings.Search(gctx, t, limit)
		if err = s.absorb(gctx, metrics.SourceListings, err); err == nil {
			listings = ls
		}
		return err
	})
	g.Go(func() error {
		cs, err := s.creators.Search(gctx, t, limit)
		if err = s.absorb(gctx, metrics.SourceCreators, err); err == nil {
			creators = cs
		}
		return err
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-ctx.Done():
		return nil, nil, domain.ErrTimeout
	case err := <-done:
		if err != nil {
			return nil, nil, domain.ErrTimeout
		}
		return listings, creators, nil
	}
}

// absorb passes domain.ErrTimeout through and swallows every other source
// error, which leaves that source's slot empty.
func (s *Service) absorb(ctx context.Context, source string, err error) error {
	if err == nil || errors.Is(err, domain.ErrTimeout) {
		return err
	}
	metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeUnexpected).Inc()
	logpkg.FromContext(ctx, s.logger).Error("predictive source failed",
		zap.String("source", source),
		logpkg.SafeError(err),
	)
	return nil
}
