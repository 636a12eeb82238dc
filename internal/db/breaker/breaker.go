// Package breaker guards a db.Store with a circuit breaker so a failing
// backend is skipped quickly instead of holding every request to its deadline.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config controls when the breaker trips and how it recovers.
type Config struct {
	Name string
	// ConsecutiveFailures trips the breaker when reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before half-opening.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of trial requests admitted while half-open.
	HalfOpenRequests uint32
}

// StateRecorder receives breaker state transitions (e.g. a metrics gauge).
type StateRecorder interface {
	SetBreakerState(name string, state gobreaker.State)
}

// Store decorates a db.Store; only Select passes through the breaker.
type Store struct {
	next db.Store
	cb   *gobreaker.CircuitBreaker
}

// New wraps next. rec may be nil.
func New(next db.Store, cfg Config, log *zap.Logger, rec StateRecorder) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "store"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if rec != nil {
				rec.SetBreakerState(name, to)
			}
		},
	}
	if rec != nil {
		rec.SetBreakerState(cfg.Name, gobreaker.StateClosed)
	}
	return &Store{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// isSuccessful keeps caller-side cancellations and rejected queries from
// counting against the backend.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, db.ErrNoFilter) ||
		errors.Is(err, db.ErrInvalidQuery)
}

// Select runs the query unless the breaker is open.
func (s *Store) Select(ctx context.Context, q *db.Query) ([]db.Row, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.next.Select(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &db.Error{Op: db.OpBreaker, Err: err}
		}
		return nil, err
	}
	rows, _ := res.([]db.Row)
	return rows, nil
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State { return s.cb.State() }

// Ping bypasses the breaker so health checks see the real backend.
func (s *Store) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close closes the wrapped store.
func (s *Store) Close() { s.next.Close() }

// WaitForReady delegates to the wrapped store.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return s.next.WaitForReady(ctx, timeout)
}
