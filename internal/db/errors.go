package db

import (
	"errors"

	"github.com/kailas-cloud/marketsearch/internal/domain"
)

// Sentinel errors for database operations.
var (
	ErrNoFilter     = errors.New("db: refusing to query without a filter")
	ErrInvalidQuery = errors.New("db: invalid query")
)

// Op constants name the failing operation for error context.
const (
	OpSelect  = "SELECT"
	OpHTTP    = "HTTP"
	OpDecode  = "DECODE"
	OpPing    = "PING"
	OpConnect = "CONNECT"
	OpWindow  = "WINDOW"
	OpZRem    = "ZREM"
	OpBreaker = "BREAKER"
)

// Error wraps an underlying error with the operation name for diagnostics.
// Every Error classifies as domain.ErrStore.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is reports domain.ErrStore as a match so callers can classify store failures.
func (e *Error) Is(target error) bool { return target == domain.ErrStore }
