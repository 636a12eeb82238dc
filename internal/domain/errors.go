package domain

import (
	"errors"
	"fmt"
)

// Failure kinds of the predictive search pipeline. None of them reach the
// caller of the aggregator; they classify what was absorbed.
var (
	// ErrInvalidInput signals a search term that cannot be queried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTermTooShort signals a term shorter than the minimum length.
	ErrTermTooShort = fmt.Errorf("%w: term too short", ErrInvalidInput)
	// ErrUnsafeTerm signals a term containing characters outside the allow-list.
	ErrUnsafeTerm = fmt.Errorf("%w: term contains unsafe characters", ErrInvalidInput)
	// ErrRateLimited signals a caller over its request budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStore signals a failed read against the relational store.
	ErrStore = errors.New("store error")
	// ErrTimeout signals a source query that outlived the shared deadline.
	ErrTimeout = errors.New("timeout")
	// ErrInconsistent signals rows referencing records that do not exist.
	ErrInconsistent = errors.New("partial data inconsistency")
)
