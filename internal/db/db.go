package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/marketsearch/internal/domain/search/filter"
)

// Store is the relational store facade used by the source repositories.
type Store interface {
	Pinger
	Querier
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Querier executes one filtered, ordered, limited read.
type Querier interface {
	Select(ctx context.Context, q *Query) ([]Row, error)
}

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Query is the input for a filtered read. Or and Where are AND-ed together.
type Query struct {
	Table   string
	Columns []string
	// Or, when set, must not be filter.None; Select refuses to run unfiltered.
	Or      *filter.Expression
	Where   []filter.Clause
	OrderBy []Order
	Limit   int
}

// Validate checks identifiers and bounds before any backend sees the query.
func (q *Query) Validate() error {
	if !filter.IsValidColumn(q.Table) {
		return fmt.Errorf("%w: table %q", ErrInvalidQuery, q.Table)
	}
	if len(q.Columns) == 0 {
		return fmt.Errorf("%w: no columns selected", ErrInvalidQuery)
	}
	for _, c := range q.Columns {
		if !filter.IsValidColumn(c) {
			return fmt.Errorf("%w: column %q", ErrInvalidQuery, c)
		}
	}
	for _, o := range q.OrderBy {
		if !filter.IsValidColumn(o.Column) {
			return fmt.Errorf("%w: order column %q", ErrInvalidQuery, o.Column)
		}
	}
	if q.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	if q.Or != nil && q.Or.IsNone() {
		return ErrNoFilter
	}
	if q.Or == nil && len(q.Where) == 0 {
		return ErrNoFilter
	}
	return nil
}
