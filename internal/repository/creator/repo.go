// Package creator reads creator profiles matching a search term.
package creator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain"
	"github.com/kailas-cloud/marketsearch/internal/domain/creator"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
	"github.com/kailas-cloud/marketsearch/internal/logger"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
)

const (
	table  = "creator_profiles"
	source = metrics.SourceCreators
)

var columns = []string{"id", "handle", "display_name", "bio", "avatar_path", "verification_status", "created_at"}

// querier is the consumer interface for store reads (ISP).
type querier interface {
	Select(ctx context.Context, q *db.Query) ([]db.Row, error)
}

// Repo implements usecase/predictive.CreatorSource.
type Repo struct {
	store  querier
	logger *zap.Logger
}

// New creates a creator repository.
func New(s querier, log *zap.Logger) *Repo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repo{store: s, logger: log}
}

// Search returns up to limit creators whose handle or display name contains
// t, newest first. Store failures are logged and yield an empty result; the
// only error returned is domain.ErrTimeout.
func (r *Repo) Search(ctx context.Context, t term.Term, limit int) ([]creator.Profile, error) {
	start := time.Now()
	defer func() {
		metrics.SourceQueryDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	expr := filter.Build([]filter.Intent{
		{Column: "handle", Operator: filter.ILike, Value: t.String()},
		{Column: "display_name", Operator: filter.ILike, Value: t.String()},
	})
	if expr.IsNone() {
		return nil, nil
	}

	if ctx.Err() != nil {
		return nil, r.timeout()
	}
	rows, err := r.store.Select(ctx, &db.Query{
		Table:   table,
		Columns: columns,
		Or:      &expr,
		OrderBy: []db.Order{{Column: "created_at", Desc: true}},
		Limit:   limit,
	})
	if ctx.Err() != nil {
		return nil, r.timeout()
	}
	if err != nil {
		if !errors.Is(err, db.ErrNoFilter) {
			metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeStore).Inc()
			r.logger.Error("creator search query failed", logger.SafeError(err))
		}
		return nil, nil
	}

	out := make([]creator.Profile, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		p, ok := decode(row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, p)
	}
	metrics.Dropped(metrics.DropMalformedRow, dropped)
	return out, nil
}

func (r *Repo) timeout() error {
	metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeTimeout).Inc()
	return fmt.Errorf("%s: %w", table, domain.ErrTimeout)
}

func decode(row db.Row) (creator.Profile, bool) {
	var p creator.Profile
	fields := []struct {
		col string
		dst *string
	}{
		{"id", &p.ID},
		{"handle", &p.Handle},
		{"display_name", &p.DisplayName},
		{"bio", &p.Bio},
		{"avatar_path", &p.AvatarPath},
		{"verification_status", &p.VerificationStatus},
	}
	for _, f := range fields {
		v, err := row.String(f.col)
		if err != nil {
			return creator.Profile{}, false
		}
		*f.dst = v
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return creator.Profile{}, false
	}
	p.CreatedAt = createdAt

	if p.ID == "" || p.Handle == "" {
		return creator.Profile{}, false
	}
	return p, true
}
