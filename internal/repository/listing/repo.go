// Package listing reads active marketplace listings matching a search term,
// with their thumbnail photos and creator summaries.
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
	"github.com/kailas-cloud/marketsearch/internal/logger"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
)

// Table and column names.
const (
	tableListings = "listings"
	tablePhotos   = "listing_photos"
	tableCreators = "creator_profiles"

	source = metrics.SourceListings
)

// DefaultPhotoCap bounds the row count of a single photo lookup.
const DefaultPhotoCap = 200

var (
	listingColumns = []string{"id", "title", "description", "price_cents", "currency", "creator_id", "created_at"}
	photoColumns   = []string{"listing_id", "storage_path", "alt_text", "width", "height", "position"}
	creatorColumns = []string{"id", "handle", "display_name"}
)

// querier is the consumer interface for store reads (ISP).
type querier interface {
	Select(ctx context.Context, q *db.Query) ([]db.Row, error)
}

// Repo implements usecase/predictive.ListingSource.
type Repo struct {
	store    querier
	logger   *zap.Logger
	photoCap int
}

// New creates a listing repository. photoCap <= 0 selects DefaultPhotoCap.
func New(s querier, log *zap.Logger, photoCap int) *Repo {
	if log == nil {
		log = zap.NewNop()
	}
	if photoCap <= 0 {
		photoCap = DefaultPhotoCap
	}
	return &Repo{store: s, logger: log, photoCap: photoCap}
}

// Search returns up to limit active listings whose title or description
// contains t, newest first. Store failures are logged and yield an empty
// result; the only error returned is domain.ErrTimeout.
func (r *Repo) Search(ctx context.Context, t term.Term, limit int) ([]listing.Listing, error) {
	start := time.Now()
	defer func() {
		metrics.SourceQueryDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	expr := filter.Build([]filter.Intent{
		{Column: "title", Operator: filter.ILike, Value: t.String()},
		{Column: "description", Operator: filter.ILike, Value: t.String()},
	})
	if expr.IsNone() {
		return nil, nil
	}
	active, _ := filter.NewClause(filter.Intent{Column: "status", Operator: filter.Eq, Value: listing.StatusActive})

	rows, _, err := r.selectRows(ctx, &db.Query{
		Table:   tableListings,
		Columns: listingColumns,
		Or:      &expr,
		Where:   []filter.Clause{active},
		OrderBy: []db.Order{{Column: "created_at", Desc: true}},
		Limit:   limit,
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	items := decodeListings(rows)
	if len(items) == 0 {
		return nil, nil
	}

	if err := r.attachThumbnails(ctx, items); err != nil {
		return nil, err
	}
	if err := r.attachCreators(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// selectRows runs one read with advisory cancellation: a context that is
// done before the call or by the time it returns yields domain.ErrTimeout.
// Other store errors are logged and reported as ok=false with a nil error.
func (r *Repo) selectRows(ctx context.Context, q *db.Query) ([]db.Row, bool, error) {
	if ctx.Err() != nil {
		metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeTimeout).Inc()
		return nil, false, fmt.Errorf("%s: %w", q.Table, domain.ErrTimeout)
	}
	rows, err := r.store.Select(ctx, q)
	if ctx.Err() != nil {
		metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeTimeout).Inc()
		return nil, false, fmt.Errorf("%s: %w", q.Table, domain.ErrTimeout)
	}
	if err != nil {
		if errors.Is(err, db.ErrNoFilter) {
			return nil, false, nil
		}
		metrics.SourceErrorsTotal.WithLabelValues(source, metrics.ErrorTypeStore).Inc()
		r.logger.Error("listing search query failed",
			zap.String("table", q.Table),
			logger.SafeError(err),
		)
		return nil, false, nil
	}
	return rows, true, nil
}

// attachThumbnails sets each listing's lowest-position reference photo.
// Rows are ordered by position first, so a page of photoCap rows holds every
// listing's first photo before anyone's second. When a full page still leaves
// listings uncovered (ties at the cutoff, or sparse positions) the lookup is
// repeated for just those listings.
func (r *Repo) attachThumbnails(ctx context.Context, items []listing.Listing) error {
	ids := validIDs(items, func(l listing.Listing) string { return l.ID })
	ref, _ := filter.NewClause(filter.Intent{Column: "photo_type", Operator: filter.Eq, Value: listing.PhotoTypeReference})

	first := make(map[string]*listing.Photo, len(ids))
	for pending := ids; len(pending) > 0; {
		in, ok := filter.NewIn("listing_id", pending)
		if !ok {
			break
		}
		rows, _, err := r.selectRows(ctx, &db.Query{
			Table:   tablePhotos,
			Columns: photoColumns,
			Where:   []filter.Clause{in, ref},
			OrderBy: []db.Order{{Column: "position"}, {Column: "listing_id"}},
			Limit:   r.photoCap,
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			p, ok := decodePhoto(row)
			if !ok {
				metrics.Dropped(metrics.DropMalformedRow, 1)
				continue
			}
			if _, seen := first[p.ListingID]; !seen {
				first[p.ListingID] = p
			}
		}
		if len(rows) < r.photoCap {
			break
		}
		rest := uncovered(pending, first)
		if len(rest) == len(pending) {
			break
		}
		pending = rest
	}
	for i := range items {
		items[i].Thumbnail = first[items[i].ID]
	}
	return nil
}

func uncovered(ids []string, first map[string]*listing.Photo) []string {
	var out []string
	for _, id := range ids {
		if _, ok := first[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (r *Repo) attachCreators(ctx context.Context, items []listing.Listing) error {
	ids := validIDs(items, func(l listing.Listing) string { return l.CreatorID })
	in, ok := filter.NewIn("id", ids)
	if !ok {
		return nil
	}

	rows, ok, err := r.selectRows(ctx, &db.Query{
		Table:   tableCreators,
		Columns: creatorColumns,
		Where:   []filter.Clause{in},
		Limit:   len(ids),
	})
	if err != nil {
		return err
	}
	// After a failed lookup products are kept without creators and nothing
	// is counted as missing.
	if !ok {
		return nil
	}

	byID := make(map[string]*listing.CreatorSummary, len(rows))
	for _, row := range rows {
		c, ok := decodeCreator(row)
		if !ok {
			metrics.Dropped(metrics.DropMalformedRow, 1)
			continue
		}
		byID[c.ID] = c
	}

	missing := 0
	for i := range items {
		if items[i].CreatorID == "" {
			continue
		}
		if c, ok := byID[items[i].CreatorID]; ok {
			items[i].Creator = c
			continue
		}
		if isUUID(items[i].CreatorID) {
			missing++
		}
	}
	if missing > 0 {
		metrics.Dropped(metrics.DropCreatorMissing, missing)
		r.logger.Warn("listings reference missing creators",
			zap.Int("count", missing),
			zap.Error(domain.ErrInconsistent),
		)
	}
	return nil
}

// validIDs returns the distinct, syntactically valid UUIDs picked from items.
// Invalid non-empty IDs are counted and dropped.
func validIDs(items []listing.Listing, pick func(listing.Listing) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	invalid := 0
	for _, it := range items {
		id := pick(it)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if !isUUID(id) {
			invalid++
			continue
		}
		out = append(out, id)
	}
	metrics.Dropped(metrics.DropInvalidUUID, invalid)
	return out
}

// isUUID accepts only the canonical 36-character hyphenated form.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
