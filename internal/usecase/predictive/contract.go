package predictive

import (
	"context"

	"github.com/kailas-cloud/marketsearch/internal/domain/creator"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/domain/search/term"
	"github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
)

// Gate admits or denies a caller on a channel.
type Gate interface {
	Check(ctx context.Context, channel ratelimit.Channel, addr string) bool
}

// ListingSource finds active listings matching a term.
// Implementations absorb store errors; the only error is domain.ErrTimeout.
type ListingSource interface {
	Search(ctx context.Context, t term.Term, limit int) ([]listing.Listing, error)
}

// CreatorSource finds creator profiles matching a term.
// Implementations absorb store errors; the only error is domain.ErrTimeout.
type CreatorSource interface {
	Search(ctx context.Context, t term.Term, limit int) ([]creator.Profile, error)
}

// ImageResolver maps a storage path to a public URL, or "" when it cannot.
type ImageResolver interface {
	PublicURL(path string) string
}
