package listing

import (
	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/domain/listing"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
)

// decodeListings converts rows, dropping rows without an id or title or
// with a non-integer price.
func decodeListings(rows []db.Row) []listing.Listing {
	out := make([]listing.Listing, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		l, ok := decodeListing(row)
		if !ok {
			dropped++
			continue
		}
		out = append(out, l)
	}
	metrics.Dropped(metrics.DropMalformedRow, dropped)
	return out
}

func decodeListing(row db.Row) (listing.Listing, bool) {
	id, err1 := row.String("id")
	title, err2 := row.String("title")
	desc, err3 := row.String("description")
	cents, err4 := row.Int64("price_cents")
	currency, err5 := row.String("currency")
	creatorID, err6 := row.String("creator_id")
	createdAt, err7 := row.Time("created_at")
	for _, err := range []error{err1, err2, err3, err4, err5, err6, err7} {
		if err != nil {
			return listing.Listing{}, false
		}
	}
	if id == "" || title == "" {
		return listing.Listing{}, false
	}
	return listing.Listing{
		ID:          id,
		Title:       title,
		Description: desc,
		PriceCents:  cents,
		Currency:    currency,
		CreatorID:   creatorID,
		CreatedAt:   createdAt,
	}, true
}

func decodePhoto(row db.Row) (*listing.Photo, bool) {
	listingID, err1 := row.String("listing_id")
	path, err2 := row.String("storage_path")
	alt, err3 := row.String("alt_text")
	w, err4 := row.Int64("width")
	h, err5 := row.Int64("height")
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return nil, false
		}
	}
	if listingID == "" || path == "" {
		return nil, false
	}
	return &listing.Photo{
		ListingID:   listingID,
		StoragePath: path,
		AltText:     alt,
		Width:       int(w),
		Height:      int(h),
	}, true
}

func decodeCreator(row db.Row) (*listing.CreatorSummary, bool) {
	id, err1 := row.String("id")
	handle, err2 := row.String("handle")
	name, err3 := row.String("display_name")
	if err1 != nil || err2 != nil || err3 != nil || id == "" {
		return nil, false
	}
	return &listing.CreatorSummary{ID: id, Handle: handle, DisplayName: name}, true
}
