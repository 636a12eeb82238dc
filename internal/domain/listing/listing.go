// Package listing holds marketplace listing rows as read for predictive search.
package listing

import "time"

// StatusActive is the publicly visible listing status.
const StatusActive = "active"

// PhotoTypeReference marks photos eligible as thumbnails.
const PhotoTypeReference = "reference"

// Listing is a marketplace listing with its resolved secondary lookups.
type Listing struct {
	ID          string
	Title       string
	Description string
	PriceCents  int64
	Currency    string
	CreatorID   string
	CreatedAt   time.Time

	// Thumbnail is the first reference photo, if any.
	Thumbnail *Photo
	// Creator is nil when the referenced profile was not found.
	Creator *CreatorSummary
}

// Photo is a stored listing photo.
type Photo struct {
	ListingID   string
	StoragePath string
	AltText     string
	Width       int
	Height      int
}

// CreatorSummary is the subset of a creator profile embedded in products.
type CreatorSummary struct {
	ID          string
	Handle      string
	DisplayName string
}
