package repository

import (
	"context"

	"github.com/user/stay-harvester/internal/entity"
)

// ListingFetcher is the third-party listing source.
type ListingFetcher interface {
	// SearchListings returns the listings found inside a bounding box for the given stay.
	SearchListings(ctx context.Context, params entity.SearchParams) ([]entity.ListingSummary, error)
	// GetListingDetails returns the full snapshot of one listing.
	GetListingDetails(ctx context.Context, listingID string, params entity.DetailParams) (*entity.DetailRecord, error)
}
