package repository

import (
	"context"

	"github.com/user/stay-harvester/internal/entity"
)

// FailedListingRepository keeps the ledger of listings skipped by a harvest.
type FailedListingRepository interface {
	// Record creates or updates the entry for a failed listing and bumps its attempt count.
	Record(ctx context.Context, failed *entity.FailedListing) error
	// Find returns the entry for a listing, or ErrNotFound.
	Find(ctx context.Context, listingID string) (*entity.FailedListing, error)
	// Clear removes the entry, typically after the listing was harvested successfully.
	Clear(ctx context.Context, listingID string) error
}
