package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

// FailedListingRepoImpl provides a concrete implementation for the FailedListingRepository interface using PostgreSQL.
type FailedListingRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedListingRepo creates a new instance of FailedListingRepoImpl.
func NewFailedListingRepo(db *pgxpool.Pool) *FailedListingRepoImpl {
	return &FailedListingRepoImpl{db: db}
}

// Record creates or updates the entry of a failed listing.
// It increments attempts on conflict.
func (r *FailedListingRepoImpl) Record(ctx context.Context, failed *entity.FailedListing) error {
	query := `
		INSERT INTO failed_listings (listing_id, city, stage, failure_reason, attempts, last_attempt_timestamp)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (listing_id) DO UPDATE SET
			city = EXCLUDED.city,
			stage = EXCLUDED.stage,
			failure_reason = EXCLUDED.failure_reason,
			attempts = failed_listings.attempts + 1,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp;
	`
	_, err := r.db.Exec(ctx, query,
		failed.ListingID,
		failed.City,
		failed.Stage,
		failed.FailureReason,
		failed.LastAttemptTimestamp,
	)
	return err
}

func (r *FailedListingRepoImpl) Find(ctx context.Context, listingID string) (*entity.FailedListing, error) {
	query := `
		SELECT listing_id, city, stage, failure_reason, attempts, last_attempt_timestamp
		FROM failed_listings
		WHERE listing_id = $1;
	`
	var fl entity.FailedListing
	err := r.db.QueryRow(ctx, query, listingID).Scan(
		&fl.ListingID,
		&fl.City,
		&fl.Stage,
		&fl.FailureReason,
		&fl.Attempts,
		&fl.LastAttemptTimestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fl, nil
}

// Clear removes a failed listing entry, typically after a successful harvest.
func (r *FailedListingRepoImpl) Clear(ctx context.Context, listingID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM failed_listings WHERE listing_id = $1;`, listingID)
	return err
}
