package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

const (
	failedListingPrefix = "harvester:failed:"
	failedListingExpiry = 30 * 24 * time.Hour
)

// FailedListingRepoImpl keeps one hash per failed listing.
type FailedListingRepoImpl struct {
	client *redis.Client
}

// NewFailedListingRepo creates a new instance of FailedListingRepoImpl.
func NewFailedListingRepo(client *redis.Client) *FailedListingRepoImpl {
	return &FailedListingRepoImpl{client: client}
}

func (r *FailedListingRepoImpl) generateKey(listingID string) string {
	return fmt.Sprintf("%s%s", failedListingPrefix, listingID)
}

// Record overwrites the failure details and bumps attempts in one transaction.
func (r *FailedListingRepoImpl) Record(ctx context.Context, failed *entity.FailedListing) error {
	key := r.generateKey(failed.ListingID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"listing_id", failed.ListingID,
			"city", failed.City,
			"stage", failed.Stage,
			"failure_reason", failed.FailureReason,
			"last_attempt_timestamp", failed.LastAttemptTimestamp.UTC().Format(time.RFC3339Nano),
		)
		pipe.HIncrBy(ctx, key, "attempts", 1)
		pipe.Expire(ctx, key, failedListingExpiry)
		return nil
	})
	return err
}

func (r *FailedListingRepoImpl) Find(ctx context.Context, listingID string) (*entity.FailedListing, error) {
	vals, err := r.client.HGetAll(ctx, r.generateKey(listingID)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, repository.ErrNotFound
	}

	fl := &entity.FailedListing{
		ListingID:     vals["listing_id"],
		City:          vals["city"],
		Stage:         vals["stage"],
		FailureReason: vals["failure_reason"],
	}
	if fl.Attempts, err = strconv.ParseInt(vals["attempts"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse attempts of %s: %w", listingID, err)
	}
	if fl.LastAttemptTimestamp, err = time.Parse(time.RFC3339Nano, vals["last_attempt_timestamp"]); err != nil {
		return nil, fmt.Errorf("parse last attempt of %s: %w", listingID, err)
	}
	return fl, nil
}

func (r *FailedListingRepoImpl) Clear(ctx context.Context, listingID string) error {
	return r.client.Del(ctx, r.generateKey(listingID)).Err()
}
