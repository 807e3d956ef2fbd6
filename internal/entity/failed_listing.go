package entity

import "time"

// FailedListing is the ledger entry of a listing whose last harvest attempt
// was skipped.
type FailedListing struct {
	ListingID            string    `json:"listing_id"`
	City                 string    `json:"city"`
	Stage                string    `json:"stage"` // "detail", "reconcile"
	FailureReason        string    `json:"failure_reason"`
	Attempts             int64     `json:"attempts"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
}
