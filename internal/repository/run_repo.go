package repository

import (
	"context"
	"time"

	"github.com/user/stay-harvester/internal/entity"
)

// RunLock makes sure only one harvest runs at a time.
type RunLock interface {
	// Acquire takes the lock for ttl and returns the token that owns it, or ErrLockHeld.
	Acquire(ctx context.Context, ttl time.Duration) (string, error)
	// Release frees the lock if token still owns it.
	Release(ctx context.Context, token string) error
}

// RunHistoryRepository keeps the summaries of recent runs, newest first.
type RunHistoryRepository interface {
	Push(ctx context.Context, summary *entity.RunSummary) error
	Recent(ctx context.Context, limit int) ([]*entity.RunSummary, error)
}
