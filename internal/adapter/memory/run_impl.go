package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

// RunLock is a process-local run lock.
type RunLock struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewRunLock() *RunLock {
	return &RunLock{now: time.Now}
}

func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.token != "" && now.Before(l.expiresAt) {
		return "", repository.ErrLockHeld
	}
	l.token = uuid.NewString()
	l.expiresAt = now.Add(ttl)
	return l.token, nil
}

func (l *RunLock) Release(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == token {
		l.token = ""
	}
	return nil
}

// RunHistory keeps at most size summaries, newest first.
type RunHistory struct {
	mu        sync.Mutex
	size      int
	summaries []*entity.RunSummary
}

func NewRunHistory(size int) *RunHistory {
	return &RunHistory{size: size}
}

func (h *RunHistory) Push(ctx context.Context, summary *entity.RunSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append([]*entity.RunSummary{summary}, h.summaries...)
	if h.size > 0 && len(h.summaries) > h.size {
		h.summaries = h.summaries[:h.size]
	}
	return nil
}

func (h *RunHistory) Recent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.summaries) {
		limit = len(h.summaries)
	}
	out := make([]*entity.RunSummary, limit)
	copy(out, h.summaries[:limit])
	return out, nil
}

// FailedListings is an in-process failed-listing ledger.
type FailedListings struct {
	mu      sync.Mutex
	entries map[string]entity.FailedListing
}

func NewFailedListings() *FailedListings {
	return &FailedListings{entries: make(map[string]entity.FailedListing)}
}

func (f *FailedListings) Record(ctx context.Context, failed *entity.FailedListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := *failed
	entry.Attempts = f.entries[failed.ListingID].Attempts + 1
	f.entries[failed.ListingID] = entry
	return nil
}

func (f *FailedListings) Find(ctx context.Context, listingID string) (*entity.FailedListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[listingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &entry, nil
}

func (f *FailedListings) Clear(ctx context.Context, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, listingID)
	return nil
}

// Len returns the number of ledger entries.
func (f *FailedListings) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
