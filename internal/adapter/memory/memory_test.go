package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

func TestDocumentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()
	coll := store.Collection(entity.CollectionAvailability)
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	key := entity.Fields{entity.FieldListingID: "42", "date": day}

	if _, err := coll.FindOne(ctx, key); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("FindOne() on empty store error = %v, want ErrNotFound", err)
	}

	if err := coll.InsertOne(ctx, key.Merge(entity.Fields{"is_available": true, "min_nights": 2})); err != nil {
		t.Fatalf("InsertOne() error = %v", err)
	}

	// the same calendar day seen from another zone is the same key
	other := entity.Fields{entity.FieldListingID: "42", "date": day.In(time.FixedZone("ICT", 7*3600))}
	doc, err := coll.FindOne(ctx, other)
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if doc["min_nights"] != int64(2) {
		t.Errorf("min_nights = %#v, want int64(2)", doc["min_nights"])
	}

	if err := coll.UpdateOne(ctx, key, entity.Fields{"is_available": false}); err != nil {
		t.Fatalf("UpdateOne() error = %v", err)
	}
	doc, _ = coll.FindOne(ctx, key)
	if doc["is_available"] != false || doc["min_nights"] != int64(2) {
		t.Errorf("after update doc = %v", doc)
	}

	if err := coll.UpdateOne(ctx, entity.Fields{entity.FieldListingID: "43", "date": day}, entity.Fields{"x": 1}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("UpdateOne() on missing doc error = %v, want ErrNotFound", err)
	}

	stats := store.Stats(entity.CollectionAvailability)
	if stats.Inserts != 1 || stats.Updates != 1 || stats.Finds != 3 {
		t.Errorf("Stats() = %+v, want 1 insert, 1 update, 3 finds", stats)
	}
}

func TestDocumentStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewDocumentStore().Collection(entity.CollectionImages)
	key := entity.Fields{entity.FieldListingID: "1", "url": "u"}
	_ = coll.InsertOne(ctx, key.Merge(entity.Fields{"caption": "a"}))

	doc, _ := coll.FindOne(ctx, key)
	doc["caption"] = "mutated"

	again, _ := coll.FindOne(ctx, key)
	if again["caption"] != "a" {
		t.Errorf("caption = %v, stored document was mutated through FindOne result", again["caption"])
	}
}

func TestRunLock(t *testing.T) {
	ctx := context.Background()
	lock := NewRunLock()
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }

	token, err := lock.Acquire(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := lock.Acquire(ctx, time.Hour); !errors.Is(err, repository.ErrLockHeld) {
		t.Fatalf("second Acquire() error = %v, want ErrLockHeld", err)
	}

	_ = lock.Release(ctx, "someone-else")
	if _, err := lock.Acquire(ctx, time.Hour); !errors.Is(err, repository.ErrLockHeld) {
		t.Fatal("Release() with a foreign token freed the lock")
	}

	_ = lock.Release(ctx, token)
	if _, err := lock.Acquire(ctx, time.Hour); err != nil {
		t.Fatalf("Acquire() after Release() error = %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := lock.Acquire(ctx, time.Hour); err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}
}

func TestRunHistoryKeepsNewestFirst(t *testing.T) {
	ctx := context.Background()
	h := NewRunHistory(2)
	for _, id := range []string{"a", "b", "c"} {
		_ = h.Push(ctx, &entity.RunSummary{RunID: id})
	}
	got, _ := h.Recent(ctx, 10)
	if len(got) != 2 || got[0].RunID != "c" || got[1].RunID != "b" {
		t.Errorf("Recent() = %v, want [c b]", got)
	}
}

func TestFailedListingsCountsAttempts(t *testing.T) {
	ctx := context.Background()
	f := NewFailedListings()
	_ = f.Record(ctx, &entity.FailedListing{ListingID: "7", Stage: "detail"})
	_ = f.Record(ctx, &entity.FailedListing{ListingID: "7", Stage: "reconcile"})

	got, err := f.Find(ctx, "7")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Attempts != 2 || got.Stage != "reconcile" {
		t.Errorf("Find() = %+v, want 2 attempts at stage reconcile", got)
	}

	_ = f.Clear(ctx, "7")
	if _, err := f.Find(ctx, "7"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Find() after Clear() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentStoreFindByPartialKey(t *testing.T) {
	ctx := context.Background()
	coll := NewDocumentStore().Collection(entity.CollectionAmenities)
	for _, d := range []entity.Fields{
		{entity.FieldListingID: "1", "title": "Wifi", "is_available": true},
		{entity.FieldListingID: "2", "title": "Wifi", "is_available": true},
		{entity.FieldListingID: "1", "title": "Pool", "is_available": false},
	} {
		if err := coll.InsertOne(ctx, d); err != nil {
			t.Fatalf("InsertOne() error = %v", err)
		}
	}

	docs, err := coll.Find(ctx, entity.Fields{entity.FieldListingID: "1"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(docs) != 2 || docs[0]["title"] != "Wifi" || docs[1]["title"] != "Pool" {
		t.Errorf("Find() = %v, want Wifi then Pool of listing 1", docs)
	}

	docs, err = coll.Find(ctx, entity.Fields{entity.FieldListingID: "3"})
	if err != nil || len(docs) != 0 {
		t.Errorf("Find() on unknown listing = %v, %v, want empty", docs, err)
	}
}
