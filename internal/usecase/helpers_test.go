package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

// recordingStore remembers the last update issued per collection.
type recordingStore struct {
	repository.DocumentStore
	mu      sync.Mutex
	updates map[string]entity.Fields
}

func newRecordingStore(inner repository.DocumentStore) *recordingStore {
	return &recordingStore{DocumentStore: inner, updates: make(map[string]entity.Fields)}
}

func (s *recordingStore) Collection(name string) repository.Collection {
	return &recordingCollection{Collection: s.DocumentStore.Collection(name), name: name, store: s}
}

func (s *recordingStore) lastUpdate(name string) entity.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[name]
}

type recordingCollection struct {
	repository.Collection
	name  string
	store *recordingStore
}

func (c *recordingCollection) UpdateOne(ctx context.Context, filter, set entity.Fields) error {
	c.store.mu.Lock()
	c.store.updates[c.name] = set.Clone()
	c.store.mu.Unlock()
	return c.Collection.UpdateOne(ctx, filter, set)
}

// fakeFetcher serves canned search results per bounding box and canned
// detail records per listing id.
type fakeFetcher struct {
	mu         sync.Mutex
	results    map[entity.BoundingBox][]entity.ListingSummary
	searchErrs map[entity.BoundingBox]error
	details    map[string]*entity.DetailRecord
	detailErrs map[string]error
	searched   []entity.BoundingBox
	fetched    []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results:    make(map[entity.BoundingBox][]entity.ListingSummary),
		searchErrs: make(map[entity.BoundingBox]error),
		details:    make(map[string]*entity.DetailRecord),
		detailErrs: make(map[string]error),
	}
}

func (f *fakeFetcher) SearchListings(ctx context.Context, params entity.SearchParams) ([]entity.ListingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, params.Box)
	if err := f.searchErrs[params.Box]; err != nil {
		return nil, err
	}
	return f.results[params.Box], nil
}

func (f *fakeFetcher) GetListingDetails(ctx context.Context, listingID string, params entity.DetailParams) (*entity.DetailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, listingID)
	if err := f.detailErrs[listingID]; err != nil {
		return nil, err
	}
	rec, ok := f.details[listingID]
	if !ok {
		return nil, fmt.Errorf("no fixture for listing %s", listingID)
	}
	return rec, nil
}

// addCity registers n listings with ids <prefix>-1..<prefix>-n, each with a
// small detail record.
func (f *fakeFetcher) addCity(box entity.BoundingBox, prefix string, n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		ids = append(ids, id)
		f.results[box] = append(f.results[box], entity.ListingSummary{ID: id, Title: "Stay " + id})
		f.details[id] = detailFixture(id, 1, 1, 2)
	}
	return ids
}

type countingPacer struct {
	mu     sync.Mutex
	calls  int
	onCall func(n int)
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if p.onCall != nil {
		p.onCall(n)
	}
	return ctx.Err()
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func priceJSON(s string) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"raw": []any{map[string]any{"items": []any{map[string]any{"priceString": s}}}},
	})
	return b
}

// detailFixture builds a detail record with the given number of amenities,
// images and calendar days starting 2025-06-01.
func detailFixture(id string, amenities, images, days int) *entity.DetailRecord {
	rec := &entity.DetailRecord{
		ListingID:      id,
		Title:          "Riverside loft " + id,
		Description:    "Quiet loft near the river",
		RoomType:       "Entire home/apt",
		PersonCapacity: int64Ptr(4),
		Coordinates:    entity.Coordinates{Latitude: float64Ptr(10.7769), Longitude: float64Ptr(106.7009)},
		Price:          priceJSON("₫1.200.000"),
	}
	for i := 1; i <= amenities; i++ {
		rec.Amenities = append(rec.Amenities, entity.AmenityRecord{Title: fmt.Sprintf("Amenity %d", i)})
	}
	for i := 1; i <= images; i++ {
		rec.Images = append(rec.Images, entity.ImageRecord{
			URL:   fmt.Sprintf("https://img.example.com/%s/%d.jpg", id, i),
			Title: fmt.Sprintf("Photo %d", i),
		})
	}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	month := entity.CalendarMonth{Month: 6, Year: 2025}
	for i := 0; i < days; i++ {
		month.Days = append(month.Days, entity.CalendarDay{
			CalendarDate: start.AddDate(0, 0, i).Format(time.DateOnly),
			Available:    i%3 != 0,
			MinNights:    int64Ptr(2),
			Price:        entity.CalendarDayPrice{LocalPriceFormatted: "₫850,000"},
		})
	}
	rec.Calendar = []entity.CalendarMonth{month}
	return rec
}
