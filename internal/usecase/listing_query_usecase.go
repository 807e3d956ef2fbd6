package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

var ErrListingNotFound = errors.New("listing has never been harvested")

const maxRecentRuns = 100

// ListingView is what the ops API reports about one listing. The
// sub-collections are only loaded when the listing document is stored.
type ListingView struct {
	ListingID    string                `json:"listing_id"`
	Status       string                `json:"status"` // "stored", "failed", "stored_then_failed"
	Document     entity.Fields         `json:"document,omitempty"`
	Amenities    []entity.Fields       `json:"amenities,omitempty"`
	Images       []entity.Fields       `json:"images,omitempty"`
	Availability []entity.Fields       `json:"availability,omitempty"`
	Failure      *entity.FailedListing `json:"failure,omitempty"`
}

// ListingQuery answers read-only questions about harvested data.
type ListingQuery interface {
	GetListing(ctx context.Context, listingID string) (*ListingView, error)
	RecentRuns(ctx context.Context, limit int) ([]*entity.RunSummary, error)
}

type listingQueryUseCase struct {
	store   repository.DocumentStore
	failed  repository.FailedListingRepository
	history repository.RunHistoryRepository
	logger  *zap.Logger
}

// NewListingQuery creates a new ListingQuery use case.
func NewListingQuery(
	store repository.DocumentStore,
	failed repository.FailedListingRepository,
	history repository.RunHistoryRepository,
	logger *zap.Logger,
) ListingQuery {
	return &listingQueryUseCase{
		store:   store,
		failed:  failed,
		history: history,
		logger:  logger,
	}
}

func (uc *listingQueryUseCase) GetListing(ctx context.Context, listingID string) (*ListingView, error) {
	view := &ListingView{ListingID: listingID}

	doc, err := uc.store.Collection(entity.CollectionListings).FindOne(ctx, entity.Listing{ID: listingID}.Key())
	switch {
	case err == nil:
		view.Document = doc
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("find listing %s: %w", listingID, err)
	}
	if view.Document != nil {
		if err := uc.loadChildren(ctx, view); err != nil {
			return nil, err
		}
	}

	failure, err := uc.failed.Find(ctx, listingID)
	switch {
	case err == nil:
		view.Failure = failure
	case !errors.Is(err, repository.ErrNotFound):
		// the stored document is still worth returning
		uc.logger.Warn("Error finding failed listing entry", zap.String("listing_id", listingID), zap.Error(err))
	}

	switch {
	case view.Document != nil && view.Failure != nil:
		view.Status = "stored_then_failed"
	case view.Document != nil:
		view.Status = "stored"
	case view.Failure != nil:
		view.Status = "failed"
	default:
		return nil, ErrListingNotFound
	}
	return view, nil
}

// loadChildren fills the amenities, images and availability days of a
// stored listing, each sorted by the field that tells them apart.
func (uc *listingQueryUseCase) loadChildren(ctx context.Context, view *ListingView) error {
	filter := entity.Fields{entity.FieldListingID: view.ListingID}
	children := []struct {
		collection string
		sortKey    string
		dst        *[]entity.Fields
	}{
		{entity.CollectionAmenities, "title", &view.Amenities},
		{entity.CollectionImages, "url", &view.Images},
		{entity.CollectionAvailability, "date", &view.Availability},
	}
	for _, c := range children {
		docs, err := uc.store.Collection(c.collection).Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("find %s of listing %s: %w", c.collection, view.ListingID, err)
		}
		sortDocs(docs, c.sortKey)
		*c.dst = docs
	}
	return nil
}

func sortDocs(docs []entity.Fields, field string) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i][field], docs[j][field]
		if ta, ok := a.(time.Time); ok {
			if tb, ok := b.(time.Time); ok {
				return ta.Before(tb)
			}
		}
		return fmt.Sprint(a) < fmt.Sprint(b)
	})
}

func (uc *listingQueryUseCase) RecentRuns(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	if limit <= 0 || limit > maxRecentRuns {
		limit = maxRecentRuns
	}
	runs, err := uc.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load run history: %w", err)
	}
	return runs, nil
}
