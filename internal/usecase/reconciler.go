package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
	"github.com/user/stay-harvester/pkg/metrics"
)

// UpdatePolicy builds the partial update applied to a stored record whose
// tracked fields differ from the candidate. An empty result means no write.
type UpdatePolicy func(stored, candidate entity.Fields, changed []string) entity.Fields

// ReplaceTracked rewrites every tracked field.
func ReplaceTracked(stored, candidate entity.Fields, changed []string) entity.Fields {
	return candidate.Clone()
}

// ChangedOnly writes just the fields that differ.
func ChangedOnly(stored, candidate entity.Fields, changed []string) entity.Fields {
	return candidate.Pick(changed...)
}

// RestoreAvailability only ever flips is_available from false to true.
// An amenity missing from a later scrape is not marked unavailable, and a
// record without the flag is treated as available.
func RestoreAvailability(stored, candidate entity.Fields, changed []string) entity.Fields {
	was, ok := stored["is_available"].(bool)
	if !ok || was {
		return nil
	}
	if now, _ := candidate["is_available"].(bool); !now {
		return nil
	}
	return entity.Fields{"is_available": true}
}

// EntityKind ties a collection to the way its records are stamped and updated.
type EntityKind struct {
	Collection     string
	Policy         UpdatePolicy
	StampUpdatedAt bool
}

var (
	ListingKind      = EntityKind{Collection: entity.CollectionListings, Policy: ReplaceTracked, StampUpdatedAt: true}
	AmenityKind      = EntityKind{Collection: entity.CollectionAmenities, Policy: RestoreAvailability}
	ImageKind        = EntityKind{Collection: entity.CollectionImages, Policy: ChangedOnly}
	AvailabilityKind = EntityKind{Collection: entity.CollectionAvailability, Policy: ChangedOnly}
)

// Reconciler decides insert, update or no-op for freshly fetched records
// against the document store.
type Reconciler struct {
	store  repository.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

func NewReconciler(store repository.DocumentStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// UpsertEntity looks up the record addressed by key and inserts the
// candidate if it is absent, applies the kind's update policy if any tracked
// field differs, or leaves the store untouched.
func (r *Reconciler) UpsertEntity(ctx context.Context, kind EntityKind, key, candidate entity.Fields) (entity.Effect, error) {
	coll := r.store.Collection(kind.Collection)

	stored, err := coll.FindOne(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		now := r.now().UTC()
		stamps := entity.Fields{entity.FieldCreatedAt: now}
		if kind.StampUpdatedAt {
			stamps[entity.FieldUpdatedAt] = now
		}
		if err := coll.InsertOne(ctx, key.Merge(candidate, stamps)); err != nil {
			return entity.Unchanged, fmt.Errorf("insert into %s %v: %w", kind.Collection, key, err)
		}
		return r.record(kind, entity.Inserted), nil
	}
	if err != nil {
		return entity.Unchanged, fmt.Errorf("find in %s %v: %w", kind.Collection, key, err)
	}

	changed := entity.Diff(stored, candidate)
	if len(changed) == 0 {
		return r.record(kind, entity.Unchanged), nil
	}
	set := kind.Policy(stored, candidate, changed)
	if len(set) == 0 {
		return r.record(kind, entity.Unchanged), nil
	}
	if kind.StampUpdatedAt {
		set = set.Merge(entity.Fields{entity.FieldUpdatedAt: r.now().UTC()})
	}
	if err := coll.UpdateOne(ctx, key, set); err != nil {
		return entity.Unchanged, fmt.Errorf("update %s %v: %w", kind.Collection, key, err)
	}
	r.logger.Debug("record updated",
		zap.String("collection", kind.Collection),
		zap.Any("key", key),
		zap.Strings("changed", changed),
	)
	return r.record(kind, entity.Updated), nil
}

func (r *Reconciler) record(kind EntityKind, effect entity.Effect) entity.Effect {
	metrics.ReconcileEffectsTotal.WithLabelValues(kind.Collection, effect.String()).Inc()
	return effect
}

func (r *Reconciler) UpsertListing(ctx context.Context, l entity.Listing) (entity.Effect, error) {
	return r.UpsertEntity(ctx, ListingKind, l.Key(), l.Tracked())
}

func (r *Reconciler) UpsertAmenity(ctx context.Context, a entity.Amenity) (entity.Effect, error) {
	return r.UpsertEntity(ctx, AmenityKind, a.Key(), a.Tracked())
}

func (r *Reconciler) UpsertImage(ctx context.Context, i entity.Image) (entity.Effect, error) {
	return r.UpsertEntity(ctx, ImageKind, i.Key(), i.Tracked())
}

func (r *Reconciler) UpsertAvailabilityDay(ctx context.Context, d entity.AvailabilityDay) (entity.Effect, error) {
	return r.UpsertEntity(ctx, AvailabilityKind, d.Key(), d.Tracked())
}

// ListingOutcome holds the effects of reconciling one listing snapshot,
// per collection.
type ListingOutcome map[string]entity.EffectCounts

func (o ListingOutcome) add(collection string, e entity.Effect) {
	c := o[collection]
	c.Add(e)
	o[collection] = c
}

// Writes is the number of store writes the listing caused.
func (o ListingOutcome) Writes() int {
	n := 0
	for _, c := range o {
		n += c.Writes()
	}
	return n
}

// ReconcileDetails maps the detail record of listingID and reconciles it.
// A record that cannot be mapped fails with ErrMalformedDetail before any
// write.
func (r *Reconciler) ReconcileDetails(ctx context.Context, listingID, city string, rec *entity.DetailRecord) (ListingOutcome, error) {
	snap, err := BuildSnapshot(listingID, city, rec)
	if err != nil {
		return nil, err
	}
	return r.ReconcileSnapshot(ctx, snap)
}

// ReconcileSnapshot upserts the listing, then its amenities, images and
// availability days, in that order. It stops at the first store error; the
// outcome reports what was done until then.
func (r *Reconciler) ReconcileSnapshot(ctx context.Context, snap *Snapshot) (ListingOutcome, error) {
	out := make(ListingOutcome)

	effect, err := r.UpsertListing(ctx, snap.Listing)
	if err != nil {
		return out, err
	}
	out.add(entity.CollectionListings, effect)

	for _, a := range snap.Amenities {
		effect, err := r.UpsertAmenity(ctx, a)
		if err != nil {
			return out, err
		}
		out.add(entity.CollectionAmenities, effect)
	}
	for _, img := range snap.Images {
		effect, err := r.UpsertImage(ctx, img)
		if err != nil {
			return out, err
		}
		out.add(entity.CollectionImages, effect)
	}
	for _, d := range snap.Days {
		effect, err := r.UpsertAvailabilityDay(ctx, d)
		if err != nil {
			return out, err
		}
		out.add(entity.CollectionAvailability, effect)
	}
	return out, nil
}
