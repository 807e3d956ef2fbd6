package repository

import (
	"context"

	"github.com/user/stay-harvester/internal/entity"
)

// Collection is one named set of documents in the store.
// FindOne and UpdateOne filters are always the natural key of the document
// they address.
type Collection interface {
	// FindOne returns the document matching filter, or ErrNotFound.
	FindOne(ctx context.Context, filter entity.Fields) (entity.Fields, error)
	// Find returns every document matching filter, in store order. Unlike
	// FindOne, filter may be a partial key.
	Find(ctx context.Context, filter entity.Fields) ([]entity.Fields, error)
	// InsertOne stores a new document.
	InsertOne(ctx context.Context, doc entity.Fields) error
	// UpdateOne sets the given fields on the document matching filter.
	UpdateOne(ctx context.Context, filter entity.Fields, set entity.Fields) error
}

// DocumentStore is the process-wide store handle. It is acquired once at
// startup and closed once at shutdown.
type DocumentStore interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
