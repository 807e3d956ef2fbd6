// Package mongo implements the document store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/user/stay-harvester/internal/adapter/bsondoc"
	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

type DocumentStoreImpl struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDocumentStore connects to uri and checks the connection with a ping.
func NewDocumentStore(ctx context.Context, uri, database string) (*DocumentStoreImpl, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &DocumentStoreImpl{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the unique natural-key index of every collection.
func (s *DocumentStoreImpl) EnsureIndexes(ctx context.Context) error {
	for name, fields := range entity.NaturalKeys {
		keys := make(bson.D, 0, len(fields))
		for _, f := range fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create index on %s: %w", name, err)
		}
	}
	return nil
}

func (s *DocumentStoreImpl) Collection(name string) repository.Collection {
	return &collectionImpl{coll: s.db.Collection(name)}
}

func (s *DocumentStoreImpl) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *DocumentStoreImpl) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type collectionImpl struct {
	coll *mongo.Collection
}

func (c *collectionImpl) FindOne(ctx context.Context, filter entity.Fields) (entity.Fields, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bsondoc.FromFields(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bsondoc.ToFields(doc), nil
}

func (c *collectionImpl) Find(ctx context.Context, filter entity.Fields) ([]entity.Fields, error) {
	cur, err := c.coll.Find(ctx, bsondoc.FromFields(filter))
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]entity.Fields, 0, len(docs))
	for _, d := range docs {
		out = append(out, bsondoc.ToFields(d))
	}
	return out, nil
}

func (c *collectionImpl) InsertOne(ctx context.Context, doc entity.Fields) error {
	_, err := c.coll.InsertOne(ctx, bsondoc.FromFields(doc))
	return err
}

func (c *collectionImpl) UpdateOne(ctx context.Context, filter entity.Fields, set entity.Fields) error {
	res, err := c.coll.UpdateOne(ctx, bsondoc.FromFields(filter), bson.D{{Key: "$set", Value: bsondoc.FromFields(set)}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
