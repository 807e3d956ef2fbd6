package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/user/stay-harvester/internal/entity"
	"github.com/user/stay-harvester/internal/repository"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestCollectionImpl(t *testing.T) {
	ctx := context.Background()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	created := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)

	mt.Run("find one without match", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		coll := &collectionImpl{coll: mt.Coll}

		if _, err := coll.FindOne(ctx, entity.Fields{entity.FieldListingID: "1"}); !errors.Is(err, repository.ErrNotFound) {
			mt.Errorf("FindOne() error = %v, want ErrNotFound", err)
		}
	})

	mt.Run("find one decodes canonical values", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "listing_id", Value: "1"},
			{Key: "nightly_price", Value: int64(1200000)},
			{Key: "person_capacity", Value: int32(4)},
			{Key: "currency", Value: primitive.Null{}},
			{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)},
		}))
		coll := &collectionImpl{coll: mt.Coll}

		doc, err := coll.FindOne(ctx, entity.Fields{entity.FieldListingID: "1"})
		if err != nil {
			mt.Fatalf("FindOne() error = %v", err)
		}
		if _, ok := doc["_id"]; ok {
			mt.Error("_id leaked into the document")
		}
		if doc["nightly_price"] != int64(1200000) || doc["person_capacity"] != int64(4) {
			mt.Errorf("numbers = %#v, %#v, want int64", doc["nightly_price"], doc["person_capacity"])
		}
		if v, ok := doc["currency"]; !ok || v != nil {
			mt.Errorf("currency = %#v, want nil", v)
		}
		if at, ok := doc["created_at"].(time.Time); !ok || !at.Equal(created) {
			mt.Errorf("created_at = %#v, want %v", doc["created_at"], created)
		}
	})

	mt.Run("find by partial key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "listing_id", Value: "1"}, {Key: "title", Value: "Wifi"}, {Key: "is_available", Value: true}},
			bson.D{{Key: "listing_id", Value: "1"}, {Key: "title", Value: "Pool"}, {Key: "is_available", Value: false}},
		))
		coll := &collectionImpl{coll: mt.Coll}

		docs, err := coll.Find(ctx, entity.Fields{entity.FieldListingID: "1"})
		if err != nil {
			mt.Fatalf("Find() error = %v", err)
		}
		if len(docs) != 2 || docs[1]["title"] != "Pool" || docs[1]["is_available"] != false {
			mt.Errorf("Find() = %v", docs)
		}
	})

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		coll := &collectionImpl{coll: mt.Coll}

		if err := coll.InsertOne(ctx, entity.Fields{entity.FieldListingID: "1", "title": "Loft"}); err != nil {
			mt.Fatalf("InsertOne() error = %v", err)
		}
		if ev := mt.GetStartedEvent(); ev == nil || ev.CommandName != "insert" {
			mt.Errorf("started event = %v, want insert", ev)
		}
	})

	mt.Run("update without match", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		coll := &collectionImpl{coll: mt.Coll}

		err := coll.UpdateOne(ctx, entity.Fields{entity.FieldListingID: "404"}, entity.Fields{"title": "x"})
		if !errors.Is(err, repository.ErrNotFound) {
			mt.Errorf("UpdateOne() error = %v, want ErrNotFound", err)
		}
	})

	mt.Run("update with match", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		coll := &collectionImpl{coll: mt.Coll}

		if err := coll.UpdateOne(ctx, entity.Fields{entity.FieldListingID: "1"}, entity.Fields{"title": "Loft"}); err != nil {
			mt.Fatalf("UpdateOne() error = %v", err)
		}
		if ev := mt.GetStartedEvent(); ev == nil || ev.CommandName != "update" {
			mt.Errorf("started event = %v, want update", ev)
		}
	})
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("one unique index per collection", func(mt *mtest.T) {
		for range entity.NaturalKeys {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		store := &DocumentStoreImpl{client: mt.Client, db: mt.DB}

		if err := store.EnsureIndexes(context.Background()); err != nil {
			mt.Fatalf("EnsureIndexes() error = %v", err)
		}
		events := mt.GetAllStartedEvents()
		if len(events) != len(entity.NaturalKeys) {
			mt.Fatalf("commands sent = %d, want %d", len(events), len(entity.NaturalKeys))
		}
		for _, ev := range events {
			if ev.CommandName != "createIndexes" {
				mt.Errorf("command = %s, want createIndexes", ev.CommandName)
				continue
			}
			coll, _ := ev.Command.Lookup("createIndexes").StringValueOK()
			if _, ok := entity.NaturalKeys[coll]; !ok {
				mt.Errorf("index created on unknown collection %q", coll)
			}
			unique, _ := ev.Command.Lookup("indexes").Array().Index(0).Value().Document().Lookup("unique").BooleanOK()
			if !unique {
				mt.Errorf("index on %s is not unique", coll)
			}
		}
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    85,
			Name:    "IndexOptionsConflict",
			Message: "index exists with different options",
		}))
		store := &DocumentStoreImpl{client: mt.Client, db: mt.DB}

		if err := store.EnsureIndexes(context.Background()); err == nil {
			mt.Error("EnsureIndexes() succeeded against a failing server")
		}
	})
}
