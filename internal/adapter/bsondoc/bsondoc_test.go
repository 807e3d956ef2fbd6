package bsondoc

import (
	"bytes"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/user/stay-harvester/internal/entity"
)

func TestFromFieldsSortsKeys(t *testing.T) {
	d := FromFields(entity.Fields{"title": "Wifi", "listing_id": "1", "is_available": true})
	want := []string{"is_available", "listing_id", "title"}
	if len(d) != len(want) {
		t.Fatalf("len = %d, want %d", len(d), len(want))
	}
	for i, e := range d {
		if e.Key != want[i] {
			t.Errorf("key %d = %q, want %q", i, e.Key, want[i])
		}
	}
}

func TestToFieldsCanonicalizes(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got := ToFields(bson.M{
		"_id":        primitive.NewObjectID(),
		"listing_id": "1",
		"date":       primitive.NewDateTimeFromTime(day),
		"min_nights": int32(2),
		"price":      nil,
	})

	if _, ok := got["_id"]; ok {
		t.Error("_id kept")
	}
	if d, ok := got["date"].(time.Time); !ok || !d.Equal(day) {
		t.Errorf("date = %#v, want %v", got["date"], day)
	}
	if got["min_nights"] != int64(2) {
		t.Errorf("min_nights = %#v, want int64(2)", got["min_nights"])
	}
	if v, ok := got["price"]; !ok || v != nil {
		t.Errorf("price = %#v, want present nil", v)
	}
}

func TestExtJSONKeepsTypes(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	doc := entity.Fields{
		"listing_id":   "42",
		"date":         day,
		"is_available": false,
		"price":        int64(850000),
		"latitude":     10.7769,
		"min_nights":   nil,
	}

	b, err := MarshalExtJSON(doc)
	if err != nil {
		t.Fatalf("MarshalExtJSON() error = %v", err)
	}
	back, err := UnmarshalExtJSON(b)
	if err != nil {
		t.Fatalf("UnmarshalExtJSON() error = %v", err)
	}
	if diff := entity.Diff(back, doc); len(diff) != 0 {
		t.Errorf("round trip changed %v: got %v", diff, back)
	}

	// key order never depends on map iteration
	again, _ := MarshalExtJSON(doc.Clone())
	if !bytes.Equal(b, again) {
		t.Errorf("encodings differ:\n%s\n%s", b, again)
	}
}
