// Package bsondoc converts between entity.Fields and BSON. Both document
// store adapters go through it: Mongo stores BSON natively, Postgres stores
// its canonical Extended JSON in a JSONB column.
package bsondoc

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/user/stay-harvester/internal/entity"
)

const idField = "_id"

// FromFields returns f as an ordered BSON document with sorted keys, so that
// equal documents always encode to equal bytes.
func FromFields(f entity.Fields) bson.D {
	d := make(bson.D, 0, len(f))
	for _, k := range f.Keys() {
		d = append(d, bson.E{Key: k, Value: entity.Normalize(f[k])})
	}
	return d
}

// ToFields converts a decoded document back to canonical values. The store
// generated _id is dropped.
func ToFields(m bson.M) entity.Fields {
	out := make(entity.Fields, len(m))
	for k, v := range m {
		if k == idField {
			continue
		}
		out[k] = fromBSON(v)
	}
	return out
}

func fromBSON(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return entity.Normalize(v)
	}
}

// MarshalExtJSON encodes f as canonical Extended JSON. Types survive the
// round trip: integers stay integers and times stay times.
func MarshalExtJSON(f entity.Fields) ([]byte, error) {
	b, err := bson.MarshalExtJSON(FromFields(f), true, false)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// UnmarshalExtJSON decodes canonical Extended JSON produced by MarshalExtJSON.
func UnmarshalExtJSON(b []byte) (entity.Fields, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON(b, true, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return ToFields(m), nil
}
