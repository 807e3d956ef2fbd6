package entity

import (
	"reflect"
	"sort"
	"time"
)

// Fields is a flat document: field name to canonical scalar value.
// Canonical values are string, bool, int64, float64, time.Time and nil.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a new document holding f overlaid with every given document, left to right.
func (f Fields) Merge(others ...Fields) Fields {
	out := f.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Pick returns the subset of f named by keys. Keys missing from f are skipped.
func (f Fields) Pick(keys ...string) Fields {
	out := make(Fields, len(keys))
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns the field names of f in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts v into its canonical representation. Store adapters
// run decoded values through it so that comparisons against freshly built
// candidates are type-stable.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case *float64:
		if t == nil {
			return nil
		}
		return *t
	case *bool:
		if t == nil {
			return nil
		}
		return *t
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

// Equal reports exact equality of two field values after normalization.
// Time values are equal when they denote the same instant.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Diff returns, in sorted order, the names of candidate fields whose stored
// value differs. A field missing from stored counts as different. Fields
// present only in stored are ignored.
func Diff(stored, candidate Fields) []string {
	var changed []string
	for _, k := range candidate.Keys() {
		old, ok := stored[k]
		if !ok || !Equal(old, candidate[k]) {
			changed = append(changed, k)
		}
	}
	return changed
}

// CalendarDate strips the time of day from t and returns midnight UTC of
// the same calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseCalendarDate parses a YYYY-MM-DD string into a calendar date.
func ParseCalendarDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return CalendarDate(t), nil
}
