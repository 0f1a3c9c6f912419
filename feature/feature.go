// Package feature defines per-subject feature vectors and the store
// interface the decision engine reads them through.
//
// A feature vector maps feature names to numeric or categorical values.
// Vectors are materialized by an ingestion collaborator; the engine only
// reads them. Two store implementations are provided: MapStore for
// in-process use and tests, and RedisStore for vectors shared between
// processes.
package feature

import (
	"errors"
	"fmt"
	"strconv"
)

// Common errors returned by feature stores and lookups.
var (
	// ErrSubjectNotFound is returned when a store has no vector for the
	// requested subject.
	ErrSubjectNotFound = errors.New("feature: subject not found")

	// ErrMissingFeature is returned when a vector does not contain the
	// requested feature. Rule evaluation catches this per rule and
	// treats the condition as false.
	ErrMissingFeature = errors.New("feature: missing feature")

	// ErrStorageFailed is returned when the underlying storage backend
	// fails.
	ErrStorageFailed = errors.New("feature: storage operation failed")
)

// Kind discriminates the two value kinds a feature may hold.
type Kind int

const (
	// KindNumber is a numeric feature value.
	KindNumber Kind = iota

	// KindText is a categorical feature value.
	KindText
)

// Value is a single feature value, either numeric or categorical.
// The zero value is the number 0.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number creates a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text creates a categorical value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind returns the value kind.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the numeric value and true, or 0 and false for a
// categorical value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the categorical value and true, or "" and false for a
// numeric value.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// String renders the value for rationale templates and logs.
func (v Value) String() string {
	if v.kind == KindText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindText {
		return v.text == other.text
	}
	return v.num == other.num
}

// FromAny converts a dynamically typed value (YAML/JSON decoding yields
// these) into a Value. Numeric Go types become KindNumber, strings and
// bools become KindText.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case string:
		return Text(x), nil
	case bool:
		return Text(strconv.FormatBool(x)), nil
	default:
		return Value{}, fmt.Errorf("unsupported feature value type %T", raw)
	}
}

// Parse converts a stored string back into a Value: strings that parse
// as floats become numbers, everything else is categorical. This is the
// inverse of String for the values RedisStore persists.
func Parse(s string) Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// Vector is a read-only per-subject mapping from feature name to value.
type Vector map[string]Value

// Get returns the named feature value, or ErrMissingFeature.
func (v Vector) Get(name string) (Value, error) {
	val, ok := v[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingFeature, name)
	}
	return val, nil
}

// Has reports whether the named feature is present.
func (v Vector) Has(name string) bool {
	_, ok := v[name]
	return ok
}
