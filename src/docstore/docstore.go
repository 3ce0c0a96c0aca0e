// Package docstore abstracts the document-oriented persistence service the
// backend runs against. Records are schemaless field maps grouped into
// collections; queries are conjunctions of equality and array-membership
// predicates. Two implementations exist: Mongo (production) and Memory
// (tests, local development).
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateID is returned by CreateWithID when a record with the
	// given id already exists in the collection.
	ErrDuplicateID = errors.New("docstore: duplicate id")

	// ErrNotFound is returned by Update when no record matches the id.
	ErrNotFound = errors.New("docstore: record not found")
)

// Op is a predicate operator.
type Op int

const (
	// Eq matches records whose field equals the value.
	Eq Op = iota
	// ArrayContains matches records whose array field contains the value.
	ArrayContains
)

// Predicate is a single filter condition; a query is their conjunction.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Where builds an equality predicate.
func Where(field string, value any) Predicate {
	return Predicate{Field: field, Op: Eq, Value: value}
}

// Contains builds an array-membership predicate.
func Contains(field string, value any) Predicate {
	return Predicate{Field: field, Op: ArrayContains, Value: value}
}

// Record is a stored document. Fields never includes the id; CreatedAt is
// assigned by the store at insert time and is monotonically non-decreasing
// within a store instance.
type Record struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
}

// Str returns the named field as a string, or "" when absent or not a
// string.
func (r Record) Str(field string) string {
	s, _ := r.Fields[field].(string)
	return s
}

// Subscription is a handle for an active change feed. Cancel stops further
// delivery; it has no effect on stored data and is safe to call more than
// once.
type Subscription interface {
	Cancel()
}

// Store is the persistence contract. Every call is independent: no
// cross-call transaction is assumed, and callers must treat the store as
// the single source of truth rather than caching authoritative state.
type Store interface {
	// Create inserts a record, assigning its id and CreatedAt.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// CreateWithID inserts a record under a caller-chosen id, failing with
	// ErrDuplicateID when the id is already taken. The check and insert are
	// a single conditional write, not a read followed by a write.
	CreateWithID(ctx context.Context, collection, id string, fields map[string]any) error

	// Query returns all records matching every predicate.
	Query(ctx context.Context, collection string, preds []Predicate) ([]Record, error)

	// Update merges fields into the record with the given id; ErrNotFound
	// when no such record exists.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the record with the given id. Deleting an absent
	// record is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe invokes onChange with the full current matching set (not a
	// diff) once immediately and again after every change to the
	// collection. Delivery stops when the subscription is cancelled or ctx
	// is done.
	Subscribe(ctx context.Context, collection string, preds []Predicate, onChange func([]Record)) (Subscription, error)
}

// Matches reports whether the record satisfies every predicate. Array
// membership accepts []string and []any valued fields.
func Matches(r Record, preds []Predicate) bool {
	for _, p := range preds {
		v, ok := r.Fields[p.Field]
		if !ok {
			return false
		}
		switch p.Op {
		case Eq:
			if v != p.Value {
				return false
			}
		case ArrayContains:
			if !arrayContains(v, p.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func arrayContains(field, want any) bool {
	switch arr := field.(type) {
	case []string:
		for _, e := range arr {
			if e == want {
				return true
			}
		}
	case []any:
		for _, e := range arr {
			if e == want {
				return true
			}
		}
	}
	return false
}
