// Package store abstracts the document database behind the narrow
// query/update surface this service actually uses: get by ID, filtered
// bounded lists, single-document creates and updates. Components receive a
// Store at construction time so tests can substitute the in-memory
// implementation.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the target document does not exist (or, for
// guarded updates, no longer matches the guard).
var ErrNotFound = errors.New("document not found")

// Op is a filter comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpLt Op = "lt"
	OpGt Op = "gt"
)

// Filter is a single field comparison.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Eq matches documents whose field equals value.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Lt matches documents whose field is strictly less than value.
func Lt(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpLt, Value: value}
}

// Gt matches documents whose field is strictly greater than value.
func Gt(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpGt, Value: value}
}

// Query bounds a List call. A zero Limit means no bound.
type Query struct {
	Filters []Filter
	Limit   int64
}

// Store is the consumed document-store interface. All writes are
// single-document; cross-document consistency is not provided.
type Store interface {
	// Get decodes the document with the given ID into out.
	Get(ctx context.Context, collection, id string, out interface{}) error
	// List decodes all documents matching the query into out, which must be
	// a pointer to a slice.
	List(ctx context.Context, collection string, q Query, out interface{}) error
	// Create inserts a new document under the given ID.
	Create(ctx context.Context, collection, id string, doc interface{}) error
	// Update applies a partial field update to one document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// UpdateMatching applies a partial field update to one document only if
	// it still matches every guard filter; ErrNotFound otherwise. This is
	// the only concurrency control in the system: state transitions guard on
	// the current status field.
	UpdateMatching(ctx context.Context, collection, id string, guard []Filter, fields map[string]interface{}) error
	// Delete removes one document.
	Delete(ctx context.Context, collection, id string) error
}
