package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore is an in-memory Store used by tests and by MOCK_SERVICES runs.
// Documents are normalized through a BSON round trip so field names and
// value types behave the same as with the Mongo implementation.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string]map[string]bson.M)}
}

func (s *MemStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decodeDocument(doc, out)
}

func (s *MemStore) List(ctx context.Context, collection string, q Query, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic iteration

	var matched []bson.M
	for _, id := range ids {
		doc := s.collections[collection][id]
		if matchesAll(doc, q.Filters) {
			matched = append(matched, doc)
			if q.Limit > 0 && int64(len(matched)) >= q.Limit {
				break
			}
		}
	}

	slicePtr := reflect.ValueOf(out)
	if slicePtr.Kind() != reflect.Ptr || slicePtr.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("List out argument must be a pointer to a slice, got %T", out)
	}
	sliceVal := slicePtr.Elem()
	elemType := sliceVal.Type().Elem()

	result := reflect.MakeSlice(sliceVal.Type(), 0, len(matched))
	for _, doc := range matched {
		elem := reflect.New(elemType)
		if err := decodeDocument(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	sliceVal.Set(result)
	return nil
}

func (s *MemStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	fields, err := normalizeDocument(doc)
	if err != nil {
		return err
	}
	fields["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]bson.M)
	}
	if _, exists := s.collections[collection][id]; exists {
		return fmt.Errorf("duplicate document id %s in %s", id, collection)
	}
	s.collections[collection][id] = fields
	return nil
}

func (s *MemStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.UpdateMatching(ctx, collection, id, nil, fields)
}

func (s *MemStore) UpdateMatching(ctx context.Context, collection, id string, guard []Filter, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok || !matchesAll(doc, guard) {
		return ErrNotFound
	}
	for field, value := range fields {
		doc[field] = normalizeValue(value)
	}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func decodeDocument(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding stored document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("error decoding stored document: %w", err)
	}
	return nil
}

func normalizeDocument(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding document: %w", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("error normalizing document: %w", err)
	}
	return fields, nil
}

// normalizeValue maps update values onto the same representation a BSON
// round trip would produce, so subsequent filters compare like-for-like.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return primitive.NewDateTimeFromTime(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return primitive.NewDateTimeFromTime(*v)
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.String {
			return rv.String()
		}
		return value
	}
}

func matchesAll(doc bson.M, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc bson.M, f Filter) bool {
	stored, ok := doc[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return compareEq(stored, f.Value)
	case OpLt:
		cmp, ok := compareOrder(stored, f.Value)
		return ok && cmp < 0
	case OpGt:
		cmp, ok := compareOrder(stored, f.Value)
		return ok && cmp > 0
	}
	return false
}

func compareEq(stored, value interface{}) bool {
	if t1, ok1 := asTime(stored); ok1 {
		if t2, ok2 := asTime(value); ok2 {
			return t1.Equal(t2)
		}
		return false
	}
	if n1, ok1 := asFloat(stored); ok1 {
		if n2, ok2 := asFloat(value); ok2 {
			return n1 == n2
		}
	}
	if s1, ok1 := asString(stored); ok1 {
		if s2, ok2 := asString(value); ok2 {
			return s1 == s2
		}
	}
	return reflect.DeepEqual(stored, value)
}

func compareOrder(stored, value interface{}) (int, bool) {
	if t1, ok1 := asTime(stored); ok1 {
		t2, ok2 := asTime(value)
		if !ok2 {
			return 0, false
		}
		switch {
		case t1.Before(t2):
			return -1, true
		case t1.After(t2):
			return 1, true
		}
		return 0, true
	}
	n1, ok1 := asFloat(stored)
	n2, ok2 := asFloat(value)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case n1 < n2:
		return -1, true
	case n1 > n2:
		return 1, true
	}
	return 0, true
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
