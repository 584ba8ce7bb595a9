package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/landsalelk/landsalelk-sub006/internal/db"
)

// MongoStore implements Store on top of a *mongo.Database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a Store backed by the given Mongo database.
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{db: database}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("error fetching %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string, q Query, out interface{}) error {
	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filtersToBson(q.Filters), opts)
	if err != nil {
		return fmt.Errorf("error listing %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("error decoding %s results: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	fields, err := toDocument(doc)
	if err != nil {
		return fmt.Errorf("error encoding %s document: %w", collection, err)
	}
	fields["_id"] = id

	operation := func() error {
		_, insertErr := s.db.Collection(collection).InsertOne(ctx, fields)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("error creating %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.UpdateMatching(ctx, collection, id, nil, fields)
}

func (s *MongoStore) UpdateMatching(ctx context.Context, collection, id string, guard []Filter, fields map[string]interface{}) error {
	filter := filtersToBson(guard)
	filter["_id"] = id

	result, err := s.db.Collection(collection).UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("error updating %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func filtersToBson(filters []Filter) bson.M {
	out := bson.M{}
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			out[f.Field] = f.Value
		case OpLt:
			out[f.Field] = mergeRange(out[f.Field], "$lt", f.Value)
		case OpGt:
			out[f.Field] = mergeRange(out[f.Field], "$gt", f.Value)
		}
	}
	return out
}

// mergeRange lets $lt and $gt on the same field combine into one range doc.
func mergeRange(existing interface{}, op string, value interface{}) bson.M {
	rangeDoc, ok := existing.(bson.M)
	if !ok {
		rangeDoc = bson.M{}
	}
	rangeDoc[op] = value
	return rangeDoc
}

// toDocument converts an arbitrary document struct into a bson.M so the
// caller-supplied ID can be injected as _id.
func toDocument(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
