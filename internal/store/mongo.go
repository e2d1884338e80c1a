package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore handles research requests, results, monitors and saved ideas in MongoDB.
type MongoStore struct {
	requests *mongo.Collection
	results  *mongo.Collection
	monitors *mongo.Collection
	ideas    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		requests: db.Collection("requests"),
		results:  db.Collection("results"),
		monitors: db.Collection("monitors"),
		ideas:    db.Collection("ideas"),
	}
}

// EnsureIndexes creates the lookup indexes and the unique constraints the
// service relies on: one result per request, one monitor per (user, niche).
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		col   *mongo.Collection
		model mongo.IndexModel
	}{
		{s.requests, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		{s.requests, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}}},
		{s.results, mongo.IndexModel{
			Keys:    bson.D{{Key: "request_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.monitors, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "niche", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.monitors, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
		{s.ideas, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}},
	}
	for _, sp := range specs {
		if _, err := sp.col.Indexes().CreateOne(ctx, sp.model); err != nil {
			return fmt.Errorf("mongo index on %s: %w", sp.col.Name(), err)
		}
	}
	return nil
}

// ParseID converts a hex id from a URL into an ObjectID. Malformed ids are
// reported as ErrNotFound.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, ErrNotFound)
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func insertedID(res *mongo.InsertOneResult) primitive.ObjectID {
	oid, _ := res.InsertedID.(primitive.ObjectID)
	return oid
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}}
