package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/whattobuild/internal/models"
)

// CreateRequest inserts req in pending state and returns its id.
func (s *MongoStore) CreateRequest(ctx context.Context, req *models.ResearchRequest) (string, error) {
	now := time.Now().UTC()
	req.Status = models.StatusPending
	req.CreditsUsed = 0
	req.CreatedAt = now
	req.UpdatedAt = now

	res, err := s.requests.InsertOne(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mongo insert request: %w", err)
	}
	req.ID = insertedID(res)
	return req.ID.Hex(), nil
}

func (s *MongoStore) GetRequest(ctx context.Context, id string) (*models.ResearchRequest, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var req models.ResearchRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": oid}).Decode(&req); err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// ListRequests returns a user's requests, newest first.
func (s *MongoStore) ListRequests(ctx context.Context, userID string, limit int64) ([]models.ResearchRequest, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findAll[models.ResearchRequest](ctx, s.requests, bson.M{"user_id": userID}, opts)
}

// Transition moves a request to status to. The update only matches when the
// stored status is a legal predecessor, so concurrent or replayed writes can
// never move a request backwards or out of a terminal state.
func (s *MongoStore) Transition(ctx context.Context, id string, to models.Status, errMsg string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	from := models.Predecessors(to)
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %q", ErrInvalidTransition, to)
	}

	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	res, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("mongo transition: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, oid, to)
	}
	return nil
}

func (s *MongoStore) explainMiss(ctx context.Context, oid any, to models.Status) error {
	var cur struct {
		Status models.Status `bson:"status"`
	}
	err := s.requests.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&cur)
	if err != nil {
		return notFound(err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
}

// ResetFailed puts a failed request back to pending and removes any result a
// partial run left behind.
func (s *MongoStore) ResetFailed(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": oid, "status": models.StatusFailed},
		bson.M{
			"$set":   bson.M{"status": models.StatusPending, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"error": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo reset request: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, oid, models.StatusPending)
	}
	if _, err := s.results.DeleteOne(ctx, bson.M{"request_id": id}); err != nil {
		return fmt.Errorf("mongo reset result: %w", err)
	}
	return nil
}

// MarkCharged records the credits debited for a request. It only sets the
// field once.
func (s *MongoStore) MarkCharged(ctx context.Context, id string, credits int) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	_, err = s.requests.UpdateOne(ctx,
		bson.M{"_id": oid, "credits_used": 0},
		bson.M{"$set": bson.M{"credits_used": credits}},
	)
	if err != nil {
		return fmt.Errorf("mongo mark charged: %w", err)
	}
	return nil
}

// ListStale returns non-terminal requests not updated since before.
func (s *MongoStore) ListStale(ctx context.Context, before time.Time) ([]models.ResearchRequest, error) {
	filter := bson.M{
		"status":     bson.M{"$nin": []models.Status{models.StatusDone, models.StatusFailed}},
		"updated_at": bson.M{"$lt": before},
	}
	return findAll[models.ResearchRequest](ctx, s.requests, filter, options.Find())
}

// SaveResult inserts the single result for a request.
func (s *MongoStore) SaveResult(ctx context.Context, res *models.ResearchResult) error {
	res.CreatedAt = time.Now().UTC()
	out, err := s.results.InsertOne(ctx, res)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("request %s: %w", res.RequestID, ErrResultExists)
	}
	if err != nil {
		return fmt.Errorf("mongo insert result: %w", err)
	}
	res.ID = insertedID(out)
	return nil
}

func (s *MongoStore) GetResult(ctx context.Context, requestID string) (*models.ResearchResult, error) {
	var res models.ResearchResult
	if err := s.results.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&res); err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// ReplaceSolutions overwrites the solutions of each pain point in order,
// leaving every other field untouched.
func (s *MongoStore) ReplaceSolutions(ctx context.Context, requestID string, solutions [][]models.Solution) error {
	set := bson.M{}
	for i, sols := range solutions {
		set[fmt.Sprintf("pain_points.%d.solutions", i)] = sols
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.results.UpdateOne(ctx, bson.M{"request_id": requestID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo replace solutions: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
