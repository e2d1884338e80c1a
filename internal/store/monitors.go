package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/whattobuild/internal/models"
)

// CreateMonitor inserts an active monitor. A second monitor for the same
// (user, niche) returns ErrDuplicate.
func (s *MongoStore) CreateMonitor(ctx context.Context, m *models.MonitoredNiche) error {
	m.Status = models.MonitorActive
	m.CreatedAt = time.Now().UTC()
	res, err := s.monitors.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("monitor %q: %w", m.Niche, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("mongo insert monitor: %w", err)
	}
	m.ID = insertedID(res)
	return nil
}

func (s *MongoStore) ListMonitors(ctx context.Context, userID string) ([]models.MonitoredNiche, error) {
	return findAll[models.MonitoredNiche](ctx, s.monitors, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

func (s *MongoStore) ListActiveMonitors(ctx context.Context) ([]models.MonitoredNiche, error) {
	return findAll[models.MonitoredNiche](ctx, s.monitors, bson.M{"status": models.MonitorActive}, options.Find())
}

// SetMonitorStatus changes the status of a monitor owned by userID.
func (s *MongoStore) SetMonitorStatus(ctx context.Context, id, userID string, status models.MonitorStatus) (*models.MonitoredNiche, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var m models.MonitoredNiche
	err = s.monitors.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MongoStore) DeleteMonitor(ctx context.Context, id, userID string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := s.monitors.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo delete monitor: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordMonitorRun stores the last run time and the request it produced.
func (s *MongoStore) RecordMonitorRun(ctx context.Context, id primitive.ObjectID, requestID string, at time.Time) error {
	_, err := s.monitors.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_run_at": at, "last_request_id": requestID}},
	)
	if err != nil {
		return fmt.Errorf("mongo record monitor run: %w", err)
	}
	return nil
}
