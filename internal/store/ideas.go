package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/whattobuild/internal/models"
)

func (s *MongoStore) CreateIdea(ctx context.Context, idea *models.SavedIdea) error {
	idea.CreatedAt = time.Now().UTC()
	if idea.Status == "" {
		idea.Status = models.IdeaSaved
	}
	res, err := s.ideas.InsertOne(ctx, idea)
	if err != nil {
		return fmt.Errorf("mongo insert idea: %w", err)
	}
	idea.ID = insertedID(res)
	return nil
}

func (s *MongoStore) ListIdeas(ctx context.Context, userID string) ([]models.SavedIdea, error) {
	return findAll[models.SavedIdea](ctx, s.ideas, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

// UpdateIdea sets the non-nil fields on an idea owned by userID.
func (s *MongoStore) UpdateIdea(ctx context.Context, id, userID string, status *models.IdeaStatus, notes *string) (*models.SavedIdea, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if status != nil {
		set["status"] = *status
	}
	if notes != nil {
		set["notes"] = *notes
	}

	filter := bson.M{"_id": oid, "user_id": userID}
	var idea models.SavedIdea
	if len(set) == 0 {
		err = s.ideas.FindOne(ctx, filter).Decode(&idea)
	} else {
		err = s.ideas.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&idea)
	}
	if err != nil {
		return nil, notFound(err)
	}
	return &idea, nil
}

func (s *MongoStore) DeleteIdea(ctx context.Context, id, userID string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := s.ideas.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo delete idea: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
