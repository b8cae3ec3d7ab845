package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crewchat/models"
)

// PushStore persists one web-push subscription per user.
type PushStore interface {
	Upsert(ctx context.Context, sub models.PushSubscription) error
	// FindByUser returns (nil, nil) when the user has no subscription.
	FindByUser(ctx context.Context, userID string) (*models.PushSubscription, error)
	Delete(ctx context.Context, userID string) error
}

type MongoPushStore struct {
	coll *mongo.Collection
}

func NewMongoPushStore(coll *mongo.Collection) *MongoPushStore {
	return &MongoPushStore{coll: coll}
}

func (s *MongoPushStore) Upsert(ctx context.Context, sub models.PushSubscription) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": sub.UserID},
		bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoPushStore) FindByUser(ctx context.Context, userID string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *MongoPushStore) Delete(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
