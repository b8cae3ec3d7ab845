package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crewchat/models"
)

// ChatStore persists per-user chat documents. Appends are atomic with respect
// to the owning document, so concurrent sends touching the same user cannot
// lose updates.
type ChatStore interface {
	// FindByUser returns (nil, nil) when the user has no document yet.
	FindByUser(ctx context.Context, userID string) (*models.ChatDocument, error)
	AppendSent(ctx context.Context, userID, coworkerID string, msg models.Message) error
	AppendReceived(ctx context.Context, userID, coworkerID string, msg models.Message) error
	// FindBetween returns every document owned by one of the two users that
	// holds a thread for the other.
	FindBetween(ctx context.Context, userA, userB string) ([]models.ChatDocument, error)
}

type MongoChatStore struct {
	coll *mongo.Collection
}

func NewMongoChatStore(coll *mongo.Collection) *MongoChatStore {
	return &MongoChatStore{coll: coll}
}

// EnsureIndexes creates the unique userId index the upsert path relies on.
func (s *MongoChatStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoChatStore) FindByUser(ctx context.Context, userID string) (*models.ChatDocument, error) {
	var doc models.ChatDocument
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoChatStore) AppendSent(ctx context.Context, userID, coworkerID string, msg models.Message) error {
	return s.appendMessage(ctx, userID, coworkerID, "messageSent", msg)
}

func (s *MongoChatStore) AppendReceived(ctx context.Context, userID, coworkerID string, msg models.Message) error {
	return s.appendMessage(ctx, userID, coworkerID, "messageReceived", msg)
}

// appendMessage runs three single-document updates: ensure the document
// exists, ensure the thread entry exists, push the message. Mongo serializes
// writes per document, so the $ne guard cannot admit a duplicate thread and
// a concurrent append cannot be overwritten by stale state.
func (s *MongoChatStore) appendMessage(ctx context.Context, userID, coworkerID, field string, msg models.Message) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$setOnInsert": bson.M{"userId": userID, "coworkerChats": bson.A{}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ensure chat document for %q: %w", userID, err)
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "coworkerChats.coworkerId": bson.M{"$ne": coworkerID}},
		bson.M{"$push": bson.M{"coworkerChats": models.CoworkerChat{
			CoworkerID:      coworkerID,
			MessageSent:     []models.Message{},
			MessageReceived: []models.Message{},
		}}},
	)
	if err != nil {
		return fmt.Errorf("ensure thread %q/%q: %w", userID, coworkerID, err)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "coworkerChats.coworkerId": coworkerID},
		bson.M{"$push": bson.M{"coworkerChats.$." + field: msg}},
	)
	if err != nil {
		return fmt.Errorf("append message %q/%q: %w", userID, coworkerID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("append message %q/%q: thread entry missing after ensure", userID, coworkerID)
	}
	return nil
}

func (s *MongoChatStore) FindBetween(ctx context.Context, userA, userB string) ([]models.ChatDocument, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"userId": userA, "coworkerChats.coworkerId": userB},
		bson.M{"userId": userB, "coworkerChats.coworkerId": userA},
	}}

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.ChatDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
