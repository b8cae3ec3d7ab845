package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatDocument is the per-user chat aggregate. There is exactly one document
// per user, created lazily by the first message that touches that user.
// Each document only records its owner's view of every conversation.
type ChatDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID        string             `bson:"userId" json:"userId"`
	CoworkerChats []CoworkerChat     `bson:"coworkerChats" json:"coworkerChats"`
}

// CoworkerChat is one conversation thread from the owning user's perspective,
// keyed by the coworker on the other side. Outgoing and incoming messages are
// kept in separate append-only logs.
type CoworkerChat struct {
	CoworkerID      string    `bson:"coworkerId" json:"coworkerId"`
	MessageSent     []Message `bson:"messageSent" json:"messageSent"`
	MessageReceived []Message `bson:"messageReceived" json:"messageReceived"`
}

// Message is append-only, never mutated or deleted.
type Message struct {
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Thread returns the conversation entry for the given coworker, if present.
func (d *ChatDocument) Thread(coworkerID string) (CoworkerChat, bool) {
	if d == nil {
		return CoworkerChat{}, false
	}
	for _, cw := range d.CoworkerChats {
		if cw.CoworkerID == coworkerID {
			return cw, true
		}
	}
	return CoworkerChat{}, false
}
