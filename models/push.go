package models

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription stores one web-push subscription per user. Re-subscribing
// replaces the previous endpoint.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	UserID string               `bson:"userId" json:"userId"`
	Sub    webpush.Subscription `bson:"sub" json:"sub"`
}
