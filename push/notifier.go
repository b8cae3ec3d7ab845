package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/SherClockHolmes/webpush-go"

	"crewchat/store"
)

const (
	sendTTL     = 30
	lookupLimit = 5 * time.Second
	maxBodyLen  = 100
)

// WebPushNotifier delivers a browser push notification to the receiver of a
// stored message. It implements chat.Notifier: every notification runs in its
// own goroutine and can never fail or delay a send.
type WebPushNotifier struct {
	subs       store.PushStore
	subscriber string
	publicKey  string
	privateKey string
}

func NewWebPushNotifier(subs store.PushStore, subscriber, publicKey, privateKey string) *WebPushNotifier {
	return &WebPushNotifier{
		subs:       subs,
		subscriber: subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

func (n *WebPushNotifier) NotifyMessage(receiverID, senderID, text string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in push notification: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), lookupLimit)
		defer cancel()

		sub, err := n.subs.FindByUser(ctx, receiverID)
		if err != nil {
			log.Printf("Failed to find push subscription for %q: %v", receiverID, err)
			return
		}
		if sub == nil {
			return
		}

		payload, err := json.Marshal(map[string]interface{}{
			"title": senderID + " sent you a message",
			"body":  truncateBody(text),
		})
		if err != nil {
			log.Printf("Failed to marshal push payload: %v", err)
			return
		}

		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      n.subscriber,
			VAPIDPublicKey:  n.publicKey,
			VAPIDPrivateKey: n.privateKey,
			TTL:             sendTTL,
		})
		if err != nil {
			log.Printf("Failed to send push to %q: %v", receiverID, err)
			return
		}
		defer resp.Body.Close()

		// A Gone push service response means the browser dropped the
		// subscription; keeping it would fail every future notification.
		if resp.StatusCode == http.StatusGone {
			log.Printf("Push subscription expired for %q, deleting", receiverID)
			if delErr := n.subs.Delete(ctx, receiverID); delErr != nil {
				log.Printf("Failed to delete expired subscription for %q: %v", receiverID, delErr)
			}
		}
	}()
}

// truncateBody shortens the notification preview without splitting a rune.
func truncateBody(text string) string {
	if len(text) <= maxBodyLen {
		return text
	}
	cut := maxBodyLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
