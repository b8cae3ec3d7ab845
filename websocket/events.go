package websocket

import (
	"encoding/json"

	"crewchat/models"
)

// Wire event names.
const (
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
	EventConnected      = "connected"
	EventPing           = "ping"
	EventPong           = "pong"
)

// envelope frames every websocket message in both directions.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// deliveryEvent is the receive_message payload sent to both rooms.
type deliveryEvent struct {
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId"`
	Message    models.Message `json:"message"`
}

type errorEvent struct {
	Message string `json:"message"`
}
