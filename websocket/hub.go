package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"crewchat/models"
)

// Hub is the connection registry: it maps a user identifier to the set of
// live connections joined to that user's room. Multiple connections per user
// are allowed (multi-device). A client with no user identifier is tracked for
// lifecycle purposes but belongs to no room and never receives deliveries.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register adds the client and, when it carries a user identifier, joins it
// to that room. Joining without an identifier is not an error.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	if c.userID != "" {
		room := h.rooms[c.userID]
		if room == nil {
			room = make(map[*Client]bool)
			h.rooms[c.userID] = room
		}
		room[c] = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("✅ WebSocket client registered (user=%q). Total clients: %d", c.userID, total)
}

// Unregister drops the client from its room and closes its send channel.
// Safe to call more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.closeSend()
	if c.userID != "" {
		if room := h.rooms[c.userID]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.userID)
			}
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("❌ WebSocket client unregistered (user=%q). Total clients: %d", c.userID, total)
}

// EmitToRoom delivers payload to every connection joined to userID's room and
// returns the number of deliveries. Membership is snapshotted before sending,
// so room mutation cannot race the iteration. A client whose send buffer is
// full is dropped rather than blocking the emit.
func (h *Hub) EmitToRoom(userID string, payload []byte) int {
	h.mu.RLock()
	room := h.rooms[userID]
	members := make([]*Client, 0, len(room))
	for c := range room {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range members {
		switch c.trySend(payload) {
		case sendOK:
			delivered++
		case sendBufferFull:
			log.Printf("⚠️ Dropping slow WebSocket client (user=%q)", c.userID)
			h.Unregister(c)
		case sendClosed:
			// Torn down between the snapshot and the send; nothing to do.
		}
	}
	return delivered
}

// BroadcastMessage implements chat.Broadcaster: the accepted message is
// emitted to the sender's and the receiver's rooms with the persisted
// timestamp. No acknowledgment is awaited; an empty room drops the delivery.
func (h *Hub) BroadcastMessage(senderID, receiverID string, msg models.Message) {
	payload, err := json.Marshal(outEnvelope{
		Type: EventReceiveMessage,
		Payload: deliveryEvent{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Message:    msg,
		},
	})
	if err != nil {
		log.Printf("❌ Error marshaling receive_message event: %v", err)
		return
	}

	h.EmitToRoom(senderID, payload)
	if receiverID != senderID {
		h.EmitToRoom(receiverID, payload)
	}
}

// ConnectedClients reports the number of live connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
