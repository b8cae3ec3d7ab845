package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crewchat/chat"
	"crewchat/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 8192
	sendTimeout    = 10 * time.Second
)

// Client is one websocket connection bound to at most one user identifier.
type Client struct {
	id     string
	userID string

	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	service *chat.Service

	// sendMu serializes sends on the channel with its close, so an emit
	// holding a stale room snapshot cannot write to a closed channel.
	sendMu sync.Mutex
	closed bool
}

type sendResult int

const (
	sendOK sendResult = iota
	sendBufferFull
	sendClosed
)

// trySend buffers payload without blocking. It never panics: once closeSend
// has run, every subsequent call reports sendClosed.
func (c *Client) trySend(payload []byte) sendResult {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return sendClosed
	}
	select {
	case c.send <- payload:
		return sendOK
	default:
		return sendBufferFull
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the request and binds the connection to an identity.
// Identity comes from a valid access token when one is supplied, otherwise
// from the userId query parameter. A connection with neither joins no room
// and proceeds without error; it simply never receives deliveries.
func Handler(hub *Hub, service *chat.Service, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if token := r.URL.Query().Get("token"); token != "" {
			id, err := middleware.ParseUserID(token, jwtSecret)
			if err != nil {
				log.Printf("⚠️ WebSocket token rejected, connection stays unjoined: %v", err)
			} else {
				userID = id
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			id:      uuid.NewString(),
			userID:  userID,
			conn:    conn,
			send:    make(chan []byte, 256),
			hub:     hub,
			service: service,
		}

		hub.Register(client)
		client.enqueue(outEnvelope{
			Type: EventConnected,
			Payload: map[string]interface{}{
				"userId": userID,
				"time":   time.Now().Unix(),
			},
		})

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("❌ WebSocket envelope unmarshal error: %v", err)
			c.sendError("Invalid message format")
			continue
		}

		switch env.Type {
		case EventSendMessage:
			c.handleSendMessage(env.Payload)
		case EventPing:
			c.enqueue(outEnvelope{
				Type:    EventPong,
				Payload: map[string]interface{}{"time": time.Now().Unix()},
			})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleSendMessage runs the ingestion pipeline for a send_message event.
// Failures are reported only to the originating connection; the service
// broadcasts accepted messages itself.
func (c *Client) handleSendMessage(payload json.RawMessage) {
	var in chat.SendInput
	if err := json.Unmarshal(payload, &in); err != nil {
		c.sendError("Invalid send_message payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if _, err := c.service.Send(ctx, in); err != nil {
		log.Printf("❌ Error saving message from %q: %v", in.SenderID, err)
		if errors.Is(err, chat.ErrValidation) {
			c.sendError("senderId, receiverId and messageText are required")
		} else {
			c.sendError("Error saving message")
		}
	}
}

func (c *Client) sendError(message string) {
	c.enqueue(outEnvelope{
		Type:    EventError,
		Payload: errorEvent{Message: message},
	})
}

// enqueue marshals and buffers an outbound event for this connection only.
// A full buffer drops the event rather than blocking the read loop.
func (c *Client) enqueue(env outEnvelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("❌ Error marshaling %s event: %v", env.Type, err)
		return
	}
	if c.trySend(msg) == sendBufferFull {
		log.Printf("⚠️ Outbound buffer full, dropping %s event (user=%q)", env.Type, c.userID)
	}
}
