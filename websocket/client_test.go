package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"crewchat/chat"
	"crewchat/models"
	"crewchat/store"
)

// memStore is an in-memory stand-in for the Mongo chat store.
type memStore struct {
	mu   sync.Mutex
	docs map[string]*models.ChatDocument
}

var _ store.ChatStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*models.ChatDocument)}
}

func (m *memStore) FindByUser(_ context.Context, userID string) (*models.ChatDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[userID], nil
}

func (m *memStore) AppendSent(_ context.Context, userID, coworkerID string, msg models.Message) error {
	m.append(userID, coworkerID, msg, true)
	return nil
}

func (m *memStore) AppendReceived(_ context.Context, userID, coworkerID string, msg models.Message) error {
	m.append(userID, coworkerID, msg, false)
	return nil
}

func (m *memStore) FindBetween(context.Context, string, string) ([]models.ChatDocument, error) {
	return nil, nil
}

func (m *memStore) append(userID, coworkerID string, msg models.Message, sent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.docs[userID]
	if doc == nil {
		doc = &models.ChatDocument{UserID: userID}
		m.docs[userID] = doc
	}
	for i := range doc.CoworkerChats {
		if doc.CoworkerChats[i].CoworkerID == coworkerID {
			if sent {
				doc.CoworkerChats[i].MessageSent = append(doc.CoworkerChats[i].MessageSent, msg)
			} else {
				doc.CoworkerChats[i].MessageReceived = append(doc.CoworkerChats[i].MessageReceived, msg)
			}
			return
		}
	}
	cw := models.CoworkerChat{CoworkerID: coworkerID}
	if sent {
		cw.MessageSent = []models.Message{msg}
	} else {
		cw.MessageReceived = []models.Message{msg}
	}
	doc.CoworkerChats = append(doc.CoworkerChats, cw)
}

func dial(t *testing.T, serverURL, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// First frame is always the connected event.
	env := readEvent(t, conn)
	require.Equal(t, EventConnected, env.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func writeEvent(t *testing.T, conn *websocket.Conn, eventType string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(outEnvelope{Type: eventType, Payload: payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func TestWebSocket_SendMessageDeliversToBothRooms(t *testing.T) {
	req := require.New(t)

	st := newMemStore()
	hub := NewHub()
	svc := chat.NewService(st, hub, nil)
	server := httptest.NewServer(Handler(hub, svc, "secret"))
	defer server.Close()

	sender := dial(t, server.URL, "?userId=u1")
	receiver := dial(t, server.URL, "?userId=u2")
	unjoined := dial(t, server.URL, "")

	writeEvent(t, sender, EventSendMessage, chat.SendInput{
		SenderID:    "u1",
		ReceiverID:  "u2",
		MessageText: "hello",
	})

	for _, conn := range []*websocket.Conn{sender, receiver} {
		env := readEvent(t, conn)
		req.Equal(EventReceiveMessage, env.Type)

		var delivery deliveryEvent
		req.NoError(json.Unmarshal(env.Payload, &delivery))
		req.Equal("u1", delivery.SenderID)
		req.Equal("u2", delivery.ReceiverID)
		req.Equal("hello", delivery.Message.Text)
	}

	// Both sides are durably recorded with the broadcast timestamp.
	senderDoc, err := st.FindByUser(context.Background(), "u1")
	req.NoError(err)
	thread, ok := senderDoc.Thread("u2")
	req.True(ok)
	req.Len(thread.MessageSent, 1)
	req.Equal("hello", thread.MessageSent[0].Text)

	receiverDoc, err := st.FindByUser(context.Background(), "u2")
	req.NoError(err)
	thread, ok = receiverDoc.Thread("u1")
	req.True(ok)
	req.Len(thread.MessageReceived, 1)

	// The identifier-less connection never receives channel deliveries.
	unjoined.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = unjoined.ReadMessage()
	req.Error(err)
}

func TestWebSocket_ValidationErrorGoesToOriginatorOnly(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	svc := chat.NewService(newMemStore(), hub, nil)
	server := httptest.NewServer(Handler(hub, svc, "secret"))
	defer server.Close()

	sender := dial(t, server.URL, "?userId=u1")
	other := dial(t, server.URL, "?userId=u2")

	writeEvent(t, sender, EventSendMessage, chat.SendInput{
		SenderID:   "u1",
		ReceiverID: "u2",
		// messageText missing
	})

	env := readEvent(t, sender)
	req.Equal(EventError, env.Type)

	var errPayload errorEvent
	req.NoError(json.Unmarshal(env.Payload, &errPayload))
	req.NotEmpty(errPayload.Message)

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	req.Error(err)
}

func TestWebSocket_PingPong(t *testing.T) {
	req := require.New(t)

	hub := NewHub()
	svc := chat.NewService(newMemStore(), hub, nil)
	server := httptest.NewServer(Handler(hub, svc, "secret"))
	defer server.Close()

	conn := dial(t, server.URL, "?userId=u1")
	writeEvent(t, conn, EventPing, nil)

	env := readEvent(t, conn)
	req.Equal(EventPong, env.Type)
}
