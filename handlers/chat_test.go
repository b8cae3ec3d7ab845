package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"crewchat/chat"
	"crewchat/models"
)

// stubStore serves canned documents to the query service.
type stubStore struct {
	docs    map[string]*models.ChatDocument
	failAll bool
}

func (s *stubStore) FindByUser(_ context.Context, userID string) (*models.ChatDocument, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	return s.docs[userID], nil
}

func (s *stubStore) AppendSent(context.Context, string, string, models.Message) error {
	return errors.New("not used")
}

func (s *stubStore) AppendReceived(context.Context, string, string, models.Message) error {
	return errors.New("not used")
}

func (s *stubStore) FindBetween(_ context.Context, userA, userB string) ([]models.ChatDocument, error) {
	if s.failAll {
		return nil, errors.New("store down")
	}
	var out []models.ChatDocument
	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		if doc := s.docs[pair[0]]; doc != nil {
			if _, ok := doc.Thread(pair[1]); ok {
				out = append(out, *doc)
			}
		}
	}
	return out, nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastMessage(string, string, models.Message) {}

func newTestRouter(st *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(chat.NewService(st, noopBroadcaster{}, nil))

	r := gin.New()
	r.GET("/api/chats/thread", h.GetThread)
	r.GET("/api/chats/trace", h.TraceBetween)
	return r
}

func doRequest(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func bilateralStore() *stubStore {
	now := time.Now().UTC()
	return &stubStore{docs: map[string]*models.ChatDocument{
		"u1": {
			UserID: "u1",
			CoworkerChats: []models.CoworkerChat{{
				CoworkerID:  "u2",
				MessageSent: []models.Message{{Text: "hello", Timestamp: now}},
			}},
		},
		"u2": {
			UserID: "u2",
			CoworkerChats: []models.CoworkerChat{{
				CoworkerID:      "u1",
				MessageReceived: []models.Message{{Text: "hello", Timestamp: now}},
			}},
		},
	}}
}

func TestGetThread(t *testing.T) {
	t.Run("missing parameters is 400", func(t *testing.T) {
		router := newTestRouter(&stubStore{})

		w := doRequest(t, router, "/api/chats/thread?userId=u1")
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = doRequest(t, router, "/api/chats/thread?coworkerId=u2")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown user is 200 with empty list", func(t *testing.T) {
		req := require.New(t)
		router := newTestRouter(&stubStore{})

		w := doRequest(t, router, "/api/chats/thread?userId=ghost&coworkerId=u2")
		req.Equal(http.StatusOK, w.Code)

		var body struct {
			CoworkerChats []models.CoworkerChat `json:"coworkerChats"`
		}
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Empty(body.CoworkerChats)
	})

	t.Run("unknown coworker is 200 with empty list", func(t *testing.T) {
		req := require.New(t)
		router := newTestRouter(bilateralStore())

		w := doRequest(t, router, "/api/chats/thread?userId=u1&coworkerId=stranger")
		req.Equal(http.StatusOK, w.Code)

		var body struct {
			CoworkerChats []models.CoworkerChat `json:"coworkerChats"`
		}
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Empty(body.CoworkerChats)
	})

	t.Run("existing thread is returned", func(t *testing.T) {
		req := require.New(t)
		router := newTestRouter(bilateralStore())

		w := doRequest(t, router, "/api/chats/thread?userId=u1&coworkerId=u2")
		req.Equal(http.StatusOK, w.Code)

		var body struct {
			CoworkerChats []models.CoworkerChat `json:"coworkerChats"`
		}
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Len(body.CoworkerChats, 1)
		req.Equal("u2", body.CoworkerChats[0].CoworkerID)
		req.Len(body.CoworkerChats[0].MessageSent, 1)
	})

	t.Run("store failure is 500", func(t *testing.T) {
		router := newTestRouter(&stubStore{failAll: true})

		w := doRequest(t, router, "/api/chats/thread?userId=u1&coworkerId=u2")
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTraceBetween(t *testing.T) {
	t.Run("missing parameters is 400", func(t *testing.T) {
		router := newTestRouter(&stubStore{})

		w := doRequest(t, router, "/api/chats/trace?employeeId1=u1")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no conversation is 200 with empty list", func(t *testing.T) {
		req := require.New(t)
		router := newTestRouter(&stubStore{})

		w := doRequest(t, router, "/api/chats/trace?employeeId1=u1&employeeId2=u2")
		req.Equal(http.StatusOK, w.Code)

		var body []chat.TracedChat
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Empty(body)
	})

	t.Run("bilateral conversation traces both sides", func(t *testing.T) {
		req := require.New(t)
		router := newTestRouter(bilateralStore())

		w := doRequest(t, router, "/api/chats/trace?employeeId1=u1&employeeId2=u2")
		req.Equal(http.StatusOK, w.Code)

		var body []chat.TracedChat
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Len(body, 2)

		owners := []string{body[0].UserID, body[1].UserID}
		req.ElementsMatch([]string{"u1", "u2"}, owners)
	})

	t.Run("store failure is 500", func(t *testing.T) {
		router := newTestRouter(&stubStore{failAll: true})

		w := doRequest(t, router, "/api/chats/trace?employeeId1=u1&employeeId2=u2")
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
