package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycotes/professor/internal/session"
)

// mockSessionQuerier implements session.Querier for handler tests.
type mockSessionQuerier struct {
	createErr   error
	getErr      error
	listErr     error
	deleteErr   error
	messagesErr error

	session     session.Session
	sessions    []session.Session
	messages    []session.Message
	deletedRows int64
}

func (m *mockSessionQuerier) CreateSession(ctx context.Context, arg session.CreateSessionParams) (session.Session, error) {
	return m.session, m.createErr
}

func (m *mockSessionQuerier) GetSession(ctx context.Context, id pgtype.UUID) (session.Session, error) {
	return m.session, m.getErr
}

func (m *mockSessionQuerier) ListSessions(ctx context.Context, arg session.ListSessionsParams) ([]session.Session, error) {
	return m.sessions, m.listErr
}

func (m *mockSessionQuerier) DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error) {
	return m.deletedRows, m.deleteErr
}

func (m *mockSessionQuerier) GetMessages(ctx context.Context, arg session.GetMessagesParams) ([]session.Message, error) {
	return m.messages, m.messagesErr
}

func (m *mockSessionQuerier) GetRecentMessages(ctx context.Context, arg session.GetRecentMessagesParams) ([]session.Message, error) {
	return m.messages, m.messagesErr
}

func newSessionHandler(q session.Querier) *sessionHandler {
	return &sessionHandler{
		store:  session.New(q, nil, discardLogger()),
		logger: discardLogger(),
	}
}

func TestSessionCreate(t *testing.T) {
	id := uuid.New()
	h := newSessionHandler(&mockSessionQuerier{
		session: session.Session{ID: id, Style: "concise", Language: "en", CreatedAt: time.Now()},
	})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"title":"Calculus","style":"concise"}`))
	w := httptest.NewRecorder()
	h.create(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var sess session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, id, sess.ID)
}

func TestSessionCreateInvalidStyle(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"style":"rambling"}`))
	w := httptest.NewRecorder()
	h.create(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_style")
}

func TestSessionList(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{
		sessions: []session.Session{{ID: uuid.New()}, {ID: uuid.New()}},
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=10&offset=0", nil)
	w := httptest.NewRecorder()
	h.list(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []session.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Sessions, 2)
}

func TestSessionListEmptyIsArray(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	h.list(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessions":[]`)
}

func TestSessionListInvalidPagination(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{})

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"limit too large", "?limit=500", "invalid_limit"},
		{"limit not a number", "?limit=abc", "invalid_limit"},
		{"negative offset", "?offset=-5", "invalid_offset"},
		{"offset too large", "?offset=99999", "invalid_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions"+tt.query, nil)
			w := httptest.NewRecorder()
			h.list(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestSessionGet(t *testing.T) {
	id := uuid.New()
	h := newSessionHandler(&mockSessionQuerier{session: session.Session{ID: id}})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id.String(), nil)
	r.SetPathValue("id", id.String())
	w := httptest.NewRecorder()
	h.get(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionGetNotFound(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{getErr: pgx.ErrNoRows})

	id := uuid.New().String()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.get(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "session_not_found")
}

func TestSessionGetInvalidID(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	r.SetPathValue("id", "not-a-uuid")
	w := httptest.NewRecorder()
	h.get(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_id")
}

func TestSessionMessages(t *testing.T) {
	id := uuid.New()
	h := newSessionHandler(&mockSessionQuerier{
		messages: []session.Message{
			{Role: session.RoleUser, Content: "q", SequenceNumber: 1},
			{Role: session.RoleAssistant, Content: "a", SequenceNumber: 2},
		},
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id.String()+"/messages", nil)
	r.SetPathValue("id", id.String())
	w := httptest.NewRecorder()
	h.messages(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []session.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, session.RoleUser, body.Messages[0].Role)
}

func TestSessionDelete(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{deletedRows: 1})

	id := uuid.New().String()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.delete(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSessionDeleteNotFound(t *testing.T) {
	h := newSessionHandler(&mockSessionQuerier{deletedRows: 0})

	id := uuid.New().String()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.delete(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
