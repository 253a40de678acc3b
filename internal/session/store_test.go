package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	createErr   error
	getErr      error
	listErr     error
	deleteErr   error
	messagesErr error

	session     Session
	sessions    []Session
	messages    []Message
	deletedRows int64

	lastCreate CreateSessionParams
	lastList   ListSessionsParams
	lastGet    pgtype.UUID
	lastGetMsg GetMessagesParams
	lastRecent GetRecentMessagesParams
}

func (m *mockQuerier) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	m.lastCreate = arg
	return m.session, m.createErr
}

func (m *mockQuerier) GetSession(ctx context.Context, id pgtype.UUID) (Session, error) {
	m.lastGet = id
	return m.session, m.getErr
}

func (m *mockQuerier) ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	m.lastList = arg
	return m.sessions, m.listErr
}

func (m *mockQuerier) DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error) {
	return m.deletedRows, m.deleteErr
}

func (m *mockQuerier) GetMessages(ctx context.Context, arg GetMessagesParams) ([]Message, error) {
	m.lastGetMsg = arg
	return m.messages, m.messagesErr
}

func (m *mockQuerier) GetRecentMessages(ctx context.Context, arg GetRecentMessagesParams) ([]Message, error) {
	m.lastRecent = arg
	return m.messages, m.messagesErr
}

func testStore(q Querier) *Store {
	return New(q, nil, slog.New(slog.DiscardHandler))
}

func TestStoreCreateDefaults(t *testing.T) {
	querier := &mockQuerier{session: Session{ID: uuid.New()}}
	store := testStore(querier)

	sess, err := store.Create(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess == nil {
		t.Fatal("nil session")
	}
	if querier.lastCreate.Title != nil {
		t.Errorf("empty title should stay null, got %q", *querier.lastCreate.Title)
	}
	if querier.lastCreate.Style != "concise" || querier.lastCreate.Language != "en" {
		t.Errorf("defaults = %s/%s, want concise/en", querier.lastCreate.Style, querier.lastCreate.Language)
	}
}

func TestStoreCreateWithTitle(t *testing.T) {
	querier := &mockQuerier{}
	store := testStore(querier)

	if _, err := store.Create(context.Background(), "  Calculus review  ", "detailed", "hi"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if querier.lastCreate.Title == nil || *querier.lastCreate.Title != "Calculus review" {
		t.Errorf("title = %v", querier.lastCreate.Title)
	}
	if querier.lastCreate.Style != "detailed" || querier.lastCreate.Language != "hi" {
		t.Errorf("params = %+v", querier.lastCreate)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := testStore(&mockQuerier{getErr: pgx.ErrNoRows})
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreGet(t *testing.T) {
	id := uuid.New()
	store := testStore(&mockQuerier{session: Session{ID: id, Style: "concise"}})

	sess, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.ID != id {
		t.Errorf("ID = %s, want %s", sess.ID, id)
	}
}

func TestStoreList(t *testing.T) {
	querier := &mockQuerier{sessions: []Session{{ID: uuid.New()}, {ID: uuid.New()}}}
	store := testStore(querier)

	sessions, err := store.List(context.Background(), 20, 40)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions", len(sessions))
	}
	if querier.lastList.Limit != 20 || querier.lastList.Offset != 40 {
		t.Errorf("pagination = %+v", querier.lastList)
	}
}

func TestStoreDelete(t *testing.T) {
	store := testStore(&mockQuerier{deletedRows: 1})
	if err := store.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestStoreDeleteNotFound(t *testing.T) {
	store := testStore(&mockQuerier{deletedRows: 0})
	err := store.Delete(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreAppendExchangeWithoutPool(t *testing.T) {
	store := testStore(&mockQuerier{})
	if err := store.AppendExchange(context.Background(), uuid.New(), "q", "a"); err == nil {
		t.Fatal("expected error without a pool")
	}
}

func TestStoreHistory(t *testing.T) {
	querier := &mockQuerier{messages: []Message{
		{Role: RoleUser, Content: "What is a limit?"},
		{Role: RoleAssistant, Content: "A limit describes behavior near a point."},
	}}
	store := testStore(querier)

	history, err := store.History(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Errorf("roles = %s/%s, want user/model", history[0].Role, history[1].Role)
	}
	if history[1].Content[0].Text != "A limit describes behavior near a point." {
		t.Errorf("content = %q", history[1].Content[0].Text)
	}
	// Long sessions must keep the recent tail of the conversation, so
	// history loads go through the recency-bounded query.
	if querier.lastRecent.Limit != historyLoadLimit {
		t.Errorf("limit = %d, want %d", querier.lastRecent.Limit, historyLoadLimit)
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short unchanged", "Calculus", "Calculus"},
		{"trimmed", "  padded  ", "padded"},
		{"exactly max", strings.Repeat("a", TitleMaxLength), strings.Repeat("a", TitleMaxLength)},
		{"truncated with ellipsis", strings.Repeat("a", 150), strings.Repeat("a", TitleMaxLength-3) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateTitle(tt.in); got != tt.want {
				t.Errorf("truncateTitle: got %d chars %q, want %q", len(got), got, tt.want)
			}
		})
	}
}

func TestTruncateTitleMultibyte(t *testing.T) {
	in := strings.Repeat("अ", 150)
	got := truncateTitle(in)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing ellipsis: %q", got)
	}
	if runeCount := len([]rune(got)); runeCount != TitleMaxLength {
		t.Errorf("rune count = %d, want %d", runeCount, TitleMaxLength)
	}
}

func TestUUIDConversionRoundTrip(t *testing.T) {
	id := uuid.New()
	if got := pgUUIDToUUID(uuidToPgUUID(id)); got != id {
		t.Errorf("round trip = %s, want %s", got, id)
	}
	if got := pgUUIDToUUID(pgtype.UUID{}); got != uuid.Nil {
		t.Errorf("invalid UUID = %s, want Nil", got)
	}
}
