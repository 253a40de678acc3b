package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/ycotes/professor/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	store := New(NewQueries(db.Pool), db.Pool, logger)

	sess, err := store.Create(ctx, "What is entropy?", "detailed", "hi")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == uuid.Nil {
		t.Fatal("Create() returned nil session ID")
	}
	if sess.Style != "detailed" || sess.Language != "hi" {
		t.Errorf("Create() style/language = %s/%s, want detailed/hi", sess.Style, sess.Language)
	}

	t.Run("get round trip", func(t *testing.T) {
		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "What is entropy?" {
			t.Errorf("Get() title = %q, want %q", got.Title, "What is entropy?")
		}
		if got.MessageCount != 0 {
			t.Errorf("new session message count = %d, want 0", got.MessageCount)
		}
	})

	t.Run("get unknown session", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New())
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("append exchange assigns sequence numbers", func(t *testing.T) {
		if err := store.AppendExchange(ctx, sess.ID, "What is entropy?", "A measure of disorder."); err != nil {
			t.Fatalf("AppendExchange() error = %v", err)
		}
		if err := store.AppendExchange(ctx, sess.ID, "And enthalpy?", "Total heat content."); err != nil {
			t.Fatalf("AppendExchange() error = %v", err)
		}

		messages, err := store.Messages(ctx, sess.ID, 100, 0)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(messages) != 4 {
			t.Fatalf("Messages() returned %d messages, want 4", len(messages))
		}
		for i, m := range messages {
			if m.SequenceNumber != i+1 {
				t.Errorf("message %d sequence = %d, want %d", i, m.SequenceNumber, i+1)
			}
		}
		if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
			t.Errorf("roles = %s/%s, want user/assistant", messages[0].Role, messages[1].Role)
		}

		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.MessageCount != 4 {
			t.Errorf("message count = %d after two exchanges, want 4", got.MessageCount)
		}
	})

	t.Run("append to unknown session", func(t *testing.T) {
		err := store.AppendExchange(ctx, uuid.New(), "q", "a")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("AppendExchange() error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("history keeps conversation order", func(t *testing.T) {
		history, err := store.History(ctx, sess.ID)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 4 {
			t.Fatalf("History() returned %d messages, want 4", len(history))
		}
		if history[3].Content[0].Text != "Total heat content." {
			t.Errorf("last history entry = %q, want the latest answer", history[3].Content[0].Text)
		}
	})

	t.Run("recent messages keep the tail", func(t *testing.T) {
		// With four messages and a limit of two, the window must hold
		// the newest pair in chronological order, not the oldest.
		recent, err := NewQueries(db.Pool).GetRecentMessages(ctx, GetRecentMessagesParams{
			SessionID: uuidToPgUUID(sess.ID),
			Limit:     2,
		})
		if err != nil {
			t.Fatalf("GetRecentMessages() error = %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("GetRecentMessages() returned %d messages, want 2", len(recent))
		}
		if recent[0].SequenceNumber != 3 || recent[1].SequenceNumber != 4 {
			t.Errorf("sequences = %d/%d, want 3/4", recent[0].SequenceNumber, recent[1].SequenceNumber)
		}
		if recent[1].Content != "Total heat content." {
			t.Errorf("last recent message = %q, want the latest answer", recent[1].Content)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		second, err := store.Create(ctx, "", "concise", "en")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		sessions, err := store.List(ctx, 10, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("List() returned %d sessions, want 2", len(sessions))
		}
		if sessions[0].ID != second.ID {
			t.Errorf("List() first = %s, want most recently updated %s", sessions[0].ID, second.ID)
		}

		if err := store.Delete(ctx, second.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("delete cascades messages", func(t *testing.T) {
		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		messages, err := store.Messages(ctx, sess.ID, 100, 0)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(messages) != 0 {
			t.Errorf("messages survived session delete: %d left", len(messages))
		}
	})
}
