package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// historyLoadLimit bounds how many messages are replayed into the model
// context for one session.
const historyLoadLimit = 1000

// Querier defines the database operations Store needs outside of
// transactions. Defined by the consumer so tests can mock it.
type Querier interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error)
	GetSession(ctx context.Context, id pgtype.UUID) (Session, error)
	ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error)
	DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error)
	GetMessages(ctx context.Context, arg GetMessagesParams) ([]Message, error)
	GetRecentMessages(ctx context.Context, arg GetRecentMessagesParams) ([]Message, error)
}

// Store manages session persistence in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // Transaction support; nil in unit tests
	logger  *slog.Logger
}

// New creates a Store. The pool may be nil for tests with a mock
// querier; AppendExchange then requires a real pool and fails.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// Create starts a new session. The title is typically derived from the
// first question; empty titles stay null until one is set.
func (s *Store) Create(ctx context.Context, title, style, language string) (*Session, error) {
	title = truncateTitle(title)
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}
	if style == "" {
		style = "concise"
	}
	if language == "" {
		language = "en"
	}

	sess, err := s.querier.CreateSession(ctx, CreateSessionParams{
		Title:    titlePtr,
		Style:    style,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "style", style, "language", language)
	return &sess, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	sess, err := s.querier.GetSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// List returns sessions with pagination, most recently updated first.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Session, error) {
	sessions, err := s.querier.ListSessions(ctx, ListSessionsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, sessionID uuid.UUID) error {
	deleted, err := s.querier.DeleteSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if deleted == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// AppendExchange atomically appends one question/answer pair to a
// session. The session row is locked for the duration of the
// transaction so concurrent appends cannot collide on sequence numbers.
func (s *Store) AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	if s.pool == nil {
		return errors.New("append exchange requires a database pool")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	q := NewQueries(tx)
	pgID := uuidToPgUUID(sessionID)

	if err := q.LockSession(ctx, pgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return err
	}

	maxSeq, err := q.MaxSequenceNumber(ctx, pgID)
	if err != nil {
		return err
	}

	exchange := []AddMessageParams{
		{SessionID: pgID, Role: RoleUser, Content: question, SequenceNumber: maxSeq + 1},
		{SessionID: pgID, Role: RoleAssistant, Content: answer, SequenceNumber: maxSeq + 2},
	}
	for _, msg := range exchange {
		if err := q.AddMessage(ctx, msg); err != nil {
			return err
		}
	}

	if err := q.UpdateSessionStats(ctx, UpdateSessionStatsParams{
		SessionID:    pgID,
		MessageCount: maxSeq + 2,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended exchange", "session_id", sessionID, "sequence", maxSeq+2)
	return nil
}

// Messages returns session messages in order, with pagination.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]Message, error) {
	messages, err := s.querier.GetMessages(ctx, GetMessagesParams{
		SessionID: uuidToPgUUID(sessionID),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("get messages for session %s: %w", sessionID, err)
	}
	return messages, nil
}

// History loads a session's messages as model messages, oldest first,
// ready to feed into generation as conversation context. Sessions longer
// than historyLoadLimit keep their most recent messages; the oldest fall
// out of the window.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]*ai.Message, error) {
	messages, err := s.querier.GetRecentMessages(ctx, GetRecentMessagesParams{
		SessionID: uuidToPgUUID(sessionID),
		Limit:     historyLoadLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("load history for session %s: %w", sessionID, err)
	}

	history := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		part := ai.NewTextPart(m.Content)
		switch m.Role {
		case RoleAssistant:
			history = append(history, ai.NewModelMessage(part))
		default:
			history = append(history, ai.NewUserMessage(part))
		}
	}
	return history, nil
}

// truncateTitle enforces TitleMaxLength, rune-safe.
func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= TitleMaxLength {
		return title
	}
	return string(runes[:TitleMaxLength-3]) + "..."
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}
