package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx operations the queries need.
// Satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements session persistence against the sessions and
// session_messages tables.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance over the given connection source.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// sessionRow is the scanned shape of one sessions row.
type sessionRow struct {
	ID           pgtype.UUID
	Title        *string
	Style        string
	Language     string
	MessageCount int32
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

const sessionColumns = `id, title, style, language, message_count, created_at, updated_at`

// CreateSessionParams are the inputs to CreateSession.
type CreateSessionParams struct {
	Title    *string
	Style    string
	Language string
}

// CreateSession inserts a session and returns it with generated fields.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO sessions (title, style, language) VALUES ($1, $2, $3) RETURNING `+sessionColumns,
		arg.Title, arg.Style, arg.Language)
	return scanSession(row)
}

// GetSession fetches one session by ID.
func (q *Queries) GetSession(ctx context.Context, id pgtype.UUID) (Session, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// ListSessionsParams are the pagination inputs to ListSessions.
type ListSessionsParams struct {
	Limit  int32
	Offset int32
}

// ListSessions returns sessions ordered by most recently updated.
func (q *Queries) ListSessions(ctx context.Context, arg ListSessionsParams) ([]Session, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession deletes a session; messages cascade. Returns the number
// of sessions removed.
func (q *Queries) DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LockSession takes a row lock on the session so concurrent appends
// cannot race on sequence numbers.
func (q *Queries) LockSession(ctx context.Context, id pgtype.UUID) error {
	var locked pgtype.UUID
	err := q.db.QueryRow(ctx,
		`SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	return nil
}

// MaxSequenceNumber returns the highest sequence number in a session,
// or zero when the session has no messages.
func (q *Queries) MaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	var maxSeq int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM session_messages WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("max sequence number: %w", err)
	}
	return maxSeq, nil
}

// AddMessageParams are the inputs to AddMessage.
type AddMessageParams struct {
	SessionID      pgtype.UUID
	Role           string
	Content        string
	SequenceNumber int32
}

// AddMessage inserts one message.
func (q *Queries) AddMessage(ctx context.Context, arg AddMessageParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO session_messages (session_id, role, content, sequence_number)
		 VALUES ($1, $2, $3, $4)`,
		arg.SessionID, arg.Role, arg.Content, arg.SequenceNumber)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

// GetMessagesParams are the inputs to GetMessages.
type GetMessagesParams struct {
	SessionID pgtype.UUID
	Limit     int32
	Offset    int32
}

// GetMessages returns session messages in sequence order.
func (q *Queries) GetMessages(ctx context.Context, arg GetMessagesParams) ([]Message, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, session_id, role, content, sequence_number, created_at
		 FROM session_messages
		 WHERE session_id = $1
		 ORDER BY sequence_number ASC
		 LIMIT $2 OFFSET $3`,
		arg.SessionID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return scanMessages(rows)
}

// GetRecentMessagesParams are the inputs to GetRecentMessages.
type GetRecentMessagesParams struct {
	SessionID pgtype.UUID
	Limit     int32
}

// GetRecentMessages returns the last Limit messages of a session in
// chronological order. When a session outgrows the limit it is the old
// messages that drop off, not the new ones.
func (q *Queries) GetRecentMessages(ctx context.Context, arg GetRecentMessagesParams) ([]Message, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, session_id, role, content, sequence_number, created_at
		 FROM (
		     SELECT id, session_id, role, content, sequence_number, created_at
		     FROM session_messages
		     WHERE session_id = $1
		     ORDER BY sequence_number DESC
		     LIMIT $2
		 ) tail
		 ORDER BY sequence_number ASC`,
		arg.SessionID, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("get recent messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m         Message
			id, sid   pgtype.UUID
			seq       int32
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &sid, &m.Role, &m.Content, &seq, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = pgUUIDToUUID(id)
		m.SessionID = pgUUIDToUUID(sid)
		m.SequenceNumber = int(seq)
		m.CreatedAt = createdAt.Time
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// UpdateSessionStatsParams are the inputs to UpdateSessionStats.
type UpdateSessionStatsParams struct {
	SessionID    pgtype.UUID
	MessageCount int32
}

// UpdateSessionStats bumps a session's message count and updated_at.
func (q *Queries) UpdateSessionStats(ctx context.Context, arg UpdateSessionStatsParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE sessions SET message_count = $2, updated_at = now() WHERE id = $1`,
		arg.SessionID, arg.MessageCount)
	if err != nil {
		return fmt.Errorf("update session stats: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (Session, error) {
	var r sessionRow
	if err := row.Scan(&r.ID, &r.Title, &r.Style, &r.Language,
		&r.MessageCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Session{}, err
	}

	s := Session{
		ID:           pgUUIDToUUID(r.ID),
		Style:        r.Style,
		Language:     r.Language,
		MessageCount: int(r.MessageCount),
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
	if r.Title != nil {
		s.Title = *r.Title
	}
	return s, nil
}
