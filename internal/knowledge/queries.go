package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx operations the queries need.
// Satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements document persistence against the documents table.
// All statements are parameterized; user input never reaches SQL text.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance over the given connection source.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertDocumentParams are the columns written by UpsertDocument.
type UpsertDocumentParams struct {
	ID        string
	Title     string
	Content   string
	Source    string
	Embedding pgvector.Vector
	Metadata  []byte
	ExpiresAt pgtype.Timestamptz
}

const upsertDocumentSQL = `
INSERT INTO documents (id, title, content, source, embedding, metadata, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    source = EXCLUDED.source,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata,
    expires_at = EXCLUDED.expires_at`

// UpsertDocument inserts or replaces a document.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Title, arg.Content, arg.Source, arg.Embedding, arg.Metadata, arg.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// SearchDocumentsParams are the inputs to the similarity search.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	Source         string // Empty = all sources
	Limit          int32
}

// SearchDocumentsRow is one similarity search hit.
type SearchDocumentsRow struct {
	ID         string
	Title      string
	Content    string
	Source     string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	ExpiresAt  pgtype.Timestamptz
	Similarity float64
}

// Cosine distance operator (<=>) returns distance; similarity = 1 - distance.
// Expired documents are excluded here rather than lazily deleted so a
// missed purge run never leaks stale chunks into answers.
const searchDocumentsSQL = `
SELECT id, title, content, source, metadata, created_at, expires_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE (expires_at IS NULL OR expires_at > now())
  AND ($2 = '' OR source = $2)
ORDER BY embedding <=> $1
LIMIT $3`

// SearchDocuments performs a cosine similarity search over live documents.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	rows, err := q.db.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, arg.Source, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []SearchDocumentsRow
	for rows.Next() {
		var r SearchDocumentsRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.Source, &r.Metadata,
			&r.CreatedAt, &r.ExpiresAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// CountDocuments counts live (unexpired) documents.
func (q *Queries) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE expires_at IS NULL OR expires_at > now()`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// DeleteDocument deletes a document by ID.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteDocumentsBySource deletes all documents from one ingestion source.
// Returns the number of rows removed.
func (q *Queries) DeleteDocumentsBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("delete documents by source: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListDocumentsBySourceParams are the inputs to ListDocumentsBySource.
type ListDocumentsBySourceParams struct {
	Source string
	Limit  int32
}

// ListDocumentRow is one row of a document listing (no similarity).
type ListDocumentRow struct {
	ID        string
	Title     string
	Content   string
	Source    string
	Metadata  []byte
	CreatedAt pgtype.Timestamptz
	ExpiresAt pgtype.Timestamptz
}

const listDocumentsBySourceSQL = `
SELECT id, title, content, source, metadata, created_at, expires_at
FROM documents
WHERE ($1 = '' OR source = $1)
  AND (expires_at IS NULL OR expires_at > now())
ORDER BY created_at DESC
LIMIT $2`

// ListDocumentsBySource lists live documents, newest first.
// An empty source lists all sources.
func (q *Queries) ListDocumentsBySource(ctx context.Context, arg ListDocumentsBySourceParams) ([]ListDocumentRow, error) {
	rows, err := q.db.Query(ctx, listDocumentsBySourceSQL, arg.Source, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var results []ListDocumentRow
	for rows.Next() {
		var r ListDocumentRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.Source, &r.Metadata,
			&r.CreatedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list rows: %w", err)
	}
	return results, nil
}

// PurgeExpiredDocuments deletes documents whose expiry has passed.
// Returns the number of rows removed.
func (q *Queries) PurgeExpiredDocuments(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM documents WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

// timestamptz converts a time.Time to pgtype.Timestamptz, mapping the
// zero value to SQL NULL.
func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
