package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// maxListLimit bounds listing queries to prevent resource exhaustion.
const maxListLimit = 1000

// Querier defines the database operations Store needs. The interface is
// defined here, by the consumer, so tests can substitute a mock without
// touching a real database.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error)
	CountDocuments(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentsBySource(ctx context.Context, source string) (int64, error)
	ListDocumentsBySource(ctx context.Context, arg ListDocumentsBySourceParams) ([]ListDocumentRow, error)
	PurgeExpiredDocuments(ctx context.Context) (int64, error)
}

// Store manages study material with vector search over PostgreSQL + pgvector.
// It generates embeddings on write and on query.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// embed generates the embedding vector for a single text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("generate embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds the document content and upserts it. A document with the
// same ID replaces the previous version.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Source:    doc.Source,
		Embedding: embedding,
		Metadata:  metadataJSON,
		ExpiresAt: timestamptz(doc.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document",
		"id", doc.ID,
		"source", doc.Source,
		"content_length", len(doc.Content))
	return nil
}

// Search embeds the query and returns the most similar live documents,
// ordered by descending cosine similarity. Expired documents never match.
//
// Example:
//
//	results, err := store.Search(ctx, "what is backpropagation",
//	    knowledge.WithTopK(10),
//	    knowledge.WithSource("file_notes.pdf"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: embedding,
		Source:         cfg.source,
		Limit:          cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: s.rowToDocument(ListDocumentRow{
				ID:        row.ID,
				Title:     row.Title,
				Content:   row.Content,
				Source:    row.Source,
				Metadata:  row.Metadata,
				CreatedAt: row.CreatedAt,
				ExpiresAt: row.ExpiresAt,
			}),
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of live documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes a single document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySource removes every document ingested from one source, e.g.
// all chunks of a re-uploaded file. Returns the number removed.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, errors.New("source must not be empty")
	}
	deleted, err := s.queries.DeleteDocumentsBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete documents from %q: %w", source, err)
	}
	s.logger.Debug("deleted documents by source", "source", source, "count", deleted)
	return deleted, nil
}

// ListBySource lists live documents newest first, without similarity
// scoring. An empty source lists all sources.
func (s *Store) ListBySource(ctx context.Context, source string, limit int32) ([]Document, error) {
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}

	rows, err := s.queries.ListDocumentsBySource(ctx, ListDocumentsBySourceParams{
		Source: source,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	documents := make([]Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, s.rowToDocument(row))
	}
	return documents, nil
}

// PurgeExpired deletes documents whose TTL has elapsed and returns how
// many were removed. Intended to run periodically or via the CLI.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.queries.PurgeExpiredDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired documents: %w", err)
	}
	if purged > 0 {
		s.logger.Info("purged expired documents", "count", purged)
	}
	return purged, nil
}

func (s *Store) rowToDocument(row ListDocumentRow) Document {
	var metadata map[string]string
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
		}
	}
	if metadata == nil {
		metadata = make(map[string]string)
	}

	doc := Document{
		ID:       row.ID,
		Title:    row.Title,
		Content:  row.Content,
		Source:   row.Source,
		Metadata: metadata,
	}
	if row.CreatedAt.Valid {
		doc.CreatedAt = row.CreatedAt.Time
	}
	if row.ExpiresAt.Valid {
		doc.ExpiresAt = row.ExpiresAt.Time
	}
	return doc
}
