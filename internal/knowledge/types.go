// Package knowledge manages the tutoring knowledge base: study material
// chunks stored in PostgreSQL with pgvector embeddings.
//
// Documents carry an optional expiry so uploaded material ages out of
// retrieval automatically (default one week). Search combines cosine
// similarity with the expiry filter so stale chunks never reach the tutor.
package knowledge

import "time"

// Document is a single chunk of study material.
type Document struct {
	ID        string
	Title     string
	Content   string
	Source    string // e.g. "file_notes.pdf", "url_example.com", "text"
	Metadata  map[string]string
	CreatedAt time.Time
	ExpiresAt time.Time // Zero value = never expires
}

// Result is a search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float64 // Cosine similarity in [0, 1]
}

// Search configuration defaults.
const (
	defaultTopK          = 6
	defaultSearchTimeout = 10 * time.Second
)

// searchConfig holds resolved search options.
type searchConfig struct {
	topK    int32
	source  string
	timeout time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets the maximum number of results (default 6).
func WithTopK(k int32) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithSource restricts results to documents from one ingestion source.
func WithSource(source string) SearchOption {
	return func(c *searchConfig) {
		c.source = source
	}
}

// WithTimeout overrides the per-query timeout (default 10s).
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{
		topK:    defaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
