package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/knowledge"
)

// DefaultTTL is how long ingested material stays searchable: one week.
const DefaultTTL = 7 * 24 * time.Hour

// ErrEmptyContent is returned when a source yields no usable text.
var ErrEmptyContent = errors.New("no usable text content")

// DocumentStore is the knowledge base surface the ingester needs.
type DocumentStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	DeleteBySource(ctx context.Context, source string) (int64, error)
}

// Report summarizes one ingestion run.
type Report struct {
	Source      string  `json:"source"`
	Chunks      int     `json:"chunks"`
	Characters  int     `json:"characters"`
	EmbedTokens int     `json:"embedTokens"`
	CostUSD     float64 `json:"costUsd"`
	Replaced    int64   `json:"replaced"`
}

// Ingester converts raw material into stored, embedded knowledge chunks.
type Ingester struct {
	store   DocumentStore
	scraper *Scraper
	meter   *cost.Meter
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewIngester creates an Ingester. A zero ttl uses DefaultTTL; a negative
// ttl disables expiry.
func NewIngester(store DocumentStore, scraper *Scraper, meter *cost.Meter, ttl time.Duration, logger *slog.Logger) *Ingester {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:   store,
		scraper: scraper,
		meter:   meter,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Text ingests raw text under the given source label. Existing chunks
// from the same source are replaced, so re-ingesting the same material
// never duplicates it.
func (ing *Ingester) Text(ctx context.Context, text, source string) (*Report, error) {
	if source == "" {
		source = "text"
	}
	return ing.ingest(ctx, text, source, "")
}

// File extracts a local file and ingests its content. The source label is
// "file_<basename>".
func (ing *Ingester) File(ctx context.Context, path string) (*Report, error) {
	return ing.FileAs(ctx, path, filepath.Base(path))
}

// FileAs ingests a local file under an explicit name, for uploads that
// were spooled to a temp path but should keep their original filename.
func (ing *Ingester) FileAs(ctx context.Context, path, name string) (*Report, error) {
	content, err := ExtractFile(path)
	if err != nil {
		return nil, err
	}
	return ing.ingest(ctx, content, "file_"+name, "")
}

// URL scrapes a web page and ingests its readable content. The source
// label is "url_<host>".
func (ing *Ingester) URL(ctx context.Context, rawURL string) (*Report, error) {
	page, err := ing.scraper.Fetch(rawURL)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", page.URL, err)
	}
	return ing.ingest(ctx, page.Content, "url_"+parsed.Host, page.Title)
}

func (ing *Ingester) ingest(ctx context.Context, text, source, title string) (*Report, error) {
	chunks := SplitByTopic(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: source %q", ErrEmptyContent, source)
	}

	replaced, err := ing.store.DeleteBySource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("replace source %q: %w", source, err)
	}

	var expiresAt time.Time
	if ing.ttl > 0 {
		expiresAt = ing.now().Add(ing.ttl)
	}
	batch := ing.now().Unix()

	report := &Report{Source: source, Replaced: replaced}
	for i, chunk := range chunks {
		chunkTitle := chunk.Title
		if chunkTitle == "General" && title != "" {
			chunkTitle = title
		}
		doc := knowledge.Document{
			ID:      fmt.Sprintf("%s_%d_%d", source, batch, i),
			Title:   chunkTitle,
			Content: chunk.Content,
			Source:  source,
			Metadata: map[string]string{
				"topic": chunk.Title,
			},
			ExpiresAt: expiresAt,
		}
		if err := ing.store.Add(ctx, doc); err != nil {
			return nil, fmt.Errorf("chunk %d/%d of %q: %w", i+1, len(chunks), source, err)
		}

		tokens := estimateTokens(chunk.Content)
		report.CostUSD += ing.meter.AddEmbedding(tokens)
		report.EmbedTokens += tokens
		report.Chunks++
		report.Characters += len(chunk.Content)
	}

	ing.logger.Info("ingested source",
		"source", source,
		"chunks", report.Chunks,
		"characters", report.Characters,
		"replaced", report.Replaced,
		"cost_usd", report.CostUSD)
	return report, nil
}

// estimateTokens approximates OpenAI tokenization at four characters per
// token, matching how the embedding spend is metered.
func estimateTokens(text string) int {
	n := len(strings.TrimSpace(text)) / 4
	if n < 1 {
		n = 1
	}
	return n
}
