package tutor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/knowledge"
)

type fakeRetriever struct {
	results []knowledge.Result
	err     error
}

func (f *fakeRetriever) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return f.results, f.err
}

func testTutor(retriever Retriever) *Tutor {
	return &Tutor{
		retriever:     retriever,
		meter:         cost.NewMeter(cost.Rates{}),
		logger:        slog.New(slog.DiscardHandler),
		modelName:     "openai/gpt-4o",
		topK:          DefaultTopK,
		minScore:      DefaultMinScore,
		contextBudget: DefaultContextBudget,
		retry:         DefaultRetryConfig(),
	}
}

func TestConfigValidate(t *testing.T) {
	g := genkit.Init(context.Background())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing genkit", func(c *Config) { c.Genkit = nil }, "genkit"},
		{"missing retriever", func(c *Config) { c.Retriever = nil }, "retriever"},
		{"missing meter", func(c *Config) { c.Meter = nil }, "meter"},
		{"missing logger", func(c *Config) { c.Logger = nil }, "logger"},
		{"missing model", func(c *Config) { c.ModelName = "" }, "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Genkit:    g,
				Retriever: &fakeRetriever{},
				Meter:     cost.NewMeter(cost.Rates{}),
				Logger:    slog.New(slog.DiscardHandler),
				ModelName: "openai/gpt-4o",
			}
			tt.mutate(&cfg)
			_, err := New(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	tut, err := New(Config{
		Genkit:    genkit.Init(context.Background()),
		Retriever: &fakeRetriever{},
		Meter:     cost.NewMeter(cost.Rates{}),
		Logger:    slog.New(slog.DiscardHandler),
		ModelName: "openai/gpt-4o",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tut.topK != DefaultTopK || tut.minScore != DefaultMinScore || tut.contextBudget != DefaultContextBudget {
		t.Errorf("defaults not applied: topK=%d minScore=%f budget=%d", tut.topK, tut.minScore, tut.contextBudget)
	}
	if tut.retry.MaxRetries != 3 || tut.limiter == nil {
		t.Errorf("resilience defaults not applied: %+v", tut.retry)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	tut := testTutor(&fakeRetriever{})
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := tut.Ask(context.Background(), q, AskOptions{}); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("Ask(%q) err = %v, want ErrEmptyQuestion", q, err)
		}
	}
}

func TestAskUnknownStyle(t *testing.T) {
	tut := testTutor(&fakeRetriever{})
	_, err := tut.Ask(context.Background(), "what is entropy", AskOptions{Style: "verbose"})
	if err == nil || !strings.Contains(err.Error(), "unknown style") {
		t.Errorf("err = %v, want unknown style error", err)
	}
}

func TestSubQuestionsEmptyQuestion(t *testing.T) {
	tut := testTutor(&fakeRetriever{})
	if _, err := tut.SubQuestions(context.Background(), "  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestRetrieveContextFiltersByScore(t *testing.T) {
	tut := testTutor(&fakeRetriever{results: []knowledge.Result{
		{Document: knowledge.Document{Title: "Strong", Source: "s1", Content: "relevant"}, Similarity: 0.8},
		{Document: knowledge.Document{Title: "Weak", Source: "s2", Content: "noise"}, Similarity: 0.1},
	}})

	block, sources, err := tut.retrieveContext(context.Background(), "question")
	if err != nil {
		t.Fatalf("retrieveContext: %v", err)
	}
	if len(sources) != 1 || sources[0].Title != "Strong" {
		t.Fatalf("sources = %+v, want only the strong match", sources)
	}
	if strings.Contains(block, "noise") {
		t.Errorf("low-score chunk leaked into context: %q", block)
	}
}

func TestRetrieveContextNoMatches(t *testing.T) {
	tut := testTutor(&fakeRetriever{results: []knowledge.Result{
		{Document: knowledge.Document{Title: "Weak"}, Similarity: 0.05},
	}})

	block, sources, err := tut.retrieveContext(context.Background(), "question")
	if err != nil {
		t.Fatalf("retrieveContext: %v", err)
	}
	if block != "" || sources != nil {
		t.Errorf("got block %q sources %v, want empty", block, sources)
	}
}

func TestRetrieveContextSearchError(t *testing.T) {
	tut := testTutor(&fakeRetriever{err: errors.New("connection refused")})
	if _, _, err := tut.retrieveContext(context.Background(), "question"); err == nil {
		t.Fatal("expected search error to propagate")
	}
}

func TestRecordUsageNilSafe(t *testing.T) {
	tut := testTutor(&fakeRetriever{})
	if got := tut.recordUsage(nil); got != 0 {
		t.Errorf("recordUsage(nil) = %f, want 0", got)
	}
}
