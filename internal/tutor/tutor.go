package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/knowledge"
)

// Retrieval defaults. MinScore filters out chunks too dissimilar to help;
// ContextBudget caps the material injected into one prompt.
const (
	DefaultTopK          = 6
	DefaultMinScore      = 0.25
	DefaultContextBudget = 7000
)

// fallbackAnswer is returned when the model produces an empty response.
const fallbackAnswer = "I couldn't generate an answer. Please try rephrasing your question."

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Retriever is the knowledge base surface the tutor needs. Defined here
// so tests can substitute canned retrieval results.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// StreamCallback receives each chunk of a streaming answer.
// Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config contains the required parameters for a Tutor.
type Config struct {
	Genkit    *genkit.Genkit
	Retriever Retriever
	Meter     *cost.Meter
	Logger    *slog.Logger

	// ModelName is the provider-qualified model, e.g. "openai/gpt-4o".
	ModelName string

	// Retrieval tuning; zero values use the package defaults.
	TopK          int32
	MinScore      float64
	ContextBudget int

	// Resilience; zero values use defaults.
	RetryConfig RetryConfig
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Meter == nil {
		return errors.New("cost meter is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// SourceRef identifies one knowledge chunk an answer drew on.
type SourceRef struct {
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// Answer is the complete result of answering one question.
type Answer struct {
	Text     string      `json:"text"`
	Style    Style       `json:"style"`
	Language string      `json:"language"`
	Sources  []SourceRef `json:"sources,omitempty"`

	// Grounded reports whether any retrieved chunk cleared the minimum
	// similarity and made it into the prompt.
	Grounded bool    `json:"grounded"`
	CostUSD  float64 `json:"costUsd"`
}

// AskOptions tunes one Ask call.
type AskOptions struct {
	Style    Style
	Language string
	History  []*ai.Message // Prior conversation turns, oldest first
}

// Tutor answers questions grounded in the knowledge base.
//
// Tutor is stateless after construction and safe for concurrent use.
type Tutor struct {
	g         *genkit.Genkit
	retriever Retriever
	meter     *cost.Meter
	logger    *slog.Logger

	modelName     string
	topK          int32
	minScore      float64
	contextBudget int

	retry   RetryConfig
	limiter *rate.Limiter
}

// New creates a Tutor from Config, applying defaults for zero values.
func New(cfg Config) (*Tutor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	minScore := cfg.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	budget := cfg.ContextBudget
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	retry := cfg.RetryConfig
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	t := &Tutor{
		g:             cfg.Genkit,
		retriever:     cfg.Retriever,
		meter:         cfg.Meter,
		logger:        cfg.Logger,
		modelName:     cfg.ModelName,
		topK:          topK,
		minScore:      minScore,
		contextBudget: budget,
		retry:         retry,
		limiter:       limiter,
	}

	t.logger.Info("tutor initialized",
		"model", t.modelName,
		"top_k", t.topK,
		"min_score", t.minScore,
		"context_budget", t.contextBudget)
	return t, nil
}

// Ask answers a question without streaming.
func (t *Tutor) Ask(ctx context.Context, question string, opts AskOptions) (*Answer, error) {
	return t.AskStream(ctx, question, opts, nil)
}

// AskStream answers a question, invoking callback for each response chunk
// when callback is non-nil. The complete Answer is returned either way.
func (t *Tutor) AskStream(ctx context.Context, question string, opts AskOptions, callback StreamCallback) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if opts.Style == "" {
		opts.Style = StyleConcise
	}
	if _, ok := styleTable[opts.Style]; !ok {
		return nil, fmt.Errorf("unknown style %q", opts.Style)
	}

	contextBlock, sources, err := t.retrieveContext(ctx, question)
	if err != nil {
		// Retrieval failure degrades to an ungrounded answer rather than
		// failing the question outright.
		t.logger.Warn("retrieval failed, answering without context", "error", err)
		contextBlock, sources = "", nil
	}
	grounded := contextBlock != ""

	params := styleTable[opts.Style]
	genOpts := []ai.GenerateOption{
		ai.WithModelName(t.modelName),
		ai.WithSystem(systemPrompt(opts.Style, opts.Language, grounded)),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     params.temperature,
			MaxOutputTokens: params.maxTokens,
		}),
	}
	if len(opts.History) > 0 {
		messages := append([]*ai.Message{}, opts.History...)
		messages = append(messages, ai.NewUserMessage(ai.NewTextPart(userPrompt(contextBlock, question))))
		genOpts = append(genOpts, ai.WithMessages(messages...))
	} else {
		genOpts = append(genOpts, ai.WithPrompt("%s", userPrompt(contextBlock, question)))
	}
	// Track whether any chunk reached the caller so a transient
	// mid-stream failure is not retried with a replay of the stream.
	var chunkDelivered atomic.Bool
	if callback != nil {
		userCallback := callback
		genOpts = append(genOpts, ai.WithStreaming(func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
			chunkDelivered.Store(true)
			return userCallback(cbCtx, chunk)
		}))
	}

	resp, err := t.generateWithRetry(ctx, genOpts, chunkDelivered.Load)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		t.logger.Warn("model returned empty answer", "question_length", len(question))
		text = fallbackAnswer
	}

	answer := &Answer{
		Text:     text,
		Style:    opts.Style,
		Language: opts.Language,
		Sources:  sources,
		Grounded: grounded,
		CostUSD:  t.recordUsage(resp),
	}

	t.logger.Debug("answered question",
		"style", opts.Style,
		"grounded", grounded,
		"sources", len(sources),
		"answer_length", len(text))
	return answer, nil
}

// retrieveContext searches the knowledge base and builds the context
// block. Chunks below the minimum similarity are dropped before the
// budget is applied.
func (t *Tutor) retrieveContext(ctx context.Context, question string) (string, []SourceRef, error) {
	results, err := t.retriever.Search(ctx, question, knowledge.WithTopK(t.topK))
	if err != nil {
		return "", nil, err
	}

	relevant := results[:0:0]
	for _, r := range results {
		if r.Similarity >= t.minScore {
			relevant = append(relevant, r)
		}
	}
	if len(relevant) == 0 {
		return "", nil, nil
	}

	block, used := BuildContext(relevant, t.contextBudget)
	sources := make([]SourceRef, 0, used)
	for _, r := range relevant[:used] {
		sources = append(sources, SourceRef{
			Title:      r.Document.Title,
			Source:     r.Document.Source,
			Similarity: r.Similarity,
		})
	}
	return block, sources, nil
}

// recordUsage meters token spend from a model response and returns the
// USD cost of the call.
func (t *Tutor) recordUsage(resp *ai.ModelResponse) float64 {
	if resp == nil || resp.Usage == nil {
		return 0
	}
	return t.meter.AddChat(resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
