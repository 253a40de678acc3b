package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// RetryConfig configures retry behavior for LLM calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient error substrings by category,
// matched case-insensitively. String matching is used because the
// provider SDKs expose no typed errors for these failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(lower, sub) {
				return true
			}
		}
	}
	return false
}

// generateWithRetry runs genkit.Generate with exponential backoff on
// transient failures. Each attempt waits on the rate limiter first so
// retries cannot amplify a rate-limit storm.
//
// A non-nil streamStarted guard disables retry once the attempt has
// delivered chunks to the caller: re-running the generation would replay
// the stream from the start and duplicate text the client already has.
func (t *Tutor) generateWithRetry(ctx context.Context, opts []ai.GenerateOption, streamStarted func() bool) (*ai.ModelResponse, error) {
	var lastErr error
	delay := t.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= t.retry.MaxRetries; attempt++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, t.g, opts...)
		if err == nil {
			t.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return resp, nil
		}

		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if streamStarted != nil && streamStarted() {
			return nil, fmt.Errorf("generate (stream already delivered chunks): %w", err)
		}
		if attempt == t.retry.MaxRetries {
			break
		}

		t.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, t.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		t.retry.MaxRetries, time.Since(start), lastErr)
}
