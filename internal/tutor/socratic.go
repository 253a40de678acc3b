package tutor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Socratic generation constants. The temperature is kept near zero so the
// sub-questions stay tightly scoped to the topic.
const (
	socraticCount       = 3
	socraticTemperature = 0.1
	socraticMaxTokens   = 150
	maxSubQuestionLen   = 150
)

const socraticPrompt = `You are a Socratic tutor. Given a student's question, produce exactly %d short sub-questions that guide the student toward answering it themselves. Each sub-question builds on the previous one, starting from fundamentals.

Rules:
- One sub-question per line
- No numbering, bullets, or commentary
- Each line must be a single question ending with a question mark

Student's question: %s`

// listMarker strips leading numbering and bullet markers from a line.
var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// SubQuestions generates guiding sub-questions for the Socratic study
// mode. The model output is parsed defensively; if nothing usable comes
// back, a single generic fallback question is returned.
func (t *Tutor) SubQuestions(ctx context.Context, question string) ([]string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	resp, err := t.generateWithRetry(ctx, []ai.GenerateOption{
		ai.WithModelName(t.modelName),
		ai.WithPrompt(socraticPrompt, socraticCount, question),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     socraticTemperature,
			MaxOutputTokens: socraticMaxTokens,
		}),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("socratic generation: %w", err)
	}
	t.recordUsage(resp)

	questions := parseSubQuestions(resp.Text())
	if len(questions) == 0 {
		t.logger.Warn("socratic output unusable, using fallback",
			"output_length", len(resp.Text()))
		questions = []string{fallbackSubQuestion(question)}
	}

	t.logger.Debug("generated sub-questions", "count", len(questions))
	return questions, nil
}

// parseSubQuestions extracts clean question lines from model output.
// Lines that are too long or don't end with a question mark are dropped;
// at most socraticCount questions are kept.
func parseSubQuestions(output string) []string {
	var questions []string
	for _, line := range strings.Split(output, "\n") {
		q := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if q == "" || len(q) > maxSubQuestionLen || !strings.HasSuffix(q, "?") {
			continue
		}
		questions = append(questions, q)
		if len(questions) == socraticCount {
			break
		}
	}
	return questions
}

func fallbackSubQuestion(question string) string {
	return fmt.Sprintf("What is %s?", strings.TrimSuffix(question, "?"))
}
