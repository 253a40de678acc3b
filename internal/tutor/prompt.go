// Package tutor answers study questions over the knowledge base. It
// retrieves relevant chunks, builds a bounded context, and generates
// styled answers plus Socratic follow-up questions.
package tutor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ycotes/professor/internal/knowledge"
)

// Style selects the answer register and generation parameters.
type Style string

// Supported answer styles.
const (
	StyleConcise   Style = "concise"
	StyleDetailed  Style = "detailed"
	StyleTechnical Style = "technical"
	StyleBeginner  Style = "beginner"
)

// styleParams pairs an instruction with the generation knobs for a style.
type styleParams struct {
	instruction string
	temperature float64
	maxTokens   int
}

var styleTable = map[Style]styleParams{
	StyleConcise: {
		instruction: "Answer briefly and directly. Two or three sentences at most, no filler.",
		temperature: 0.4,
		maxTokens:   300,
	},
	StyleDetailed: {
		instruction: "Give a thorough explanation with examples and the reasoning behind each step.",
		temperature: 0.7,
		maxTokens:   800,
	},
	StyleTechnical: {
		instruction: "Use precise technical terminology. Include formal definitions, notation, and edge cases where relevant.",
		temperature: 0.5,
		maxTokens:   800,
	},
	StyleBeginner: {
		instruction: "Explain as if to someone new to the subject. Use simple words, analogies, and avoid jargon.",
		temperature: 0.6,
		maxTokens:   600,
	},
}

// ParseStyle validates a style string, defaulting to concise.
func ParseStyle(s string) (Style, error) {
	if s == "" {
		return StyleConcise, nil
	}
	style := Style(strings.ToLower(s))
	if _, ok := styleTable[style]; !ok {
		return "", fmt.Errorf("unknown style %q (valid: concise, detailed, technical, beginner)", s)
	}
	return style, nil
}

// languageInstruction returns the language directive for the prompt.
// Hindi answers must use Devanagari script, not romanized Hindi.
func languageInstruction(language string) string {
	switch strings.ToLower(language) {
	case "", "en", "english":
		return "Answer in English."
	case "hi", "hindi":
		return "Answer in Hindi using Devanagari script. Do not use romanized Hindi."
	default:
		return fmt.Sprintf("Answer in %s.", language)
	}
}

// systemPrompt builds the persona and behavior directives for one answer.
func systemPrompt(style Style, language string, grounded bool) string {
	var b strings.Builder
	b.WriteString("You are Ycotes, an AI professor who tutors students from their own study material.\n")
	if grounded {
		b.WriteString("Base your answer on the provided course material. If the material does not cover the question, say so before answering from general knowledge.\n")
	} else {
		b.WriteString("No course material matched this question. Answer from general knowledge and say that the uploaded material does not cover it.\n")
	}
	b.WriteString(styleTable[style].instruction)
	b.WriteString("\n")
	b.WriteString(languageInstruction(language))
	return b.String()
}

// BuildContext formats retrieval results into a prompt context block.
// Each chunk gets a "[i | score=0.873]" header; chunks are added in rank
// order until the character budget is exhausted. Returns the block and
// the number of chunks included.
func BuildContext(results []knowledge.Result, budget int) (string, int) {
	var b strings.Builder
	used := 0
	for i, r := range results {
		header := fmt.Sprintf("[%d | score=%.3f] %s\n", i+1, r.Similarity, r.Document.Title)
		entry := header + r.Document.Content + "\n\n"
		if b.Len()+len(entry) > budget && used > 0 {
			break
		}
		if len(entry) > budget {
			// A single chunk over budget is truncated rather than
			// dropped; the cut backs off to a rune boundary so
			// multibyte text is never split mid-character.
			cut := budget
			for cut > 0 && !utf8.RuneStart(entry[cut]) {
				cut--
			}
			entry = entry[:cut]
		}
		b.WriteString(entry)
		used++
	}
	return strings.TrimSpace(b.String()), used
}

// userPrompt assembles the final user message from the context block and
// the question.
func userPrompt(contextBlock, question string) string {
	if contextBlock == "" {
		return question
	}
	return fmt.Sprintf("Course material:\n\n%s\n\nQuestion: %s", contextBlock, question)
}
