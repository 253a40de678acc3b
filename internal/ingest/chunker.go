// Package ingest turns raw study material into knowledge base documents:
// extraction from files and URLs, topic-based chunking, embedding and
// storage with a TTL.
package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunking limits. Oversized sections are split so a single chunk never
// dominates the context budget or blows the embedding input limit.
const (
	maxTitleLen = 200
	maxChunkLen = 10000
)

// headingPattern matches paragraphs that start a new topic: markdown
// headings up to level three, "Chapter N" / "Section N" markers (any
// case), and shouty ALL-CAPS titles between 6 and 51 characters.
// Case-insensitivity is scoped to the chapter/section words so the
// ALL-CAPS branch does not swallow ordinary prose.
var headingPattern = regexp.MustCompile(`^(#{1,3}\s+|(?i:chapter|section)\s+\d+[:\-]?\s*|[A-Z][A-Z\s]{5,50}:?)`)

// blankLinePattern separates paragraphs: a newline, optional horizontal
// whitespace, and another newline.
var blankLinePattern = regexp.MustCompile(`\n[ \t]*\n`)

// Chunk is one topic-sized piece of source material.
type Chunk struct {
	Title   string
	Content string
}

// SplitByTopic splits text into chunks at heading boundaries. Line
// endings are normalized and the text is divided into paragraphs on
// blank lines; a paragraph that opens with a heading starts a new
// section and stays in it, so the heading words contribute to the
// embedding. Text before the first heading lands in a chunk titled
// "General". Sections longer than maxChunkLen are split into
// continuation chunks sharing the section title.
func SplitByTopic(text string) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []Chunk
	currentTitle := "General"
	var current []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n\n"))
		if content == "" {
			current = current[:0]
			return
		}
		for _, part := range splitOversized(content) {
			chunks = append(chunks, Chunk{Title: currentTitle, Content: part})
		}
		current = current[:0]
	}

	for _, para := range blankLinePattern.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if headingPattern.MatchString(para) {
			flush()
			firstLine, _, _ := strings.Cut(para, "\n")
			currentTitle = cleanTitle(firstLine)
		}
		current = append(current, para)
	}
	flush()

	return chunks
}

// cleanTitle strips heading markers and caps length on rune boundaries.
func cleanTitle(heading string) string {
	title := strings.TrimSpace(strings.TrimLeft(heading, "# "))
	title = strings.TrimSuffix(title, ":")
	if title == "" {
		title = "General"
	}
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen])
	}
	return title
}

// splitOversized divides content exceeding maxChunkLen into roughly equal
// parts, preferring to break at paragraph boundaries.
func splitOversized(content string) []string {
	if len(content) <= maxChunkLen {
		return []string{content}
	}

	var parts []string
	paragraphs := strings.Split(content, "\n\n")
	var buf strings.Builder
	for _, p := range paragraphs {
		// A single paragraph larger than the limit is hard-cut.
		for len(p) > maxChunkLen {
			if buf.Len() > 0 {
				parts = append(parts, strings.TrimSpace(buf.String()))
				buf.Reset()
			}
			cut := cutRuneSafe(p, maxChunkLen)
			parts = append(parts, strings.TrimSpace(cut))
			p = p[len(cut):]
		}
		if buf.Len()+len(p)+2 > maxChunkLen && buf.Len() > 0 {
			parts = append(parts, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	if strings.TrimSpace(buf.String()) != "" {
		parts = append(parts, strings.TrimSpace(buf.String()))
	}
	return parts
}

// cutRuneSafe truncates s to at most n bytes, backing off so no UTF-8
// sequence is split across the cut.
func cutRuneSafe(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
