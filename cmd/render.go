package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ycotes/professor/internal/tutor"
)

// Terminal styles for CLI output.
var (
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	costStyle   = lipgloss.NewStyle().Faint(true)
)

// renderMarkdown converts markdown to styled terminal output, degrading
// to plain text when the renderer cannot be created.
func renderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}

// renderAnswer prints an answer with its sources and cost line.
func renderAnswer(answer *tutor.Answer) {
	fmt.Println(renderMarkdown(answer.Text))

	if len(answer.Sources) > 0 {
		fmt.Println(labelStyle.Render("Sources:"))
		for i, src := range answer.Sources {
			line := fmt.Sprintf("  %d. %s (%s, score %.3f)", i+1, src.Title, src.Source, src.Similarity)
			fmt.Println(sourceStyle.Render(line))
		}
	} else if !answer.Grounded {
		fmt.Println(sourceStyle.Render("  (no matching course material; answered from general knowledge)"))
	}

	if answer.CostUSD > 0 {
		fmt.Println(costStyle.Render(fmt.Sprintf("cost: $%.6f", answer.CostUSD)))
	}
}
