package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ycotes/professor/internal/app"
	"github.com/ycotes/professor/internal/config"
	"github.com/ycotes/professor/internal/tutor"
)

var (
	askStyle    string
	askLanguage string
	askSession  string
	askSocratic bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the knowledge base",
	Long: `Ask answers a question from the ingested study material.

The answer style and language can be tuned:

  professor ask --style beginner "What is gradient descent?"
  professor ask --lang hi "बैकप्रोपेगेशन क्या है?"

With --socratic, guiding sub-questions are generated instead of a
direct answer. With --session, the exchange continues an existing
conversation and is recorded in it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askStyle, "style", "", "answer style: concise, detailed, technical, beginner")
	askCmd.Flags().StringVar(&askLanguage, "lang", "", "answer language: en, hi")
	askCmd.Flags().StringVar(&askSession, "session", "", "session ID to continue")
	askCmd.Flags().BoolVar(&askSocratic, "socratic", false, "generate guiding sub-questions instead of answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	question := strings.TrimSpace(strings.Join(args, " "))

	if askSocratic {
		questions, err := a.Tutor.SubQuestions(ctx, question)
		if err != nil {
			return fmt.Errorf("generating sub-questions: %w", err)
		}
		fmt.Println(labelStyle.Render("Work through these first:"))
		for i, q := range questions {
			fmt.Printf("  %d. %s\n", i+1, q)
		}
		return nil
	}

	style := askStyle
	if style == "" {
		style = cfg.Style
	}
	parsedStyle, err := tutor.ParseStyle(style)
	if err != nil {
		return err
	}
	language := askLanguage
	if language == "" {
		language = cfg.Language
	}

	opts := tutor.AskOptions{Style: parsedStyle, Language: language}

	var sessionID uuid.UUID
	if askSession != "" {
		sessionID, err = uuid.Parse(askSession)
		if err != nil {
			return fmt.Errorf("invalid session ID %q", askSession)
		}
		history, err := a.Sessions.History(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("loading session history: %w", err)
		}
		opts.History = history
	}

	answer, err := a.Tutor.Ask(ctx, question, opts)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	if sessionID != uuid.Nil {
		if err := a.Sessions.AppendExchange(ctx, sessionID, question, answer.Text); err != nil {
			logger.Warn("failed to record exchange", "session_id", sessionID, "error", err)
		}
	}

	renderAnswer(answer)
	return nil
}
