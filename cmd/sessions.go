package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ycotes/professor/internal/app"
	"github.com/ycotes/professor/internal/config"
	"github.com/ycotes/professor/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage study sessions",
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new study session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsNew,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List study sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var (
	sessionStyle    string
	sessionLanguage string
)

func init() {
	sessionsNewCmd.Flags().StringVar(&sessionStyle, "style", "", "default answer style for the session")
	sessionsNewCmd.Flags().StringVar(&sessionLanguage, "lang", "", "default answer language for the session")

	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withApp handles the common load-config/setup/teardown dance for
// session subcommands.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	logger := setupLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return fn(a)
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		var title string
		if len(args) > 0 {
			title = args[0]
		}
		sess, err := a.Sessions.Create(cmd.Context(), title, sessionStyle, sessionLanguage)
		if err != nil {
			return err
		}
		fmt.Printf("created session %s\n", sess.ID)
		fmt.Printf("continue it with: professor ask --session %s \"...\"\n", sess.ID)
		return nil
	})
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		sessions, err := a.Sessions.List(cmd.Context(), 50, 0)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %-30s  %3d msgs  %s\n",
				s.ID, title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session ID %q", args[0])
	}
	return withApp(cmd, func(a *app.App) error {
		messages, err := a.Sessions.Messages(cmd.Context(), id, 1000, 0)
		if err != nil {
			return err
		}
		for _, m := range messages {
			if m.Role == session.RoleUser {
				fmt.Println(labelStyle.Render("You: ") + m.Content)
			} else {
				fmt.Println(labelStyle.Render("Professor:"))
				fmt.Println(renderMarkdown(m.Content))
			}
			fmt.Println()
		}
		return nil
	})
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session ID %q", args[0])
	}
	return withApp(cmd, func(a *app.App) error {
		if err := a.Sessions.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("deleted session %s\n", id)
		return nil
	})
}
