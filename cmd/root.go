// Package cmd implements the professor command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ycotes/professor/internal/log"
)

var debugMode bool

var rootCmd = &cobra.Command{
	Use:   "professor",
	Short: "Professor - an AI tutor grounded in your own study material",
	Long: `Professor answers study questions from material you feed it:
files, web pages, or pasted text. Material is chunked by topic, embedded,
and stored in PostgreSQL with pgvector; answers cite the chunks they
drew on and can be styled (concise, detailed, technical, beginner) and
translated (English, Hindi).

Run 'professor serve' to expose the same functionality over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

// setupLogger builds the process logger and installs it as the slog
// default so library code logs consistently.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugMode || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}
