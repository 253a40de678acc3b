package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ycotes/professor/internal/app"
	"github.com/ycotes/professor/internal/config"
	"github.com/ycotes/professor/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|directory|url]...",
	Short: "Add study material to the knowledge base",
	Long: `Ingest reads study material, splits it into topic chunks, embeds
them, and stores them in the knowledge base. Sources can be local files
(` + strings.Join(ingest.SupportedExtensions, ", ") + `), directories
(scanned non-recursively for supported files), or http(s) URLs.

Re-ingesting a source replaces its previous chunks. Material expires
after the configured TTL (default one week).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	var failed int
	for _, target := range args {
		reports, err := ingestTarget(cmd, a, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", target, err)
			failed++
			continue
		}
		for _, report := range reports {
			fmt.Printf("%s: %d chunks, %d chars, $%.6f\n",
				report.Source, report.Chunks, report.Characters, report.CostUSD)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(args))
	}
	return nil
}

func ingestTarget(cmd *cobra.Command, a *app.App, target string) ([]*ingest.Report, error) {
	ctx := cmd.Context()

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		report, err := a.Ingester.URL(ctx, target)
		if err != nil {
			return nil, err
		}
		return []*ingest.Report{report}, nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		report, err := a.Ingester.File(ctx, target)
		if err != nil {
			return nil, err
		}
		return []*ingest.Report{report}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}

	var reports []*ingest.Report
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(ingest.SupportedExtensions, ext) {
			continue
		}
		report, err := a.Ingester.File(ctx, filepath.Join(target, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		reports = append(reports, report)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no supported files in %s", target)
	}
	return reports, nil
}
