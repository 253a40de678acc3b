package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ycotes/professor/internal/app"
)

var purgeSource string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired or source-specific knowledge base documents",
	Long: `Purge removes expired documents from the knowledge base. With
--source, all documents from that ingestion source are removed instead,
expired or not.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeSource, "source", "", "remove all documents from this source instead of expired ones")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app.App) error {
		if purgeSource != "" {
			deleted, err := a.Knowledge.DeleteBySource(cmd.Context(), purgeSource)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d documents from %s\n", deleted, purgeSource)
			return nil
		}

		purged, err := a.Knowledge.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("purged %d expired documents\n", purged)
		return nil
	})
}
