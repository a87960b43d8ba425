package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage persisted caches",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the score, page and enhancement caches and the failed-domain set",
	Long:  `Clear removes cached scores, fetched pages, content analyses and failed domains. Domain reputations are kept.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := openPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		if err := p.ClearCaches(cmd.Context()); err != nil {
			return fmt.Errorf("clear caches: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Caches cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
