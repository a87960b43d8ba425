package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Inspect and move domain reputation data",
}

var reputationShowCmd = &cobra.Command{
	Use:   "show <domain|url>",
	Short: "Show the reputation and interaction history of a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := openPipeline(cmd.Context())
		if err != nil {
			return err
		}

		view := p.Reputation(args[0])
		if view.Domain == "unknown" {
			_ = p.Close()
			return fmt.Errorf("no domain in %q", args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			_ = p.Close()
			return err
		}
		return closePipeline(cmd.Context(), p)
	},
}

var reputationExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export reputations and interaction histories as JSON",
	Long:  `Export writes every reputation entry and interaction history. Without a file it writes to stdout.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := openPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		data, err := json.MarshalIndent(p.ExportReputation(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal export: %w", err)
		}
		data = append(data, '\n')

		if len(args) == 0 {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "✓ Exported to %s\n", args[0])
		return nil
	},
}

var reputationImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge an export into the local store; newer records win",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var in model.ReputationExport
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		p, _, err := openPipeline(cmd.Context())
		if err != nil {
			return err
		}
		n := p.ImportReputation(in)
		if err := closePipeline(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d records\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reputationCmd)
	reputationCmd.AddCommand(reputationShowCmd)
	reputationCmd.AddCommand(reputationExportCmd)
	reputationCmd.AddCommand(reputationImportCmd)
}
