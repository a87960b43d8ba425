package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
)

var statsJSON bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache, reputation and failure statistics",
	Long: `Stats loads the persisted state and prints cache sizes, reputation
counts, the failed-domain set and remote failure recommendations.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := openPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		snap := p.Stats()
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		printStats(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
}

func printStats(w io.Writer, s pipeline.Snapshot) {
	fmt.Fprintln(w, "Caches")
	fmt.Fprintf(w, "  scores:       %d entries\n", s.ScoreCache.Entries)
	fmt.Fprintf(w, "  enhancements: %d entries\n", s.EnhancementCache.Entries)
	fmt.Fprintf(w, "  pages:        %d entries\n", s.Queue.CacheSize)

	r := s.Reputation
	fmt.Fprintln(w, "\nReputation")
	fmt.Fprintf(w, "  domains: %d (high %d, neutral %d, low %d), average %.2f\n",
		r.TotalDomains, r.HighReputation, r.Neutral, r.LowReputation, r.AverageScore)
	fmt.Fprintf(w, "  with interactions: %d\n", r.TrackedInteractions)

	if len(s.FailedDomains) > 0 {
		fmt.Fprintln(w, "\nFailed domains")
		for _, d := range s.FailedDomains {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	if s.Failures.Total > 0 {
		f := s.Failures
		fmt.Fprintln(w, "\nRemote failures")
		fmt.Fprintf(w, "  total %d: rate limit %d, auth %d, network %d, parse %d, other %d\n",
			f.Total, f.RateLimits, f.AuthErrors, f.NetworkErrors, f.ParseErrors, f.OtherErrors)
		for _, rec := range s.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
}
