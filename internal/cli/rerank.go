package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
	"github.com/thedivinememe/eoq-search-reranker/internal/worker"
)

// rerankCmd represents the rerank command
var rerankCmd = &cobra.Command{
	Use:   "rerank <file|->",
	Short: "Score a results page and reorder it by EOQ total",
	Long: `Rerank scores every result, orders them by EOQ total (ties keep their
original order) and reports how far each one moved.

Example:
  eoq rerank results.json
  eoq rerank results.json --json reranked.json --md reranked.md
  eoq rerank - --provider none < results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runRerank,
}

func init() {
	rootCmd.AddCommand(rerankCmd)

	rerankCmd.Flags().StringVar(&outJSON, "json", "", "write the reranked batch as JSON to this path")
	rerankCmd.Flags().StringVar(&outMD, "md", "", "write a Markdown report to this path")
	rerankCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall timeout")
	rerankCmd.Flags().BoolVar(&noEnhancement, "no-enhance", false, "skip content enhancement")
}

func runRerank(cmd *cobra.Command, args []string) error {
	results, err := worker.ReadResultsFromFile(args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no results in %s", args[0])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	p, _, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	if noEnhancement {
		p.SetContentEnhancement(false)
	}

	start := time.Now()
	res := p.Rerank(ctx, results)
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Reranked %d results in %v (batch %s)\n", len(res.Results), time.Since(start).Round(time.Millisecond), res.BatchID)
	}

	pipeline.RenderSummary(cmd.OutOrStdout(), res)

	if outJSON != "" {
		if err := pipeline.RenderJSON(res, outJSON); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ JSON written to %s\n", outJSON)
	}
	if outMD != "" {
		if err := pipeline.RenderMarkdown(res, outMD); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown written to %s\n", outMD)
	}

	if failures := p.FailureStats(); failures.Total > 0 {
		fmt.Fprintf(os.Stderr, "\n⚠ %d remote scoring failures, heuristics used for those results\n", failures.Total)
	}

	return closePipeline(ctx, p)
}
