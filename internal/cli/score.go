package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/pipeline"
	"github.com/thedivinememe/eoq-search-reranker/internal/worker"
)

var (
	outJSON       string
	outMD         string
	runTimeout    time.Duration
	noEnhancement bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <file|->",
	Short: "Score search results without reordering them",
	Long: `Score reads search results and prints the EOQ total and components of
each one in input order.

Input is a JSON array of {title, snippet, url}, JSON lines, or one URL per
line. Use "-" to read from stdin.

Example:
  eoq score results.json
  eoq score results.json --json scores.json
  cat urls.txt | eoq score - --no-enhance`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&outJSON, "json", "", "write scores as JSON to this path")
	scoreCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall timeout")
	scoreCmd.Flags().BoolVar(&noEnhancement, "no-enhance", false, "skip content enhancement")
}

func runScore(cmd *cobra.Command, args []string) error {
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

	if verbose {
		fmt.Fprintf(os.Stderr, "Scoring %d results\n", len(results))
	}
	scored := p.ScoreBatch(ctx, results)

	out := cmd.OutOrStdout()
	for _, s := range scored {
		c := s.Score.Components
		fmt.Fprintf(out, "%2d. [%.2f] E%.2f C%.2f B%.2f R%.2f %-18s %s\n",
			s.Result.OriginalPosition, s.Score.Total,
			c.Empathy, c.Certainty, c.Boundary, c.Refinement,
			s.Score.Method, displayTitle(s.Result))
	}

	if outJSON != "" {
		if err := pipeline.RenderJSON(scored, outJSON); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Scores written to %s\n", outJSON)
	}

	return closePipeline(ctx, p)
}

func displayTitle(r model.SearchResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}
