package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// RenderJSON writes v as indented JSON to path
func RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes a table of the reranked results to path
func RenderMarkdown(res RerankResult, path string) error {
	var b strings.Builder
	WriteMarkdown(&b, res)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMarkdown renders res as a Markdown report
func WriteMarkdown(w io.Writer, res RerankResult) {
	fmt.Fprintf(w, "# EOQ rerank %s\n\n", res.BatchID)
	fmt.Fprintf(w, "Moved %d of %d results, average change %.1f positions.\n\n",
		res.Stats.TotalMoved, len(res.Results), res.Stats.AverageChange)

	fmt.Fprintln(w, "| Rank | Was | EOQ | Empathy | Certainty | Boundary | Refinement | Method | Title |")
	fmt.Fprintln(w, "|-----:|----:|----:|--------:|----------:|---------:|-----------:|--------|-------|")
	for i, r := range res.Results {
		c := r.Score.Components
		fmt.Fprintf(w, "| %d | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %s | %s |\n",
			i+1, r.Result.OriginalPosition, r.Score.Total,
			c.Empathy, c.Certainty, c.Boundary, c.Refinement,
			r.Score.Method, markdownCell(r.Result.Title))
	}
}

// RenderSummary prints a short plain-text ranking
func RenderSummary(w io.Writer, res RerankResult) {
	fmt.Fprintf(w, "\nEOQ ranking (%d results, %d moved)\n", len(res.Results), res.Stats.TotalMoved)
	for i, r := range res.Results {
		fmt.Fprintf(w, "  %2d. [%.2f] %s%s\n", i+1, r.Score.Total, title(r.Result), movement(i+1, r.Result.OriginalPosition))
	}
}

func title(r model.SearchResult) string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

func movement(rank, was int) string {
	switch {
	case was == 0 || was == rank:
		return ""
	case was > rank:
		return fmt.Sprintf(" (up %d)", was-rank)
	default:
		return fmt.Sprintf(" (down %d)", rank-was)
	}
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
