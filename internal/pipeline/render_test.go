package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

func sampleRerank() RerankResult {
	sorted := []model.ScoredResult{
		{Result: model.SearchResult{Title: "Cats | Dogs", URL: "https://a.test", OriginalPosition: 2}, Score: model.EOQScore{Total: 0.8, Method: model.MethodHeuristic}},
		{Result: model.SearchResult{URL: "https://b.test", OriginalPosition: 1}, Score: model.EOQScore{Total: 0.4, Method: model.MethodHeuristic}},
	}
	return RerankResult{BatchID: "batch-1", Results: sorted, Stats: ReorderingStats(sorted)}
}

func TestWriteMarkdown(t *testing.T) {
	var b strings.Builder
	WriteMarkdown(&b, sampleRerank())
	out := b.String()

	if !strings.Contains(out, "# EOQ rerank batch-1") {
		t.Error("expected heading with batch id")
	}
	if !strings.Contains(out, `Cats \| Dogs`) {
		t.Error("expected pipe escaped in title cell")
	}
	if !strings.Contains(out, "| 1 | 2 | 0.80 |") {
		t.Errorf("expected first row, got:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	var b strings.Builder
	RenderSummary(&b, sampleRerank())
	out := b.String()

	if !strings.Contains(out, "Cats | Dogs (up 1)") || !strings.Contains(out, "https://b.test (down 1)") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestRenderFiles(t *testing.T) {
	dir := t.TempDir()
	res := sampleRerank()

	jsonPath := filepath.Join(dir, "out.json")
	if err := RenderJSON(res, jsonPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded RerankResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.BatchID != "batch-1" || len(decoded.Results) != 2 {
		t.Errorf("unexpected decoded result: %+v", decoded)
	}

	mdPath := filepath.Join(dir, "out.md")
	if err := RenderMarkdown(res, mdPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mdPath); err != nil {
		t.Error("expected markdown file written")
	}

	if err := RenderJSON(res, filepath.Join(dir, "missing", "out.json")); err == nil {
		t.Error("expected error for missing directory")
	}
}
