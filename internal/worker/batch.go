package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Scorer scores one search result
type Scorer interface {
	Score(ctx context.Context, r model.SearchResult) model.EOQScore
}

// BatchProcessor scores batches of results concurrently
type BatchProcessor struct {
	scorer      Scorer
	concurrency int
}

// NewBatchProcessor creates a batch processor. A concurrency of zero or less
// scores every result of a batch at once.
func NewBatchProcessor(scorer Scorer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		scorer:      scorer,
		concurrency: concurrency,
	}
}

// ProcessResults scores results and returns them in submission order.
// Results without a position take their 1-based index in the batch.
func (b *BatchProcessor) ProcessResults(ctx context.Context, results []model.SearchResult) []model.ScoredResult {
	if len(results) == 0 {
		return []model.ScoredResult{}
	}

	workers := b.concurrency
	if workers <= 0 || workers > len(results) {
		workers = len(results)
	}

	batch := make([]model.SearchResult, len(results))
	for i, r := range results {
		if r.OriginalPosition <= 0 {
			r.OriginalPosition = i + 1
		}
		batch[i] = r
	}

	pool := NewPool[model.ScoredResult](ctx, workers)
	pool.Start()

	for i, r := range batch {
		index, result := i, r
		pool.Submit(func(ctx context.Context) model.ScoredResult {
			return model.ScoredResult{
				Result: result,
				Score:  b.scorer.Score(ctx, result),
				Index:  index,
			}
		})
	}

	scored := pool.Wait()
	if len(scored) == len(batch) {
		return scored
	}

	// cancelled before every task ran
	out := make([]model.ScoredResult, len(batch))
	for i, r := range batch {
		out[i] = model.ScoredResult{Result: r, Score: model.NeutralScore(model.MethodError, "batch cancelled"), Index: i}
	}
	for _, s := range scored {
		out[s.Index] = s
	}
	return out
}

// ProcessFile reads results from a file and scores them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]model.ScoredResult, error) {
	results, err := ReadResultsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	return b.ProcessResults(ctx, results), nil
}

// ReadResultsFromFile reads results from a file. "-" reads standard input.
func ReadResultsFromFile(filePath string) ([]model.SearchResult, error) {
	if filePath == "-" {
		return ReadResults(os.Stdin)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadResults(file)
}

// ReadResults accepts a JSON array of results, one JSON result per line, or
// one URL per line. Blank lines and lines starting with # are skipped and
// repeated URLs are dropped.
func ReadResults(r io.Reader) ([]model.SearchResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var results []model.SearchResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		return dedupe(results), nil
	}

	var results []model.SearchResult
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "{") {
			var res model.SearchResult
			if err := json.Unmarshal([]byte(text), &res); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			results = append(results, res)
			continue
		}
		results = append(results, model.SearchResult{URL: text})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return dedupe(results), nil
}

func dedupe(results []model.SearchResult) []model.SearchResult {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if r.URL != "" && seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
