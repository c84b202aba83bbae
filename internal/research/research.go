// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research orchestrates the acquisition pipeline: synthesize
// queries, search, extract, score, summarize, and accumulate ranked
// sources until the requested count is reached or search is exhausted.
package research

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/webresearch/internal/seenurl"
	"github.com/pdiddy/webresearch/pkg/types"
)

const defaultMaxIterations = 3

// QuerySource produces search queries for a topic. It never fails
// terminally; a degraded source still returns at least one query.
type QuerySource interface {
	Generate(ctx context.Context, topic string) []string
}

// Searcher yields deduplicated candidate links. Per-query failures are
// reported as strings, not errors: they reduce yield, never abort.
type Searcher interface {
	Search(ctx context.Context, queries []string, w io.Writer) ([]types.CandidateLink, []string)
	SearchWithExclusions(ctx context.Context, query string, w io.Writer) ([]types.CandidateLink, []string)
}

// Extractor fetches a URL and extracts its readable text. Probe applies
// the cheap scrapability threshold, Extract the acceptance threshold. All
// failures resolve to Success=false with a reason.
type Extractor interface {
	Extract(ctx context.Context, url string) types.ExtractedDocument
	Probe(ctx context.Context, url string) types.ExtractedDocument
}

// Scorer rates extracted text against the topic.
type Scorer interface {
	Score(ctx context.Context, text, topic string, published time.Time) (float64, []string)
}

// Summarizer condenses extracted text; "" means summarization failed.
type Summarizer interface {
	Summarize(ctx context.Context, text, topic string) string
}

// Coordinator drives one research run. Collaborators are injected; the
// registry is owned by the run and must not be shared across runs.
type Coordinator struct {
	Queries    QuerySource
	Searcher   Searcher
	Extractor  Extractor
	Scorer     Scorer
	Summarizer Summarizer
	Registry   *seenurl.Registry
	Config     types.ResearchConfig
	Log        io.Writer
}

// accumulator collects results and counters across candidate workers.
type accumulator struct {
	mu      sync.Mutex
	results []types.ScoredResult
	out     types.ResearchOutput
}

func (a *accumulator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Run executes the research loop for topic. The only hard errors are bad
// arguments; everything downstream degrades to fewer results. A run that
// finds nothing usable returns an empty result list, not an error. The
// result list never exceeds Config.NumResults: requesting zero results
// returns an empty list without searching.
func (c *Coordinator) Run(ctx context.Context, topic string) (types.ResearchOutput, error) {
	if c.Searcher == nil {
		return types.ResearchOutput{}, fmt.Errorf("no search backend configured")
	}
	if c.Config.NumResults < 0 {
		return types.ResearchOutput{}, fmt.Errorf("num results must not be negative, got %d", c.Config.NumResults)
	}

	cfg := c.Config
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.SeenPolicy == "" {
		cfg.SeenPolicy = types.SeenOnSight
	}
	w := c.Log
	if w == nil {
		w = io.Discard
	}
	if c.Registry == nil {
		c.Registry = seenurl.New()
	}

	acc := &accumulator{}
	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			break
		}
		if acc.count() >= cfg.NumResults {
			break
		}

		candidates, queryErrors, probeFirst := c.gather(ctx, topic, iteration, w)
		acc.mu.Lock()
		acc.out.Iterations++
		acc.out.CandidatesSeen += len(candidates)
		acc.out.QueryErrors = append(acc.out.QueryErrors, queryErrors...)
		acc.mu.Unlock()

		if len(candidates) == 0 {
			fmt.Fprintf(w, "iteration %d found no new candidates, stopping\n", iteration+1)
			break
		}
		fmt.Fprintf(w, "iteration %d: %d candidates\n", iteration+1, len(candidates))

		if cfg.Concurrency > 1 {
			c.processParallel(ctx, topic, candidates, cfg, probeFirst, acc, w)
		} else {
			for _, cand := range candidates {
				if acc.count() >= cfg.NumResults {
					break
				}
				c.process(ctx, topic, cand, cfg, probeFirst, acc, w)
			}
		}
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	sort.SliceStable(acc.results, func(i, j int) bool {
		if acc.results[i].QualityScore != acc.results[j].QualityScore {
			return acc.results[i].QualityScore > acc.results[j].QualityScore
		}
		return acc.results[i].URL < acc.results[j].URL
	})
	if len(acc.results) > cfg.NumResults {
		acc.results = acc.results[:cfg.NumResults]
	}
	acc.out.Results = acc.results
	return acc.out, nil
}

// gather runs the search for one iteration. The first pass fans out over
// synthesized queries; later passes issue a single topic query with
// -site: exclusions for ground already covered. Exclusion-search hits skip
// the title filter, so they carry a probe-first marker: a cheap
// scrapability check runs before the full extraction.
func (c *Coordinator) gather(ctx context.Context, topic string, iteration int, w io.Writer) ([]types.CandidateLink, []string, bool) {
	if iteration == 0 {
		queries := []string{topic}
		if c.Queries != nil {
			queries = c.Queries.Generate(ctx, topic)
		}
		candidates, queryErrors := c.Searcher.Search(ctx, queries, w)
		return candidates, queryErrors, false
	}
	candidates, queryErrors := c.Searcher.SearchWithExclusions(ctx, topic, w)
	return candidates, queryErrors, true
}

// process runs one candidate through extract, score, and summarize.
// Failures are logged and counted; nothing aborts the run.
func (c *Coordinator) process(ctx context.Context, topic string, cand types.CandidateLink, cfg types.ResearchConfig, probeFirst bool, acc *accumulator, w io.Writer) {
	if cfg.SeenPolicy == types.SeenOnSight {
		c.Registry.Add(cand.URL)
	}

	if probeFirst {
		if probe := c.Extractor.Probe(ctx, cand.URL); !probe.Success {
			fmt.Fprintf(w, "warning: skipping %s: %s\n", cand.URL, probe.Err)
			acc.mu.Lock()
			acc.out.Rejected++
			acc.mu.Unlock()
			return
		}
	}

	doc := c.Extractor.Extract(ctx, cand.URL)
	if !doc.Success {
		fmt.Fprintf(w, "warning: skipping %s: %s\n", cand.URL, doc.Err)
		acc.mu.Lock()
		acc.out.Rejected++
		acc.mu.Unlock()
		return
	}

	score, reasons := c.Scorer.Score(ctx, doc.Text, topic, cand.Published)
	summary := c.Summarizer.Summarize(ctx, doc.Text, topic)

	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.out.Fetched++
	if summary == "" {
		acc.out.SummaryFailures++
		if cfg.DropEmptySummaries {
			fmt.Fprintf(w, "warning: dropping %s: no summary\n", cand.URL)
			return
		}
	}
	if cfg.SeenPolicy == types.SeenOnSuccess {
		c.Registry.Add(cand.URL)
	}
	acc.results = append(acc.results, types.ScoredResult{
		CandidateLink: cand,
		QualityScore:  score,
		Reasons:       reasons,
		Summary:       summary,
	})
}

// processParallel fans the iteration's candidates out to a bounded worker
// pool. The whole batch is processed; ranking and truncation happen once
// at the end of the run.
func (c *Coordinator) processParallel(ctx context.Context, topic string, candidates []types.CandidateLink, cfg types.ResearchConfig, probeFirst bool, acc *accumulator, w io.Writer) {
	jobs := make(chan types.CandidateLink)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				c.process(ctx, topic, cand, cfg, probeFirst, acc, w)
			}
		}()
	}
	for _, cand := range candidates {
		jobs <- cand
	}
	close(jobs)
	wg.Wait()
}
