// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch executes queries against a search backend and returns
// deduplicated candidate links.
//
// Backends implement the Strategy pattern: the Google Custom Search API is
// the primary backend and a results-page scraper serves as fallback when no
// API key is configured. The Adapter wraps a backend with local filtering,
// registry dedup, and per-query pacing.
package websearch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/webresearch/internal/seenurl"
	"github.com/pdiddy/webresearch/pkg/types"
)

// Backend searches a single backend service for candidate links.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.CandidateLink, error)
}

// contentIndicators mark titles that promise substantive content. Strict
// mode drops hits whose title contains none of them.
var contentIndicators = []string{
	"case study",
	"technical report",
	"whitepaper",
	"implementation",
	"research paper",
	"analysis",
	"use case",
}

// maxExclusionHosts caps the -site: directives appended to exclusion
// queries, keeping query length reasonable.
const maxExclusionHosts = 30

// Adapter runs queries against a backend, filters hits, and drops
// candidates the run has already seen. One adapter belongs to one research
// run; it shares the run's registry with the coordinator.
type Adapter struct {
	backend  Backend
	registry *seenurl.Registry
	limiter  *rate.Limiter
	cfg      types.SearchConfig
}

// NewAdapter wires a backend to a run's registry. A positive
// cfg.QueriesPerSecond installs a rate limiter that paces consecutive
// search calls.
func NewAdapter(backend Backend, registry *seenurl.Registry, cfg types.SearchConfig) *Adapter {
	var limiter *rate.Limiter
	if cfg.QueriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), 1)
	}
	return &Adapter{backend: backend, registry: registry, limiter: limiter, cfg: cfg}
}

// Search issues one request per query and merges the hits. In strict mode
// (cfg.StrictTitles) hits whose title lacks a content indicator are dropped.
// Hits already in the registry, and duplicates within the batch, are
// removed. Per-query failures are logged to w and collected; they reduce
// yield for that query but never abort the search.
func (a *Adapter) Search(ctx context.Context, queries []string, w io.Writer) ([]types.CandidateLink, []string) {
	var links []types.CandidateLink
	var queryErrors []string
	batch := make(map[string]struct{})

	for _, query := range queries {
		if err := a.wait(ctx); err != nil {
			queryErrors = append(queryErrors, err.Error())
			break
		}

		hits, err := a.backend.Search(ctx, query, a.cfg)
		if err != nil {
			msg := fmt.Sprintf("%s: query %q: %v", a.backend.Name(), query, err)
			queryErrors = append(queryErrors, msg)
			fmt.Fprintf(w, "warning: search failed: %s\n", msg)
			continue
		}

		for _, hit := range hits {
			if a.cfg.StrictTitles && !titleRelevant(hit.Title) {
				continue
			}
			if a.dropDuplicate(hit.URL, batch) {
				continue
			}
			links = append(links, hit)
		}
	}
	return links, queryErrors
}

// SearchWithExclusions issues a single request with -site: directives for
// hosts the run has already seen, so the backend spends its page budget on
// new ground. It keeps all hits regardless of title, relying on the
// exclusions embedded in the query, then dedups against the registry.
func (a *Adapter) SearchWithExclusions(ctx context.Context, query string, w io.Writer) ([]types.CandidateLink, []string) {
	if hosts := a.registry.Hosts(maxExclusionHosts); len(hosts) > 0 {
		var b strings.Builder
		b.WriteString(query)
		for _, h := range hosts {
			b.WriteString(" -site:")
			b.WriteString(h)
		}
		query = b.String()
	}

	if err := a.wait(ctx); err != nil {
		return nil, []string{err.Error()}
	}

	hits, err := a.backend.Search(ctx, query, a.cfg)
	if err != nil {
		msg := fmt.Sprintf("%s: query %q: %v", a.backend.Name(), query, err)
		fmt.Fprintf(w, "warning: search failed: %s\n", msg)
		return nil, []string{msg}
	}

	var links []types.CandidateLink
	batch := make(map[string]struct{})
	for _, hit := range hits {
		if a.dropDuplicate(hit.URL, batch) {
			continue
		}
		links = append(links, hit)
	}
	return links, nil
}

// dropDuplicate reports whether url was already seen by the run or earlier
// in this batch, recording it in the batch set otherwise.
func (a *Adapter) dropDuplicate(url string, batch map[string]struct{}) bool {
	key := seenurl.Normalize(url)
	if _, dup := batch[key]; dup {
		return true
	}
	if a.registry.Contains(url) {
		return true
	}
	batch[key] = struct{}{}
	return false
}

func (a *Adapter) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	return a.limiter.Wait(ctx)
}

func titleRelevant(title string) bool {
	lower := strings.ToLower(title)
	for _, indicator := range contentIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// biasTrusted appends a site: OR-group for the configured trusted domains.
// Shared by backends.
func biasTrusted(query string, sites []string) string {
	if len(sites) == 0 {
		return query
	}
	terms := make([]string, len(sites))
	for i, s := range sites {
		terms[i] = "site:" + s
	}
	return query + " (" + strings.Join(terms, " OR ") + ")"
}

// pageSize clamps the configured page size to the 1-10 range the backends
// accept.
func pageSize(cfg types.SearchConfig) int {
	if cfg.PageSize <= 0 || cfg.PageSize > 10 {
		return 10
	}
	return cfg.PageSize
}
