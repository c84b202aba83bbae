// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/webresearch/internal/httputil"
	"github.com/pdiddy/webresearch/pkg/types"
)

// serpBase is the search results page scraped when no API key is
// configured. Declared as a var so tests can substitute an httptest server.
var serpBase = "https://www.google.com/search"

// serpDelay sleeps a randomized 3-10 s before each results-page request to
// avoid server-side throttling. Tests stub it out.
var serpDelay = func() {
	time.Sleep(time.Duration(3000+rand.Intn(7000)) * time.Millisecond)
}

// SERPBackend scrapes a search results page directly. It is the fallback
// when the Custom Search API is unavailable: slower (politeness delays) and
// more fragile (markup changes), but needs no credentials.
type SERPBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *SERPBackend) Name() string { return "serp" }

// Search fetches one results page with a rotated browser user agent and
// parses the organic result blocks.
func (b *SERPBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.CandidateLink, error) {
	serpDelay()

	params := url.Values{"q": {biasTrusted(query, cfg.TrustedSites)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httputil.BrowserHeaders(req, cfg.UserAgent)
	req.Header.Set("Referer", "https://www.google.com/")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("results page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	links := parseResultBlocks(doc, pageSize(cfg))
	if len(links) == 0 {
		return nil, fmt.Errorf("no results parsed from page")
	}
	return links, nil
}

// parseResultBlocks extracts organic results from a parsed results page.
// The primary block class is tried first, then the legacy class.
func parseResultBlocks(doc *goquery.Document, limit int) []types.CandidateLink {
	blocks := doc.Find("div.tF2Cxc")
	if blocks.Length() == 0 {
		blocks = doc.Find("div.g")
	}

	var links []types.CandidateLink
	blocks.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || !strings.HasPrefix(href, "http") {
			return true
		}

		title := strings.TrimSpace(s.Find("h3").First().Text())
		if title == "" {
			title = "No title"
		}

		links = append(links, types.CandidateLink{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(s.Find("div.VwiC3b").First().Text()),
		})
		return len(links) < limit
	})
	return links
}
