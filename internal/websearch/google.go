// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/webresearch/internal/httputil"
	"github.com/pdiddy/webresearch/pkg/types"
)

// googleAPIBase is the Custom Search JSON API endpoint. Declared as a var
// so tests can substitute an httptest server.
var googleAPIBase = "https://www.googleapis.com/customsearch/v1"

// publishedTimeFormats are tried in order when parsing metatag dates.
var publishedTimeFormats = []string{time.RFC3339, "2006-01-02"}

// GoogleCSEBackend queries the Google Custom Search JSON API.
type GoogleCSEBackend struct {
	Client   *http.Client
	APIKey   string
	EngineID string
}

// Name returns the backend identifier.
func (b *GoogleCSEBackend) Name() string { return "google_cse" }

// Search issues one Custom Search request for the query, bounded to at most
// ten hits. RestrictRecent adds a five-year date restriction with
// date-sorted results; TrustedSites biases the query toward those domains.
func (b *GoogleCSEBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.CandidateLink, error) {
	if b.APIKey == "" || b.EngineID == "" {
		return nil, fmt.Errorf("google_cse requires an API key and engine ID")
	}

	params := url.Values{
		"key": {b.APIKey},
		"cx":  {b.EngineID},
		"q":   {biasTrusted(query, cfg.TrustedSites)},
		"num": {fmt.Sprintf("%d", pageSize(cfg))},
	}
	if cfg.RestrictRecent {
		params.Set("dateRestrict", "y5")
		params.Set("sort", "date")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("custom search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom search returned HTTP %d", resp.StatusCode)
	}

	var cr cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing custom search response: %w", err)
	}

	var links []types.CandidateLink
	for _, item := range cr.Items {
		if item.Link == "" {
			continue
		}
		links = append(links, types.CandidateLink{
			Title:     item.Title,
			URL:       item.Link,
			Snippet:   item.Snippet,
			Published: parsePublished(item.publishedTime()),
		})
	}
	return links, nil
}

// Custom Search API JSON structures.
type cseResponse struct {
	Items []cseItem `json:"items"`
}

type cseItem struct {
	Title   string     `json:"title"`
	Link    string     `json:"link"`
	Snippet string     `json:"snippet"`
	Pagemap csePagemap `json:"pagemap"`
}

type csePagemap struct {
	Metatags []map[string]string `json:"metatags"`
}

// publishedTime returns the article:published_time metatag of the first
// metatag block, or "".
func (i cseItem) publishedTime() string {
	if len(i.Pagemap.Metatags) == 0 {
		return ""
	}
	return i.Pagemap.Metatags[0]["article:published_time"]
}

// parsePublished parses a metatag date. Unparseable dates yield the zero
// time; recency scoring silently skips them.
func parsePublished(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range publishedTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
