// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves candidate URLs and extracts their readable text.
//
// Dispatch is by URL suffix and Content-Type sniffing: PDF bytes go through
// the page-by-page text extractor, everything else through the HTML
// boilerplate stripper. Extraction never returns a Go error; every failure
// path resolves to an ExtractedDocument with Success false and a reason.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/webresearch/internal/httputil"
	"github.com/pdiddy/webresearch/pkg/types"
)

// Extraction thresholds. A probe is the cheap scrapability check run before
// a candidate is worth ranking; acceptance is the bar for entering the
// research set. The PDF bar sits between them because PDF extraction is
// lossier than HTML.
const (
	// ProbeMinChars is the minimum text length for a lightweight
	// scrapability probe to pass.
	ProbeMinChars = 200

	// AcceptMinChars is the minimum text length for final acceptance of an
	// HTML document into the research set.
	AcceptMinChars = 1000

	// PDFMinChars is the minimum text length for an extracted PDF.
	PDFMinChars = 500
)

// defaultRetries is the attempt count for HTML fetches on transient
// failure. PDF fetches are attempted once.
const defaultRetries = 2

// defaultTimeout bounds outbound calls when the config leaves the timeout
// unset. A zero-timeout http.Client would wait forever on a stalled host.
const defaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a remote document is read.
const maxBodyBytes = 20 << 20

// paywallPhrases reject a document regardless of its length.
var paywallPhrases = []string{
	"sign in",
	"log in",
	"subscribe",
	"paywall",
	"premium content",
	"members only",
	"subscription required",
}

// Extractor fetches and extracts remote documents.
type Extractor struct {
	client *http.Client
	cfg    types.FetchConfig
}

// New returns an extractor whose HTTP client enforces cfg.Timeout on every
// outbound call. A zero or negative timeout falls back to defaultTimeout.
func New(cfg types.FetchConfig) *Extractor {
	if cfg.Retries <= 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Extractor{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Extract fetches url and extracts its main text at the acceptance
// threshold.
func (e *Extractor) Extract(ctx context.Context, url string) types.ExtractedDocument {
	return e.extract(ctx, url, AcceptMinChars)
}

// Probe fetches url at the lightweight threshold. It answers "is this page
// scrapable at all" without holding it to the acceptance bar.
func (e *Extractor) Probe(ctx context.Context, url string) types.ExtractedDocument {
	return e.extract(ctx, url, ProbeMinChars)
}

func (e *Extractor) extract(ctx context.Context, url string, htmlMin int) types.ExtractedDocument {
	doc := types.ExtractedDocument{URL: url}
	if strings.TrimSpace(url) == "" {
		doc.Err = "empty URL"
		return doc
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	if isPDFURL(url) {
		return e.extractPDF(ctx, doc, url)
	}

	// HTML path, retried on transient failure. Content failures (too
	// short, paywalled) are final: refetching the same page cannot fix them.
	var lastErr string
	for attempt := 0; attempt < e.cfg.Retries; attempt++ {
		body, contentType, err := e.fetch(ctx, url)
		if err != nil {
			lastErr = err.Error()
			continue
		}

		if strings.Contains(contentType, "application/pdf") {
			return e.finishPDF(doc, body)
		}

		text, err := extractHTMLText(body)
		if err != nil {
			lastErr = fmt.Sprintf("parsing HTML: %v", err)
			continue
		}
		return finish(doc, text, htmlMin)
	}
	doc.Err = lastErr
	return doc
}

func (e *Extractor) extractPDF(ctx context.Context, doc types.ExtractedDocument, url string) types.ExtractedDocument {
	body, _, err := e.fetch(ctx, url)
	if err != nil {
		doc.Err = err.Error()
		return doc
	}
	return e.finishPDF(doc, body)
}

func (e *Extractor) finishPDF(doc types.ExtractedDocument, body []byte) types.ExtractedDocument {
	text, err := extractPDFText(body)
	if err != nil {
		doc.Err = fmt.Sprintf("extracting PDF text: %v", err)
		return doc
	}
	return finish(doc, text, PDFMinChars)
}

// finish applies the paywall and length checks shared by both paths.
func finish(doc types.ExtractedDocument, text string, minChars int) types.ExtractedDocument {
	if phrase := paywallIndicator(text); phrase != "" {
		doc.Err = fmt.Sprintf("paywall indicator %q found", phrase)
		return doc
	}
	if len(text) < minChars {
		doc.Err = fmt.Sprintf("content too short (%d chars, need %d)", len(text), minChars)
		return doc
	}
	doc.Success = true
	doc.Text = text
	return doc
}

// fetch performs one GET with browser-like headers. The user agent rotates
// across attempts unless the config pins one.
func (e *Extractor) fetch(ctx context.Context, url string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	httputil.BrowserHeaders(req, e.cfg.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}
	return body, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

func isPDFURL(url string) bool {
	u := strings.ToLower(url)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".pdf")
}

// paywallIndicator returns the first paywall phrase found in text, or "".
func paywallIndicator(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range paywallPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}
