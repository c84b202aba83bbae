// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector lists elements removed before text extraction.
const boilerplateSelector = "script, style, nav, footer, header, noscript"

// contentSelectors are tried in priority order to locate the main content
// region. The page body is the last resort.
var contentSelectors = []string{"article", ".main-content", "#content"}

// textSelector picks the text-bearing elements within the content region.
const textSelector = "p, h1, h2, h3, h4, h5, h6"

var whitespaceRun = regexp.MustCompile(`\s+`)

// extractHTMLText strips boilerplate from an HTML document and returns the
// readable text of its main content region with whitespace collapsed.
func extractHTMLText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find(boilerplateSelector).Remove()

	region := doc.Selection
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			region = found
			break
		}
	}

	var parts []string
	region.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	// A located region with no paragraph content is usually a styling
	// wrapper; fall back to the whole page.
	if len(parts) == 0 && region != doc.Selection {
		doc.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
	}

	text := strings.Join(parts, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")), nil
}
