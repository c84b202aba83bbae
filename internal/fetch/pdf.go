// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText extracts text from PDF bytes page by page, joining pages
// with blank lines. A page that fails to render is skipped; the document
// fails only when no page yields text. The pdf package panics on malformed
// input instead of returning errors, so the whole pass runs under recover.
func extractPDFText(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	numPages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	var pages []string

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			pages = append(pages, t)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in %d pages", numPages)
	}
	return strings.Join(pages, "\n\n"), nil
}
