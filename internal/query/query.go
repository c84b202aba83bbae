// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a topic into a small set of diversified search queries.
//
// The queries are machine-generated, so the parser here is strict: one query
// per line, markers and quotes stripped, never evaluated. When generation
// fails the synthesizer falls back to deterministic templates derived from
// the topic, so callers always receive at least one usable query.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/webresearch/internal/llm"
)

// maxQueries caps the number of queries generated per call.
const maxQueries = 5

// domainExclusions filters low-signal generic platforms out of every query.
var domainExclusions = []string{
	"-site:linkedin.com",
	"-site:quora.com",
	"-site:youtube.com",
}

const fileTypeFilter = "filetype:pdf|html"

const generatePrompt = `Generate %d technical search queries for "%s".
Include these elements:
1. Expand acronyms (e.g., AR -> Augmented Reality, AI -> Artificial Intelligence)
2. Specify content types: case study, use case article, blog, technical report
3. Include industry-specific terminology
4. Focus on recent implementations

Return exactly one query per line with no numbering and no other text.`

// Synthesizer generates search queries for a topic.
type Synthesizer struct {
	LLM llm.Client
}

// Generate returns up to five distinct queries covering complementary
// angles, each augmented with domain exclusions and a filetype restriction.
// It never fails terminally: on any generation or parse problem it returns
// the deterministic fallback list.
func (s *Synthesizer) Generate(ctx context.Context, topic string) []string {
	queries := s.fromModel(ctx, topic)
	if len(queries) == 0 {
		queries = fallbackQueries(topic)
	}

	augmented := make([]string, 0, len(queries))
	for _, q := range queries {
		augmented = append(augmented, augment(q))
	}
	return augmented
}

func (s *Synthesizer) fromModel(ctx context.Context, topic string) []string {
	if s.LLM == nil {
		return nil
	}
	text, err := s.LLM.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(generatePrompt, maxQueries, topic),
		Temperature: 0.5,
	})
	if err != nil {
		return nil
	}
	return ParseQueryList(text)
}

// ParseQueryList extracts queries from model output, one per line. List
// markers ("1.", "-", "*"), surrounding quotes, and bracket lines are
// stripped. Output is capped at five entries and duplicates are dropped.
func ParseQueryList(text string) []string {
	var queries []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		q := cleanLine(line)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) >= maxQueries {
			break
		}
	}
	return queries
}

func cleanLine(line string) string {
	s := strings.TrimSpace(line)
	s = strings.Trim(s, "[]")

	// Numbered list marker: "3. query".
	if i := strings.IndexByte(s, '.'); i > 0 && i <= 2 && isDigits(s[:i]) {
		s = s[i+1:]
	}
	s = strings.TrimLeft(s, "-* ")
	s = strings.Trim(s, `"',`)
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fallbackQueries builds the deterministic template list used when
// generation fails or returns nothing parsable.
func fallbackQueries(topic string) []string {
	year := time.Now().Year()
	return []string{
		topic + " case study",
		topic + " technical report",
		topic + " implementation blog",
		topic + " whitepaper",
		fmt.Sprintf("%s analysis %d", topic, year),
	}
}

func augment(q string) string {
	return q + " " + strings.Join(domainExclusions, " ") + " " + fileTypeFilter
}
