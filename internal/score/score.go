// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks extracted documents against a research topic. The
// score is a deterministic linear combination of term overlap, a structural
// bonus for paper-shaped documents, and a recency penalty. The only model
// call is the per-topic descriptor derivation, which is cached for the
// lifetime of the scorer.
package score

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/webresearch/internal/llm"
)

const (
	technicalTermWeight   = 3
	keywordWeight         = 2
	structureBonus        = 30
	recencyPenaltyPerYear = 5
)

// structureTerms mark documents with a recognizable report structure.
var structureTerms = []string{"methodology", "implementation", "results", "conclusion"}

// nowYear is swapped in recency tests.
var nowYear = func() int { return time.Now().Year() }

const describePrompt = `Analyze this topic and list its domain vocabulary: %s

Respond with exactly two lines:
KEYWORDS: comma-separated domain keywords
TECHNICAL_TERMS: comma-separated technical terms a specialist document would use

No other text.`

// Descriptors hold the topic vocabulary used for term scoring. All terms
// are lowercase.
type Descriptors struct {
	Keywords       []string
	TechnicalTerms []string
}

// Scorer derives topic descriptors through a language model and scores
// document text against them. Safe for concurrent use.
type Scorer struct {
	LLM llm.Client

	mu    sync.Mutex
	cache map[string]Descriptors
}

func New(client llm.Client) *Scorer {
	return &Scorer{LLM: client, cache: make(map[string]Descriptors)}
}

// DescribeTopic returns the cached descriptors for topic, deriving them on
// first use. When the model call fails or its response has neither labeled
// line, the topic's own words stand in as keywords so scoring stays useful.
func (s *Scorer) DescribeTopic(ctx context.Context, topic string) Descriptors {
	s.mu.Lock()
	if d, ok := s.cache[topic]; ok {
		s.mu.Unlock()
		return d
	}
	s.mu.Unlock()

	d := s.derive(ctx, topic)

	s.mu.Lock()
	s.cache[topic] = d
	s.mu.Unlock()
	return d
}

func (s *Scorer) derive(ctx context.Context, topic string) Descriptors {
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(describePrompt, topic),
		Temperature: 0.2,
	})
	if err == nil {
		if d := ParseDescriptors(resp); len(d.Keywords) > 0 || len(d.TechnicalTerms) > 0 {
			return d
		}
	}
	return fallbackDescriptors(topic)
}

// ParseDescriptors parses the labeled two-line descriptor response. A
// missing label yields an empty set for it; there is no freeform recovery.
func ParseDescriptors(resp string) Descriptors {
	var d Descriptors
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "KEYWORDS:"):
			d.Keywords = splitTerms(line[len("KEYWORDS:"):])
		case strings.HasPrefix(upper, "TECHNICAL_TERMS:"):
			d.TechnicalTerms = splitTerms(line[len("TECHNICAL_TERMS:"):])
		}
	}
	return d
}

func splitTerms(s string) []string {
	var terms []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// fallbackDescriptors treats each topic word longer than three characters
// as a keyword.
func fallbackDescriptors(topic string) Descriptors {
	var d Descriptors
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(w) > 3 {
			d.Keywords = append(d.Keywords, w)
		}
	}
	return d
}

// Score rates text for topic, deriving descriptors as needed. published
// may be the zero time when the search hit carried no date.
func (s *Scorer) Score(ctx context.Context, text, topic string, published time.Time) (float64, []string) {
	return ScoreText(text, s.DescribeTopic(ctx, topic), published)
}

// ScoreText is the deterministic core: identical inputs always produce the
// same score and the same reasons in the same order.
func ScoreText(text string, d Descriptors, published time.Time) (float64, []string) {
	lower := strings.ToLower(text)
	score := 0.0
	var reasons []string

	techHits := countOccurrences(lower, d.TechnicalTerms)
	keywordHits := countOccurrences(lower, d.Keywords)
	score += float64(technicalTermWeight*techHits + keywordWeight*keywordHits)
	if techHits > 0 || keywordHits > 0 {
		reasons = append(reasons, fmt.Sprintf("%d technical term and %d keyword occurrences", techHits, keywordHits))
	}

	for _, term := range structureTerms {
		if strings.Contains(lower, term) {
			score += structureBonus
			reasons = append(reasons, "structured document (found "+term+")")
			break
		}
	}

	if year := published.Year(); year > 1 {
		if age := nowYear() - year; age > 0 {
			score -= float64(recencyPenaltyPerYear * age)
		}
		reasons = append(reasons, fmt.Sprintf("published %d", year))
	}

	if score < 0 {
		score = 0
	}
	return score, reasons
}

func countOccurrences(lower string, terms []string) int {
	total := 0
	for _, term := range terms {
		total += strings.Count(lower, term)
	}
	return total
}
