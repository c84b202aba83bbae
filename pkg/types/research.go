// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the webresearch pipeline.
//
// Data flows strictly downstream: topic → queries → candidate links →
// extracted documents → scored, summarized results. Every type here is
// created and discarded within a single research run; nothing is persisted
// unless the caller opts into the run store.
package types

import "time"

// CandidateLink is a raw search hit that has not yet been fetched or
// validated. The URL is the natural key.
type CandidateLink struct {
	// Title is the hit title as returned by the search backend.
	Title string `json:"title" yaml:"title"`

	// URL is the original link. It is always fetched as-is; normalization
	// is only ever applied for dedup checks.
	URL string `json:"url" yaml:"url"`

	// Snippet is the short result excerpt, when the backend provides one.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Published is the publish date when the backend could determine one.
	// The zero value means unknown.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`
}

// ExtractedDocument is the outcome of fetching and parsing one candidate URL.
// Success is true only when enough readable text was recovered and no
// paywall indicator was found; all failure paths set Err instead of
// returning a Go error.
type ExtractedDocument struct {
	URL     string `json:"url" yaml:"url"`
	Success bool   `json:"success" yaml:"success"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Err     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScoredResult is a candidate that survived extraction, scoring, and
// summarization.
type ScoredResult struct {
	CandidateLink `yaml:",inline"`

	// QualityScore is the heuristic relevance/recency rank. Unbounded
	// above, floored at zero; higher is better.
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`

	// Reasons lists human-readable scoring reasons in discovery order.
	Reasons []string `json:"relevance_reasons,omitempty" yaml:"relevance_reasons,omitempty"`

	// Summary is the topic-anchored condensation of the extracted text.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ResearchOutput holds the ranked results of one research run together with
// run statistics.
type ResearchOutput struct {
	// Results is sorted descending by QualityScore and never exceeds the
	// requested result count. No two entries share a normalized URL.
	Results []ScoredResult `json:"results" yaml:"results"`

	// Iterations is the number of search iterations performed.
	Iterations int `json:"iterations" yaml:"iterations"`

	// CandidatesSeen counts distinct candidates returned by search.
	CandidatesSeen int `json:"candidates_seen" yaml:"candidates_seen"`

	// Fetched counts candidates whose extraction was attempted.
	Fetched int `json:"fetched" yaml:"fetched"`

	// Rejected counts candidates dropped for content reasons (too short,
	// paywalled, unparsable).
	Rejected int `json:"rejected" yaml:"rejected"`

	// SummaryFailures counts candidates that extracted cleanly but whose
	// summarization returned nothing.
	SummaryFailures int `json:"summary_failures" yaml:"summary_failures"`

	// QueryErrors records per-query search failures. They reduce yield but
	// never abort a run.
	QueryErrors []string `json:"query_errors,omitempty" yaml:"query_errors,omitempty"`
}
