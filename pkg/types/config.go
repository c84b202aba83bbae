package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Outbound calls must always be
	// bounded; a hung remote server stalls a run by at most this much per call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests. Leave
	// empty to rotate through the built-in browser pool.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// AIConfig holds shared settings for stages that call a generative-text API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SearchConfig holds settings for the search backend adapter.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageSize is the number of hits requested per search call (max 10,
	// the Custom Search API ceiling).
	PageSize int `json:"page_size" yaml:"page_size"`

	// APIKey is the Google Custom Search API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// EngineID is the Custom Search engine identifier (cx).
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty"`

	// RestrictRecent limits hits to the last five years when true.
	RestrictRecent bool `json:"restrict_recent" yaml:"restrict_recent"`

	// TrustedSites biases queries toward the listed domains by appending a
	// site: OR-group. Empty means no bias.
	TrustedSites []string `json:"trusted_sites,omitempty" yaml:"trusted_sites,omitempty"`

	// StrictTitles keeps only hits whose title contains a content-type
	// indicator ("case study", "whitepaper", ...). The exclusion-based
	// search variant ignores this and keeps all hits.
	StrictTitles bool `json:"strict_titles" yaml:"strict_titles"`

	// QueriesPerSecond paces consecutive search requests. Zero disables
	// pacing. This is a politeness tradeoff, not a correctness requirement.
	QueriesPerSecond float64 `json:"queries_per_second" yaml:"queries_per_second"`
}

// FetchConfig holds settings for the content fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Retries is the number of attempts for HTML fetches on transient
	// failure (default 2). PDF fetches are attempted once.
	Retries int `json:"retries" yaml:"retries"`
}

// SeenPolicy controls when a URL is recorded in the seen-URL registry.
type SeenPolicy string

const (
	// SeenOnSight records a URL the first time search returns it. A URL
	// that later fails extraction is never refetched by another query.
	SeenOnSight SeenPolicy = "on-sight"

	// SeenOnSuccess records a URL only after it is scored and accumulated,
	// so a URL that failed extraction may be retried by a different query
	// within the same run.
	SeenOnSuccess SeenPolicy = "on-success"
)

// ResearchConfig holds settings for the research coordinator.
type ResearchConfig struct {
	// NumResults is the target number of ranked sources. Zero means none;
	// the CLI applies its own default of 5.
	NumResults int `json:"num_results" yaml:"num_results"`

	// MaxIterations caps the query-search-fetch loop (default 3).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// SeenPolicy picks the dedup timing (default SeenOnSight).
	SeenPolicy SeenPolicy `json:"seen_policy" yaml:"seen_policy"`

	// DropEmptySummaries drops candidates whose summarization returned an
	// empty string instead of keeping them without a summary (default true).
	DropEmptySummaries bool `json:"drop_empty_summaries" yaml:"drop_empty_summaries"`

	// Concurrency bounds the per-iteration fetch/score worker pool.
	// Values below 2 process candidates sequentially.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Dir is the base directory for the run database (contains index/).
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
