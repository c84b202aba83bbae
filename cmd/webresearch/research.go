// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/webresearch/internal/fetch"
	"github.com/pdiddy/webresearch/internal/llm"
	"github.com/pdiddy/webresearch/internal/query"
	"github.com/pdiddy/webresearch/internal/research"
	"github.com/pdiddy/webresearch/internal/runstore"
	"github.com/pdiddy/webresearch/internal/score"
	"github.com/pdiddy/webresearch/internal/secrets"
	"github.com/pdiddy/webresearch/internal/seenurl"
	"github.com/pdiddy/webresearch/internal/summarize"
	"github.com/pdiddy/webresearch/internal/websearch"
	"github.com/pdiddy/webresearch/pkg/types"
)

const (
	defaultTimeout = 10 * time.Second
	defaultModel   = "gpt-4o-mini"
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Research a topic and return ranked, summarized web sources",
	Long: `Research runs the full acquisition pipeline for a topic: query synthesis,
web search, fetch/extract, paywall and duplicate filtering, relevance scoring,
and summarization. Searches use the Google Custom Search API when a key and
engine ID are configured, and fall back to result-page scraping otherwise.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().Int("num", 0, "number of ranked sources to return (default 5)")
	researchCmd.Flags().Int("iterations", 0, "maximum search iterations (default 3)")
	researchCmd.Flags().Int("concurrency", 0, "parallel fetch workers per iteration (default 1)")
	researchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10s)")
	researchCmd.Flags().String("model", "", "generative model for queries, scoring vocabulary, and summaries")
	researchCmd.Flags().String("seen-policy", "", "when to mark a URL seen: on-sight or on-success (default on-sight)")
	researchCmd.Flags().Bool("keep-empty-summaries", false, "keep sources whose summarization failed")
	researchCmd.Flags().Float64("qps", 0, "maximum search queries per second (0 = no pacing)")
	researchCmd.Flags().Bool("recent", true, "restrict search hits to the last five years")
	researchCmd.Flags().Bool("strict-titles", true, "keep only hits whose title looks like research content")
	researchCmd.Flags().StringSlice("trusted-sites", nil, "bias queries toward these domains")
	researchCmd.Flags().Bool("json", false, "output results as JSON")
	researchCmd.Flags().Bool("yaml", false, "output results as YAML")
	researchCmd.Flags().Bool("save", false, "persist the run to the run store")
	researchCmd.Flags().String("store-dir", "", "base directory for the run store (default research)")
	researchCmd.Flags().String("google-api-key", "", "Google Custom Search API key")
	researchCmd.Flags().String("google-cx", "", "Google Custom Search engine ID")
	researchCmd.Flags().String("openai-api-key", "", "OpenAI-compatible API key")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a research topic")
	}
	topic := strings.Join(args, " ")

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	apiKeyFlag, _ := cmd.Flags().GetString("openai-api-key")
	apiKey := secrets.Resolve(loadedSecrets, apiKeyFlag, "OPENAI_API_KEY", "openai-api-key")
	if apiKey == "" {
		return fmt.Errorf("no OpenAI API key: set --openai-api-key, OPENAI_API_KEY, or .secrets/openai-api-key")
	}

	client := &llm.OpenAIClient{
		APIKey:     apiKey,
		Model:      stringSetting(cmd, "model", "ai.model", defaultModel),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}

	searchCfg := types.SearchConfig{
		HTTPConfig:       types.HTTPConfig{Timeout: timeout},
		RestrictRecent:   boolSetting(cmd, "recent", "search.restrict_recent", true),
		StrictTitles:     boolSetting(cmd, "strict-titles", "search.strict_titles", true),
		QueriesPerSecond: float64Setting(cmd, "qps", "search.queries_per_second", 0),
	}
	searchCfg.TrustedSites, _ = cmd.Flags().GetStringSlice("trusted-sites")

	googleKeyFlag, _ := cmd.Flags().GetString("google-api-key")
	googleCxFlag, _ := cmd.Flags().GetString("google-cx")
	searchCfg.APIKey = secrets.Resolve(loadedSecrets, googleKeyFlag, "GOOGLE_API_KEY", "google-api-key")
	searchCfg.EngineID = secrets.Resolve(loadedSecrets, googleCxFlag, "GOOGLE_CX", "google-cx")

	httpClient := &http.Client{Timeout: timeout}
	var backend websearch.Backend
	if searchCfg.APIKey != "" && searchCfg.EngineID != "" {
		backend = &websearch.GoogleCSEBackend{
			Client:   httpClient,
			APIKey:   searchCfg.APIKey,
			EngineID: searchCfg.EngineID,
		}
	} else {
		fmt.Fprintln(os.Stderr, "warning: no Google API credentials, falling back to result-page scraping")
		backend = &websearch.SERPBackend{Client: httpClient}
	}

	researchCfg := types.ResearchConfig{
		NumResults:         intSetting(cmd, "num", "research.num_results", 5),
		MaxIterations:      intSetting(cmd, "iterations", "research.max_iterations", 3),
		Concurrency:        intSetting(cmd, "concurrency", "research.concurrency", 1),
		SeenPolicy:         types.SeenPolicy(stringSetting(cmd, "seen-policy", "research.seen_policy", string(types.SeenOnSight))),
		DropEmptySummaries: !boolSetting(cmd, "keep-empty-summaries", "research.keep_empty_summaries", false),
	}
	switch researchCfg.SeenPolicy {
	case types.SeenOnSight, types.SeenOnSuccess:
	default:
		return fmt.Errorf("unknown seen policy %q: use on-sight or on-success", researchCfg.SeenPolicy)
	}

	registry := seenurl.New()
	coordinator := &research.Coordinator{
		Queries:    &query.Synthesizer{LLM: client},
		Searcher:   websearch.NewAdapter(backend, registry, searchCfg),
		Extractor:  fetch.New(types.FetchConfig{HTTPConfig: types.HTTPConfig{Timeout: timeout}}),
		Scorer:     score.New(client),
		Summarizer: summarize.New(client),
		Registry:   registry,
		Config:     researchCfg,
		Log:        os.Stderr,
	}

	out, err := coordinator.Run(context.Background(), topic)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := runstore.NewStore(types.StoreConfig{
			Dir: stringSetting(cmd, "store-dir", "store.dir", "research"),
		})
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.SaveRun(context.Background(), topic, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", id)
	}

	return formatOutput(cmd, out)
}

func formatOutput(cmd *cobra.Command, out types.ResearchOutput) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if yamlOutput, _ := cmd.Flags().GetBool("yaml"); yamlOutput {
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	printResults(out)
	return nil
}

func printResults(out types.ResearchOutput) {
	if len(out.Results) == 0 {
		fmt.Println("No usable sources found.")
		fmt.Printf("\n%d candidates seen, %d fetched, %d rejected over %d iteration(s)\n",
			out.CandidatesSeen, out.Fetched, out.Rejected, out.Iterations)
		return
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-7s  %-50s  %s\n", "Rank", "Score", "Title", "URL")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for i, r := range out.Results {
		title := r.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-7.1f  %-50s  %s\n", i+1, r.QualityScore, title, r.URL)
	}

	for i, r := range out.Results {
		fmt.Printf("\n[%d] %s\n", i+1, r.URL)
		if len(r.Reasons) > 0 {
			fmt.Printf("    %s\n", strings.Join(r.Reasons, "; "))
		}
		if r.Summary != "" {
			fmt.Printf("    %s\n", r.Summary)
		}
	}

	fmt.Printf("\n%d result(s) from %d candidates over %d iteration(s)\n",
		len(out.Results), out.CandidatesSeen, out.Iterations)
}
