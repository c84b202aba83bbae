// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize condenses extracted document text into topic-anchored
// summaries.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/webresearch/internal/llm"
)

// maxInputChars bounds the text sent to the model. Long documents are
// truncated, not chunked; the opening of a research page carries most of
// its signal.
const maxInputChars = 4000

const summaryTemperature = 0.3

const summaryPrompt = `Summarize the following content as research material on "%s".

Keep it under 1500 words. Preserve concrete facts, figures, and examples
from the source. Do not add information that is not in the content.

Content:
%s`

// Summarizer produces research summaries through a language model.
type Summarizer struct {
	LLM llm.Client
}

func New(client llm.Client) *Summarizer {
	return &Summarizer{LLM: client}
}

// Summarize returns a summary of text anchored to topic. It never fails:
// a model error or blank response yields "" and the caller decides whether
// the source is still worth keeping.
func (s *Summarizer) Summarize(ctx context.Context, text, topic string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if len(text) > maxInputChars {
		cut := maxInputChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	resp, err := s.LLM.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(summaryPrompt, topic, text),
		Temperature: summaryTemperature,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(resp)
}
