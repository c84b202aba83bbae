// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the boundary to the generative-text service used by the
// query synthesizer, the topic analyzer, and the summarizer.
//
// The service must be assumed rate-limited and occasionally erroring, so the
// HTTP client retries transient failures with a linearly increasing delay
// before surfacing the last error. Callers decide what a failure means for
// their stage; nothing in this package falls back on its own.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is a single completion request.
type Request struct {
	// System is the optional system prompt.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature is the sampling temperature.
	Temperature float64
}

// Client produces a text completion for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// apiBase is the chat-completions endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.openai.com/v1/chat/completions"

// retryBaseDelay is the unit of the backoff between attempts: the n-th retry
// waits n times this long. Tests override it to avoid real sleeps.
var retryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// OpenAIClient calls an OpenAI-compatible chat-completions API.
type OpenAIClient struct {
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

// chat-completions API JSON structures.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Complete sends the request and returns the trimmed completion text.
// Rate-limit responses, server errors, and connection errors are retried up
// to MaxRetries times with delays of retryBaseDelay, 2x, 3x, ...; other
// failures return immediately.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt-1) * retryBaseDelay):
			}
		}

		text, err := c.complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransient(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (string, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling completions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding completions response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("completions API returned no choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// statusError wraps a non-200 API response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("completions API returned %d: %s", e.code, e.body)
}

// isTransient reports whether the error is worth retrying: HTTP 429, any
// 5xx, or a network-level failure.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}
