// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/webresearch/pkg/types"
)

func testExtractor(timeout time.Duration) *Extractor {
	return New(types.FetchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: timeout},
	})
}

// htmlPage wraps body text in a minimal page with boilerplate elements.
func htmlPage(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><script>var tracking = "ignore me";</script>`)
	b.WriteString(`<style>.x{color:red}</style></head><body>`)
	b.WriteString(`<nav>Home | About</nav><header>Site header</header>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString(`<footer>(c) 2026</footer></body></html>`)
	return b.String()
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewDefaultsTimeout(t *testing.T) {
	e := New(types.FetchConfig{})
	if e.client.Timeout != defaultTimeout {
		t.Errorf("client timeout = %v, want %v", e.client.Timeout, defaultTimeout)
	}

	e = New(types.FetchConfig{HTTPConfig: types.HTTPConfig{Timeout: 3 * time.Second}})
	if e.client.Timeout != 3*time.Second {
		t.Errorf("client timeout = %v, want 3s", e.client.Timeout)
	}
}

func TestExtractAcceptsLongDocument(t *testing.T) {
	long := strings.Repeat("x", 1001)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage(long)))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if !doc.Success {
		t.Fatalf("Extract() failed: %s", doc.Err)
	}
	if len(doc.Text) < AcceptMinChars {
		t.Errorf("text length = %d, want >= %d", len(doc.Text), AcceptMinChars)
	}
	if strings.Contains(doc.Text, "ignore me") {
		t.Error("script content leaked into extracted text")
	}
	if strings.Contains(doc.Text, "Site header") {
		t.Error("header boilerplate leaked into extracted text")
	}
}

func TestExtractRejectsShortDocument(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage(strings.Repeat("x", 999))))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if doc.Success {
		t.Fatal("Extract() should fail below the acceptance threshold")
	}
	if !strings.Contains(doc.Err, "too short") {
		t.Errorf("Err = %q, want a too-short reason", doc.Err)
	}
}

func TestProbeThresholds(t *testing.T) {
	tests := []struct {
		name  string
		chars int
		want  bool
	}{
		{"just below probe threshold", 199, false},
		{"at probe threshold", 200, true},
		{"well above probe threshold", 250, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(htmlPage(strings.Repeat("x", tt.chars))))
			})
			doc := testExtractor(5 * time.Second).Probe(context.Background(), server.URL)
			if doc.Success != tt.want {
				t.Errorf("Probe(%d chars).Success = %v, want %v (%s)", tt.chars, doc.Success, tt.want, doc.Err)
			}
		})
	}
}

func TestExtractRejectsPaywalledDocument(t *testing.T) {
	body := "Subscribe now for full access. " + strings.Repeat("x", 2000)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(htmlPage(body)))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if doc.Success {
		t.Fatal("paywalled document must be rejected regardless of length")
	}
	if !strings.Contains(doc.Err, "paywall") {
		t.Errorf("Err = %q, want a paywall reason", doc.Err)
	}
}

func TestExtractPrefersArticleOverBody(t *testing.T) {
	long := strings.Repeat("y", 1200)
	page := `<html><body><p>` + strings.Repeat("sidebar noise ", 100) + `</p>` +
		`<article><p>` + long + `</p></article></body></html>`
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if !doc.Success {
		t.Fatalf("Extract() failed: %s", doc.Err)
	}
	if strings.Contains(doc.Text, "sidebar noise") {
		t.Error("text outside <article> should not be extracted when an article exists")
	}
}

func TestExtractRetriesTransientFailure(t *testing.T) {
	long := strings.Repeat("x", 1500)
	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(htmlPage(long)))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if !doc.Success {
		t.Fatalf("Extract() failed after retry: %s", doc.Err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestExtractGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if doc.Success {
		t.Fatal("Extract() should fail when every attempt gets a non-200")
	}
	if !strings.Contains(doc.Err, "HTTP 404") {
		t.Errorf("Err = %q, want HTTP status reason", doc.Err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2 (default retries)", calls.Load())
	}
}

func TestExtractContentFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(htmlPage("tiny")))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL)
	if doc.Success {
		t.Fatal("short content must fail")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1: refetching cannot fix short content", calls.Load())
	}
}

func TestExtractTimeoutBounded(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(htmlPage(strings.Repeat("x", 1500))))
	})

	start := time.Now()
	doc := testExtractor(50 * time.Millisecond).Extract(context.Background(), server.URL)
	if doc.Success {
		t.Fatal("Extract() should fail when the server exceeds the timeout")
	}
	// Two attempts, each bounded by the 50 ms client timeout.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Extract() took %v; timeout is not bounding the call", elapsed)
	}
}

func TestExtractPDFDispatchByExtension(t *testing.T) {
	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("not a real pdf"))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL+"/paper.pdf")
	if doc.Success {
		t.Fatal("garbage PDF bytes must fail extraction")
	}
	if !strings.Contains(doc.Err, "PDF") {
		t.Errorf("Err = %q, want a PDF reason", doc.Err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1: PDF fetches are attempted once", calls.Load())
	}
}

func TestExtractPDFDispatchByContentType(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("garbage bytes"))
	})

	doc := testExtractor(5 * time.Second).Extract(context.Background(), server.URL+"/download")
	if doc.Success {
		t.Fatal("garbage PDF bytes must fail extraction")
	}
	if !strings.Contains(doc.Err, "PDF") {
		t.Errorf("Err = %q, want a PDF reason", doc.Err)
	}
}

func TestExtractEmptyURL(t *testing.T) {
	doc := testExtractor(time.Second).Extract(context.Background(), "   ")
	if doc.Success {
		t.Fatal("empty URL must fail")
	}
}

func TestIsPDFURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/paper.pdf", true},
		{"https://example.com/paper.PDF", true},
		{"https://example.com/paper.pdf?download=1", true},
		{"https://example.com/pdf-guide.html", false},
		{"https://example.com/paper", false},
	}
	for _, tt := range tests {
		if got := isPDFURL(tt.url); got != tt.want {
			t.Errorf("isPDFURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestPaywallIndicator(t *testing.T) {
	if got := paywallIndicator("Please SUBSCRIBE to continue"); got != "subscribe" {
		t.Errorf("paywallIndicator() = %q, want %q", got, "subscribe")
	}
	if got := paywallIndicator("open access article"); got != "" {
		t.Errorf("paywallIndicator() = %q, want empty", got)
	}
}
