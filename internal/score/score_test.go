// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/webresearch/internal/llm"
)

type stubClient struct {
	calls    atomic.Int32
	response string
	err      error
}

func (c *stubClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.calls.Add(1)
	return c.response, c.err
}

func fixedYear(t *testing.T, year int) {
	t.Helper()
	orig := nowYear
	nowYear = func() int { return year }
	t.Cleanup(func() { nowYear = orig })
}

func TestParseDescriptors(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want Descriptors
	}{
		{
			name: "both labels",
			resp: "KEYWORDS: Kubernetes, cluster autoscaling\nTECHNICAL_TERMS: etcd, kubelet",
			want: Descriptors{
				Keywords:       []string{"kubernetes", "cluster autoscaling"},
				TechnicalTerms: []string{"etcd", "kubelet"},
			},
		},
		{
			name: "surrounding prose ignored",
			resp: "Here is the vocabulary:\n\nkeywords: caching, redis\nSome closing remark.",
			want: Descriptors{Keywords: []string{"caching", "redis"}},
		},
		{
			name: "missing labels",
			resp: "caching, redis, eviction",
			want: Descriptors{},
		},
		{
			name: "empty entries dropped",
			resp: "KEYWORDS: one, , two,\nTECHNICAL_TERMS:",
			want: Descriptors{Keywords: []string{"one", "two"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDescriptors(tt.resp))
		})
	}
}

func TestDescribeTopicCachesPerTopic(t *testing.T) {
	client := &stubClient{response: "KEYWORDS: caching\nTECHNICAL_TERMS: lru"}
	s := New(client)

	first := s.DescribeTopic(context.Background(), "cache eviction")
	second := s.DescribeTopic(context.Background(), "cache eviction")

	require.Equal(t, first, second)
	assert.Equal(t, int32(1), client.calls.Load(), "second lookup must hit the cache")

	s.DescribeTopic(context.Background(), "different topic")
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestDescribeTopicFallsBackToTopicWords(t *testing.T) {
	client := &stubClient{err: errors.New("model unavailable")}
	s := New(client)

	d := s.DescribeTopic(context.Background(), "zero trust network access")
	assert.Equal(t, []string{"zero", "trust", "network", "access"}, d.Keywords)
	assert.Empty(t, d.TechnicalTerms)
}

func TestDescribeTopicFallsBackOnUnparsableResponse(t *testing.T) {
	client := &stubClient{response: "I cannot produce a list for that."}
	s := New(client)

	d := s.DescribeTopic(context.Background(), "vector databases")
	assert.Equal(t, []string{"vector", "databases"}, d.Keywords)
}

func TestScoreTextTermWeights(t *testing.T) {
	d := Descriptors{
		Keywords:       []string{"kubernetes"},
		TechnicalTerms: []string{"etcd"},
	}
	text := "etcd stores cluster state. etcd is consulted by Kubernetes controllers."

	score, reasons := ScoreText(text, d, time.Time{})
	// two technical-term hits at 3 plus one keyword hit at 2
	assert.Equal(t, 8.0, score)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "2 technical term")
}

func TestScoreTextStructureBonus(t *testing.T) {
	text := "Our methodology is described below. The methodology and results follow."

	score, reasons := ScoreText(text, Descriptors{}, time.Time{})
	// bonus applies once no matter how many structure terms appear
	assert.Equal(t, 30.0, score)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "methodology")
}

func TestScoreTextRecencyDecay(t *testing.T) {
	fixedYear(t, 2026)
	d := Descriptors{Keywords: []string{"topic"}}
	text := strings.Repeat("topic ", 20)

	current, _ := ScoreText(text, d, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	old, reasons := ScoreText(text, d, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 25.0, current-old, "five years of age costs 25 points")
	assert.Contains(t, reasons, "published 2021")
}

func TestScoreTextFlooredAtZero(t *testing.T) {
	fixedYear(t, 2026)

	score, reasons := ScoreText("nothing relevant here", Descriptors{}, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 0.0, score)
	assert.Contains(t, reasons, "published 2000")
}

func TestScoreTextZeroDateSkipsRecency(t *testing.T) {
	_, reasons := ScoreText("plain text", Descriptors{}, time.Time{})
	assert.Empty(t, reasons)
}

func TestScoreTextReasonOrder(t *testing.T) {
	fixedYear(t, 2026)
	d := Descriptors{Keywords: []string{"caching"}}
	text := "Caching results and the methodology behind them."

	_, reasons := ScoreText(text, d, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, reasons, 3)
	assert.Contains(t, reasons[0], "keyword")
	assert.Contains(t, reasons[1], "structured")
	assert.Contains(t, reasons[2], "published 2025")
}

func TestScoreTextDeterministic(t *testing.T) {
	d := Descriptors{Keywords: []string{"raft"}, TechnicalTerms: []string{"quorum"}}
	text := "Raft elects a leader once a quorum acknowledges the term. Results were stable."

	s1, r1 := ScoreText(text, d, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	s2, r2 := ScoreText(text, d, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, s1, s2)
	assert.Equal(t, r1, r2)
}
