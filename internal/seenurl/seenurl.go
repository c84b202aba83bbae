// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package seenurl tracks which URLs a research run has already handled.
//
// A Registry is scoped to a single run and passed by reference into each
// stage that needs it; there is deliberately no process-wide instance, so
// concurrent runs cannot contaminate each other.
package seenurl

import (
	"net/url"
	"strings"
	"sync"
)

// trackingPrefixes are query-parameter key prefixes that carry no identity:
// two URLs differing only in these parameters point at the same document.
var trackingPrefixes = []string{"utm_", "ref", "fbclid"}

// Registry is a per-run set of normalized URLs. The zero value is not
// usable; call New. All methods are safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Normalize strips tracking query parameters (case-insensitive prefix match
// on utm_, ref, fbclid) and reassembles the URL. Remaining parameters keep
// their original order. Malformed URLs normalize to themselves.
//
// The normalized form is used only for equality checks; the original URL is
// always the one fetched.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery == "" {
		return u.String()
	}

	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		if isTracking(key) {
			continue
		}
		kept = append(kept, pair)
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

func isTracking(key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Add records the normalized form of url.
func (r *Registry) Add(url string) {
	n := Normalize(url)
	r.mu.Lock()
	r.seen[n] = struct{}{}
	r.mu.Unlock()
}

// Contains reports whether the normalized form of url has been recorded.
func (r *Registry) Contains(url string) bool {
	n := Normalize(url)
	r.mu.Lock()
	_, ok := r.seen[n]
	r.mu.Unlock()
	return ok
}

// Len returns the number of distinct normalized URLs recorded.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Hosts returns up to max distinct hosts among the recorded URLs, in
// unspecified order. Used to build -site: exclusions for follow-up queries.
func (r *Registry) Hosts(max int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	uniq := make(map[string]struct{})
	var hosts []string
	for raw := range r.seen {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if _, ok := uniq[u.Host]; ok {
			continue
		}
		uniq[u.Host] = struct{}{}
		hosts = append(hosts, u.Host)
		if len(hosts) >= max {
			break
		}
	}
	return hosts
}
